// Package server is the thin HTTP front end over the compile
// coordinator. It parses multipart submissions, hands them to the forge
// and streams back the artifact or a structured error payload.
package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/fridaforge/fridaforge/internal/forge"
	"github.com/fridaforge/fridaforge/internal/version"
	"github.com/fridaforge/fridaforge/internal/workspace"
)

// maxUploadBytes bounds a single multipart submission.
const maxUploadBytes = 8 << 20

// Compiler is the coordinator surface the server depends on.
type Compiler interface {
	Compile(ctx context.Context, req *forge.CompileRequest) (*forge.Result, error)
}

// Server handles the HTTP API.
type Server struct {
	compiler     Compiler
	compilerPath string
	logger       *slog.Logger
}

// New creates a server around the given coordinator. compilerPath is
// only used by the version endpoint.
func New(compiler Compiler, compilerPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		compiler:     compiler,
		compilerPath: compilerPath,
		logger:       logger,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /compile", s.handleCompile)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form data")
		return
	}

	req, err := s.buildRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.compiler.Compile(r.Context(), req)
	if err != nil {
		s.writeCompileError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifact)
}

// buildRequest turns the multipart form into a CompileRequest. A .zip
// upload is unpacked into a file set; any other upload or the snippet
// field becomes the entry source.
func (s *Server) buildRequest(r *http.Request) (*forge.CompileRequest, error) {
	snippet := r.FormValue("snippet")
	file, header, err := r.FormFile("file")

	hasFile := err == nil
	if hasFile {
		defer file.Close()
	}

	if hasFile && snippet != "" {
		return nil, fmt.Errorf("provide either a file or a snippet, not both")
	}

	if !hasFile && snippet == "" {
		return nil, fmt.Errorf("no input provided: upload a .ts/.js file, a .zip of sources, or a snippet")
	}

	if !hasFile {
		return &forge.CompileRequest{
			Source: snippet,
			Origin: forge.OriginSnippet,
		}, nil
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	req := &forge.CompileRequest{
		Origin:        forge.OriginUpload,
		SuggestedName: header.Filename,
	}

	if strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		files, err := unpackZip(content)
		if err != nil {
			return nil, err
		}

		req.Files = files
	} else {
		req.Source = string(content)
	}

	return req, nil
}

// unpackZip extracts the script members of an uploaded archive, flattened
// to base names. The archive must contain the entry file.
func unpackZip(content []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("invalid zip archive: %w", err)
	}

	files := make(map[string][]byte)

	for _, member := range zr.File {
		name := workspace.SanitizeName(member.Name)
		if name == "" {
			continue
		}

		if !strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".js") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip member %s: %w", member.Name, err)
		}

		data, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip member %s: %w", member.Name, err)
		}

		files[name] = data
	}

	if _, ok := files[workspace.EntryFileName]; !ok {
		return nil, fmt.Errorf("zip must contain an %s file", workspace.EntryFileName)
	}

	return files, nil
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.compilerPath, "--version").Output()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal_error", "compiler unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"service":  version.Version,
		"compiler": strings.TrimSpace(string(out)),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeCompileError maps a terminal job error to a response. A build
// failure is the user's code failing and carries the raw diagnostic;
// everything else is a service-side fault.
func (s *Server) writeCompileError(w http.ResponseWriter, err error) {
	kind := forge.Classify(err)

	switch kind {
	case forge.KindInvalidRequest:
		s.writeError(w, http.StatusBadRequest, kind.String(), err.Error())
	case forge.KindBuild:
		s.writeError(w, http.StatusBadRequest, kind.String(), forge.Diagnostic(err))
	case forge.KindBuildTimeout:
		s.writeError(w, http.StatusGatewayTimeout, kind.String(), err.Error())
	case forge.KindCanceled:
		// Client went away; status is best-effort.
		s.writeError(w, 499, kind.String(), err.Error())
	default:
		s.logger.Error("compile failed", "kind", kind.String(), "error", err)
		s.writeError(w, http.StatusInternalServerError, kind.String(), err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, detail string) {
	s.writeJSON(w, status, map[string]string{
		"error":  kind,
		"detail": detail,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
