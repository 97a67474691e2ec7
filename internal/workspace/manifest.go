package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// bridgeImportRe matches an import of a frida bridge package, e.g.
//
//	import Java from "frida-java-bridge";
//	import "frida-objc-bridge";
var bridgeImportRe = regexp.MustCompile(`import(?:\s+[^"']+\s+from)?\s*["'](frida-[^"']+-bridge)["']`)

// bridge describes a frida runtime bridge that agent sources may rely on
// through a bare global (Java, ObjC, Swift) without importing it.
type bridge struct {
	keyword string
	pkg     string
	version string
	stmt    string
}

var bridges = []bridge{
	{"Java", "frida-java-bridge", "^7.0.3", `import Java from "frida-java-bridge";`},
	{"ObjC", "frida-objc-bridge", "^8.0.6", `import ObjC from "frida-objc-bridge";`},
	{"Swift", "frida-swift-bridge", "^2.0.8", `import Swift from "frida-swift-bridge";`},
}

// baseDependencies are always present in a generated manifest.
var baseDependencies = map[string]string{
	"@types/frida-gum": "^18.7.1",
}

// Manifest is the dependency descriptor written into a workspace as
// package.json. It is generated internally from the user sources and a
// fixed base set; caller-supplied dependency lists are never accepted.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewManifest builds the manifest for a set of detected bridge packages.
func NewManifest(bridgePkgs []string) *Manifest {
	deps := make(map[string]string, len(baseDependencies)+len(bridgePkgs))
	for name, version := range baseDependencies {
		deps[name] = version
	}

	for _, pkg := range bridgePkgs {
		for _, b := range bridges {
			if b.pkg == pkg {
				deps[pkg] = b.version
			}
		}
	}

	return &Manifest{
		Name:         "fridaforge-agent",
		Version:      "1.0.0",
		Private:      true,
		Dependencies: deps,
	}
}

// Encode renders the manifest as canonical package.json bytes. Map keys
// are emitted in sorted order, so identical dependency sets always
// produce identical bytes.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	return append(data, '\n'), nil
}

// Fingerprint returns the SHA256 hash of the canonical manifest encoding,
// used as the dependency cache key.
func (m *Manifest) Fingerprint() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

// DependencyNames returns the sorted package names in the manifest.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// FindBridgeImports returns the set of frida bridge packages already
// imported by the given source.
func FindBridgeImports(source string) map[string]bool {
	found := make(map[string]bool)
	for _, m := range bridgeImportRe.FindAllStringSubmatch(source, -1) {
		found[m[1]] = true
	}

	return found
}

// InjectMissingBridges scans the source for uses of the Java, ObjC or
// Swift globals and prepends the corresponding bridge import when it is
// missing. Returns the (possibly rewritten) source and the packages the
// source depends on after injection.
func InjectMissingBridges(source string) (string, []string) {
	imported := FindBridgeImports(source)

	var injections []string
	var pkgs []string

	for _, b := range bridges {
		if imported[b.pkg] {
			pkgs = append(pkgs, b.pkg)
			continue
		}

		if usesKeyword(source, b.keyword) {
			injections = append(injections, b.stmt)
			pkgs = append(pkgs, b.pkg)
		}
	}

	if len(injections) > 0 {
		source = strings.Join(injections, "\n") + "\n" + source
	}

	return source, pkgs
}

func usesKeyword(source, keyword string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	return re.MatchString(source)
}
