// Package depcache maintains the shared dependency cache used by all
// compile jobs.
//
// Installed dependency sets are keyed by the SHA256 fingerprint of the
// generated manifest. A Ready fingerprint resolves in O(1) — a metadata
// lookup plus a directory stat, no subprocess. A miss runs the package
// manager exactly once per fingerprint, no matter how many jobs arrive
// concurrently: same-fingerprint callers wait on the in-flight install
// (singleflight), while unrelated fingerprints install in parallel.
//
// Metadata lives in BoltDB, installed trees in the filesystem:
//
//	<cacheRoot>/cache.db
//	<cacheRoot>/pkgs/<fingerprint>/node_modules/...
//
// A failed install removes its partial tree and records nothing, so
// transient failures (network, registry) are retried by the next request
// rather than poisoning the fingerprint.
package depcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"

	"github.com/fridaforge/fridaforge/internal/workspace"
)

const (
	// bucketName is the BoltDB bucket name for cache entries
	bucketName = "installs"

	// pkgsDir holds the installed dependency trees, one per fingerprint
	pkgsDir = "pkgs"
)

// InstallError reports a failed dependency install. Failed installs are
// never cached; a later request for the same fingerprint retries.
type InstallError struct {
	Fingerprint string
	Err         error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("dependency install for %.12s failed: %v", e.Fingerprint, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Cache manages installed dependency sets and their metadata.
type Cache struct {
	db        *bbolt.DB
	root      string
	installer Installer
	timeout   time.Duration
	flight    singleflight.Group
	logger    *slog.Logger
}

// New creates a cache rooted at dir, opening (or creating) its metadata
// database. timeout bounds each install so one stuck package manager
// cannot starve every waiter on its fingerprint.
func New(dir string, installer Installer, timeout time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cache{
		db:        db,
		root:      dir,
		installer: installer,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Ensure returns the installed dependency directory for the manifest,
// installing it first if necessary. ctx cancellation abandons the wait
// but never interrupts a shared in-flight install: the install runs on
// its own deadline so the other waiters still get a usable result.
func (c *Cache) Ensure(ctx context.Context, m *workspace.Manifest) (string, error) {
	fingerprint, err := m.Fingerprint()
	if err != nil {
		return "", err
	}

	if path, ok := c.lookup(fingerprint); ok {
		return path, nil
	}

	ch := c.flight.DoChan(fingerprint, func() (any, error) {
		return c.install(fingerprint, m)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	}
}

// lookup returns the installed path for a Ready fingerprint. An entry
// whose directory has disappeared (manual cleanup, reboot with a tmpfs
// cache root) is dropped and treated as a miss.
func (c *Cache) lookup(fingerprint string) (string, bool) {
	var entry Entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(fingerprint))
		if data == nil {
			return nil
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil || entry.Fingerprint == "" {
		return "", false
	}

	if _, err := os.Stat(entry.InstalledPath); err != nil {
		c.logger.Warn("cache entry lost its installed tree, evicting",
			"fingerprint", fingerprint, "path", entry.InstalledPath)
		c.evict(fingerprint)

		return "", false
	}

	return entry.InstalledPath, true
}

// install performs the Installing transition for a fingerprint. Called
// at most once per fingerprint at a time, via singleflight.
func (c *Cache) install(fingerprint string, m *workspace.Manifest) (string, error) {
	// Re-check under the flight: a previous caller may have completed
	// the install while this one was queued behind it.
	if path, ok := c.lookup(fingerprint); ok {
		return path, nil
	}

	dir := filepath.Join(c.root, pkgsDir, fingerprint)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &InstallError{Fingerprint: fingerprint, Err: err}
	}

	manifestData, err := m.Encode()
	if err != nil {
		return "", &InstallError{Fingerprint: fingerprint, Err: err}
	}

	if err := os.WriteFile(filepath.Join(dir, "package.json"), manifestData, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", &InstallError{Fingerprint: fingerprint, Err: err}
	}

	c.logger.Info("installing dependencies", "fingerprint", fingerprint, "packages", m.DependencyNames())

	// Detached from any single caller: the install result is shared by
	// every job waiting on this fingerprint, so one aborted connection
	// must not fail the rest. The cache's own timeout still bounds it.
	ictx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()

	if err := c.installer.Install(ictx, dir); err != nil {
		// Remove partial state so the next request retries cleanly.
		os.RemoveAll(dir)

		return "", &InstallError{Fingerprint: fingerprint, Err: err}
	}

	entry := Entry{
		Fingerprint:    fingerprint,
		InstalledPath:  dir,
		Packages:       m.DependencyNames(),
		PackageManager: installerName(c.installer),
		Timestamp:      time.Now(),
	}

	if err := c.store(&entry); err != nil {
		// The tree is usable even if metadata persistence failed; a
		// later process will just reinstall.
		c.logger.Error("failed to persist cache entry", "fingerprint", fingerprint, "error", err)
	}

	c.logger.Info("dependencies installed", "fingerprint", fingerprint, "duration", time.Since(start))

	return dir, nil
}

func (c *Cache) store(entry *Entry) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(bucketName)).Put([]byte(entry.Fingerprint), data)
	})
}

func (c *Cache) evict(fingerprint string) {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(fingerprint))
	})
	if err != nil {
		c.logger.Error("failed to evict cache entry", "fingerprint", fingerprint, "error", err)
	}
}

// Stats returns the number of Ready entries and the total size in bytes
// of the installed trees.
func (c *Cache) Stats() (int, int64, error) {
	var count int

	err := c.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	var totalSize int64

	root := filepath.Join(c.root, pkgsDir)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if !info.IsDir() {
			totalSize += info.Size()
		}

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return count, totalSize, err
	}

	return count, totalSize, nil
}

// Clear removes all cache entries and installed trees.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))

		return err
	})
	if err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Join(c.root, pkgsDir)); err != nil {
		return fmt.Errorf("failed to remove installed trees: %w", err)
	}

	return nil
}

func installerName(i Installer) string {
	if ei, ok := i.(*ExecInstaller); ok {
		return filepath.Base(ei.Path)
	}

	return "custom"
}
