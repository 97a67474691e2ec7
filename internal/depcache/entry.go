package depcache

import "time"

// Entry records a successfully installed dependency set.
//
// Only Ready installs are persisted: a failed install removes its partial
// tree and leaves no entry behind, so the next request for the same
// fingerprint retries from scratch. The other cache states are implicit —
// Absent is the missing entry, Installing is the in-flight singleflight
// call for the fingerprint.
type Entry struct {
	// Fingerprint is the SHA256 hash of the canonical manifest encoding
	Fingerprint string `json:"fingerprint"`

	// InstalledPath is the shared directory holding the resolved packages
	InstalledPath string `json:"installed_path"`

	// Packages lists the manifest's dependency names, for diagnostics
	Packages []string `json:"packages"`

	// PackageManager that performed the install (npm or bun)
	PackageManager string `json:"package_manager"`

	// Timestamp when the install completed
	Timestamp time.Time `json:"timestamp"`
}
