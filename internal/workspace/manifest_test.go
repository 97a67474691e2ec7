package workspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBridgeImports(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "default import",
			source: `import Java from "frida-java-bridge";`,
			want:   []string{"frida-java-bridge"},
		},
		{
			name:   "bare import single quotes",
			source: `import 'frida-objc-bridge';`,
			want:   []string{"frida-objc-bridge"},
		},
		{
			name: "multiple imports",
			source: `import Java from "frida-java-bridge";
import ObjC from "frida-objc-bridge";`,
			want: []string{"frida-java-bridge", "frida-objc-bridge"},
		},
		{
			name:   "no imports",
			source: `console.log("hello");`,
			want:   nil,
		},
		{
			name:   "unrelated import",
			source: `import fs from "fs";`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := FindBridgeImports(tt.source)
			assert.Len(t, found, len(tt.want))

			for _, pkg := range tt.want {
				assert.True(t, found[pkg], "expected %s to be detected", pkg)
			}
		})
	}
}

func TestInjectMissingBridges(t *testing.T) {
	tests := []struct {
		name         string
		source       string
		wantInjected []string
		wantPkgs     []string
	}{
		{
			name:         "Java global without import",
			source:       `Java.perform(() => {});`,
			wantInjected: []string{`import Java from "frida-java-bridge";`},
			wantPkgs:     []string{"frida-java-bridge"},
		},
		{
			name:         "Java global with import untouched",
			source:       `import Java from "frida-java-bridge";` + "\n" + `Java.perform(() => {});`,
			wantInjected: nil,
			wantPkgs:     []string{"frida-java-bridge"},
		},
		{
			name:         "ObjC and Swift",
			source:       `ObjC.available && Swift.available;`,
			wantInjected: []string{`import ObjC from "frida-objc-bridge";`, `import Swift from "frida-swift-bridge";`},
			wantPkgs:     []string{"frida-objc-bridge", "frida-swift-bridge"},
		},
		{
			name:         "no bridge usage",
			source:       `console.log("x");`,
			wantInjected: nil,
			wantPkgs:     nil,
		},
		{
			name:         "substring does not count",
			source:       `const JavaScript = 1;`,
			wantInjected: nil,
			wantPkgs:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewritten, pkgs := InjectMissingBridges(tt.source)

			for _, stmt := range tt.wantInjected {
				assert.True(t, strings.Contains(rewritten, stmt), "expected injected import %q", stmt)
			}

			if len(tt.wantInjected) == 0 {
				assert.Equal(t, tt.source, rewritten, "source should be untouched")
			} else {
				// Injections go above the original source.
				assert.True(t, strings.HasSuffix(rewritten, tt.source))
			}

			assert.ElementsMatch(t, tt.wantPkgs, pkgs)
		})
	}
}

func TestManifestDeterminism(t *testing.T) {
	m1 := NewManifest([]string{"frida-java-bridge", "frida-objc-bridge"})
	m2 := NewManifest([]string{"frida-objc-bridge", "frida-java-bridge"})

	d1, err := m1.Encode()
	require.NoError(t, err)
	d2, err := m2.Encode()
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "bridge order should not change the encoding")

	fp1, err := m1.Fingerprint()
	require.NoError(t, err)
	fp2, err := m2.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "fingerprint should be a hex SHA256")
}

func TestManifestFingerprintDistinguishesDependencies(t *testing.T) {
	base, err := NewManifest(nil).Fingerprint()
	require.NoError(t, err)

	withJava, err := NewManifest([]string{"frida-java-bridge"}).Fingerprint()
	require.NoError(t, err)

	assert.NotEqual(t, base, withJava, "different dependency sets should produce different fingerprints")
}

func TestManifestAlwaysHasBaseDependencies(t *testing.T) {
	m := NewManifest(nil)

	assert.Contains(t, m.Dependencies, "@types/frida-gum")
	assert.True(t, m.Private)
	assert.Equal(t, []string{"@types/frida-gum"}, m.DependencyNames())
}

func TestManifestIgnoresUnknownBridges(t *testing.T) {
	m := NewManifest([]string{"left-pad"})

	assert.NotContains(t, m.Dependencies, "left-pad", "only known bridges may enter the manifest")
}
