package bookmarks

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - href: https://pkg.go.dev/
- Media:
    - YouTube:
        - abbr: YT
          href: {{HOMEPAGE_VAR_YT_URL}}
    - Jellyfin:
        - href: http://jellyfin.lan:8096
`

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	file, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(file) != 2 {
		t.Fatalf("Load() returned %d categories, want 2", len(file))
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("- [unclosed")); err == nil {
		t.Error("Parse() should fail on invalid yaml")
	}
}

func TestStripTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single", "href: {{HOMEPAGE_VAR_URL}}", `href: ""`},
		{"several", "a: {{A}}\nb: {{B}}", "a: \"\"\nb: \"\""},
		{"none", "href: https://example.com", "href: https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables([]byte(tt.input))
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}
