package linkhealth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare host", "example.com", "https://example.com/", true},
		{"trims whitespace", "  example.com/path  ", "https://example.com/path", true},
		{"keeps http", "http://example.com", "http://example.com/", true},
		{"lowercases host and scheme", "HTTPS://Example.COM/A", "https://example.com/A", true},
		{"drops default https port", "https://example.com:443/x", "https://example.com/x", true},
		{"drops default http port", "http://example.com:80", "http://example.com/", true},
		{"host and port", "example.com:8443", "https://example.com:8443/", true},
		{"custom port with scheme", "https://example.com:8443", "https://example.com:8443/", true},
		{"keeps query", "example.com/search?q=go", "https://example.com/search?q=go", true},
		{"ipv6", "http://[::1]:8080/", "http://[::1]:8080/", true},
		{"idn", "https://bücher.example/", "https://xn--bcher-kva.example/", true},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"garbage", "not a url!!", "", false},
		{"ftp", "ftp://example.com", "", false},
		{"mailto", "mailto:me@example.com", "", false},
		{"host and port without scheme", "example.com:8080/x", "https://example.com:8080/x", true},
		{"javascript", "javascript:alert(1)", "", false},
		{"no host", "https://", "", false},
		{"scheme with space in host", "https://exa mple.com", "", false},
		{"scheme with bad escape", "https://example.com/%zz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"example.com",
		"HTTP://Example.com:80/a/b?c=d#frag",
		"https://bücher.example",
		"http://[::1]:8080",
		"https://example.com:8443/path",
	}
	for _, in := range inputs {
		first, ok := Normalize(in)
		if !assert.True(t, ok, in) {
			continue
		}
		second, ok := Normalize(first)
		assert.True(t, ok)
		assert.Equal(t, first, second, in)
	}
}
