package linkhealth

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// isHostPort reports whether "host:8080/x" was read as scheme "host" with an opaque port.
func isHostPort(u *url.URL) bool {
	port, _, _ := strings.Cut(u.Opaque, "/")
	if port == "" {
		return false
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Normalize turns a raw user-entered string into an absolute http(s) URL.
//
// Input without a scheme is retried once with "https://" prepended. Input
// that carries "://" but does not parse is rejected as is. The
// result has a lowercased scheme and host, no default port and at least
// "/" as path, so Normalize(Normalize(x)) == Normalize(x). The second
// return value is false when the input cannot be turned into such a URL.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	u, err := url.Parse(s)
	if err != nil && strings.Contains(s, "://") {
		return "", false
	}
	if err != nil || u.Scheme == "" || isHostPort(u) {
		u, err = url.Parse("https://" + s)
		if err != nil {
			return "", false
		}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := u.Hostname()
	if host == "" {
		return "", false
	}
	host, ok := asciiHost(host)
	if !ok {
		return "", false
	}

	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}

	u.Scheme = scheme
	u.Host = host
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), true
}

// asciiHost lowercases plain hosts and punycodes internationalised ones.
func asciiHost(host string) (string, bool) {
	if isASCII(host) {
		return strings.ToLower(host), true
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return "", false
	}
	return ascii, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
