package downloader

import (
	"net/url"
	"strings"
)

// TrustedHost reports whether host is one of domains or a subdomain of one.
func TrustedHost(host string, domains []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func trustedURL(u *url.URL, domains []string) bool {
	return u != nil && TrustedHost(u.Hostname(), domains)
}
