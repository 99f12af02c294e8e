// Package scrapeable decides which article URLs are worth a full-text scrape.
// Video and social hosts rarely yield article text, and binary downloads
// never do, so both are rejected before any network call.
package scrapeable

import (
	"net/url"
	"path"
	"strings"
)

// DefaultHosts lists hosts (and their subdomains) that are never scraped.
var DefaultHosts = []string{
	"*.youtube.com",
	"*.youtu.be",
	"*.twitter.com",
	"*.x.com",
	"*.facebook.com",
	"*.instagram.com",
	"*.linkedin.com",
	"*.tiktok.com",
}

// DefaultExtensions lists path extensions that are never scraped.
var DefaultExtensions = []string{".pdf", ".zip", ".exe"}

// Policy matches URLs against a host blocklist and an extension blocklist.
type Policy struct {
	exact      map[string]struct{}
	suffixes   []string
	extensions map[string]struct{}
}

// New builds a Policy. Host patterns are exact hosts, or "*.example.com" /
// ".example.com" to match a domain and all of its subdomains.
func New(hosts, extensions []string) *Policy {
	p := &Policy{
		exact:      make(map[string]struct{}),
		extensions: make(map[string]struct{}),
	}
	for _, raw := range hosts {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			p.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			p.addSuffix(strings.TrimPrefix(value, "."))
		default:
			p.exact[value] = struct{}{}
		}
	}
	for _, raw := range extensions {
		ext := strings.TrimSpace(strings.ToLower(raw))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.extensions[ext] = struct{}{}
	}
	return p
}

// Default returns the policy built from DefaultHosts plus extra hosts.
func Default(extraHosts ...string) *Policy {
	hosts := append(append([]string(nil), DefaultHosts...), extraHosts...)
	return New(hosts, DefaultExtensions)
}

func (p *Policy) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range p.suffixes {
		if existing == suffix {
			return
		}
	}
	p.suffixes = append(p.suffixes, suffix)
}

// Allow reports whether rawURL should be scraped. Unparseable or non-HTTP
// URLs are rejected.
func (p *Policy) Allow(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if p.hostBlocked(u.Hostname()) {
		return false
	}
	_, blockedExt := p.extensions[strings.ToLower(path.Ext(u.Path))]
	return !blockedExt
}

func (p *Policy) hostBlocked(host string) bool {
	host = strings.ToLower(host)
	if _, exact := p.exact[host]; exact {
		return true
	}
	for _, suffix := range p.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
