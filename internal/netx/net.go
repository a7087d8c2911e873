// Package netx derives push-channel endpoints from the API base URL.
package netx

import (
	"fmt"
	"net/url"
	"strings"
)

// SocketURL maps an API base such as http://host:8000/api to the push
// channel endpoint ws://host:8000/api/ws. https maps to wss.
func SocketURL(apiBase string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiBase))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api url %q has no host", apiBase)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Origin returns scheme://host of an http(s) URL; the socket handshake
// sends it as the Origin header.
func Origin(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Resolve makes a possibly relative file URL returned by the API absolute
// against the API origin.
func Resolve(apiBase, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(apiBase)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
