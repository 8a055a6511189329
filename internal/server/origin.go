// Package server normalizes and validates HTTP origins for websocket
// upgrades, enforcing the configured allow-list.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// normalizeOrigins lowercases and deduplicates the configured origins,
// discarding anything unparsable. A lone "*" entry switches the policy to
// allow-all.
func normalizeOrigins(origins []string) ([]string, bool) {
	allowAll := lo.SomeBy(origins, func(origin string) bool {
		return strings.TrimSpace(origin) == "*"
	})

	normalized := lo.FilterMap(origins, func(origin string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" || trimmed == "*" {
			return "", false
		}
		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Printf("Ignoring invalid origin in configuration: %q", origin)
		}
		return normalizedOrigin, ok
	})

	return lo.Uniq(normalized), allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalizedOrigin, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	_, exists := allowedOrigins[normalizedOrigin]
	return exists
}

func checkOrigin(r *http.Request) bool {
	if isOriginAllowed(r) {
		return true
	}

	log.Printf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
