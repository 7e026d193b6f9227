package stream

import (
	"net"
	"net/url"
	"strings"

	"github.com/kasuwa/searchstream/pkg/config"
)

// ResolveEndpoint picks the stream endpoint once, at construction time.
//
//  1. No app origin (headless / server-rendered context): the fixed
//     fallback production endpoint.
//  2. Development: the configured backend URL when it points at a loopback
//     host, else the fallback.
//  3. Production: origins on the platform's primary domain route to the
//     dedicated API subdomain; any other origin derives the endpoint from
//     its own scheme and host.
func ResolveEndpoint(env string, cfg config.EndpointConfig) string {
	if cfg.AppOrigin == "" {
		return cfg.FallbackURL
	}

	if env == "development" {
		if isLoopbackURL(cfg.BackendURL) {
			return cfg.BackendURL
		}
		return cfg.FallbackURL
	}

	origin, err := url.Parse(cfg.AppOrigin)
	if err != nil || origin.Host == "" {
		return cfg.FallbackURL
	}

	if onPrimaryDomain(origin.Hostname(), cfg.PrimaryDomain) {
		return "wss://api." + cfg.PrimaryDomain + "/stream"
	}

	scheme := "ws"
	if origin.Scheme == "https" || origin.Scheme == "wss" {
		scheme = "wss"
	}
	return scheme + "://" + origin.Host + "/stream"
}

func onPrimaryDomain(host, primary string) bool {
	if primary == "" {
		return false
	}
	return host == primary || strings.HasSuffix(host, "."+primary)
}

func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
