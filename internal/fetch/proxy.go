package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Default proxy endpoints. The target URL is appended query-escaped.
const (
	CorsProxyBase  = "https://corsproxy.io/?"
	AllOriginsBase = "https://api.allorigins.win/get?url="
)

// Proxy is one attempt strategy in the fallback chain: it rewrites the
// target URL and unwraps the proxy's envelope from the response body.
type Proxy struct {
	Name    string
	Rewrite func(target string) string
	Unwrap  func(body []byte) ([]byte, error)
}

// errEmptyEnvelope is returned when a JSON envelope carries no payload.
var errEmptyEnvelope = errors.New("empty proxy envelope")

// CorsProxy passes the upstream body through unchanged.
func CorsProxy(base string) Proxy {
	if base == "" {
		base = CorsProxyBase
	}
	return Proxy{
		Name:    "corsproxy",
		Rewrite: func(target string) string { return base + url.QueryEscape(target) },
		Unwrap:  passthrough,
	}
}

// AllOrigins wraps the upstream body in {"contents": "..."}.
func AllOrigins(base string) Proxy {
	if base == "" {
		base = AllOriginsBase
	}
	return Proxy{
		Name:    "allorigins",
		Rewrite: func(target string) string { return base + url.QueryEscape(target) },
		Unwrap:  unwrapContents,
	}
}

// Direct fetches the target without any proxy.
func Direct() Proxy {
	return Proxy{
		Name:    "direct",
		Rewrite: func(target string) string { return target },
		Unwrap:  passthrough,
	}
}

// ProxiesByName builds a chain from names like "corsproxy", "allorigins"
// and "direct". Order is preserved.
func ProxiesByName(names []string) ([]Proxy, error) {
	chain := make([]Proxy, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "corsproxy":
			chain = append(chain, CorsProxy(""))
		case "allorigins":
			chain = append(chain, AllOrigins(""))
		case "direct":
			chain = append(chain, Direct())
		case "":
		default:
			return nil, fmt.Errorf("unknown proxy %q (valid: corsproxy, allorigins, direct)", n)
		}
	}
	if len(chain) == 0 {
		return nil, errors.New("proxy chain is empty")
	}
	return chain, nil
}

// DefaultProxies is the chain used when nothing is configured.
func DefaultProxies() []Proxy {
	return []Proxy{CorsProxy(""), AllOrigins("")}
}

func passthrough(body []byte) ([]byte, error) {
	return body, nil
}

type contentsEnvelope struct {
	Contents *string `json:"contents"`
}

func unwrapContents(body []byte) ([]byte, error) {
	var env contentsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Contents == nil {
		return nil, errEmptyEnvelope
	}
	return []byte(*env.Contents), nil
}
