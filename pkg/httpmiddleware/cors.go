package httpmiddleware

import (
	"net/http"
	"strings"
)

// The API surface is fixed, so the allowed methods and headers are too:
// the storefront web client sends JSON bodies plus the api_key and
// X-User-ID headers, and reads the request ID off responses.
const (
	corsAllowMethods  = "GET, POST, PATCH, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, api_key, X-User-ID"
	corsExposeHeaders = "X-Request-ID"
	corsMaxAge        = "86400"
)

// CORSConfig restricts which web origins may call the API.
type CORSConfig struct {
	// Origins lists the allowed origins. Empty or "*" allows any origin.
	Origins []string

	// AllowCredentials permits cookies and TLS client certs. It forces
	// per-origin echo, since the wildcard origin cannot be combined with
	// credentials.
	AllowCredentials bool
}

// CORS answers preflights for the storefront API and stamps allow headers
// on cross-origin responses.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.Origins) == 0
	allowed := make(map[string]string, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials {
		wildcard = false
	}

	allowOrigin := func(origin string) string {
		if wildcard {
			return "*"
		}
		return allowed[strings.ToLower(origin)]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin or non-browser caller.
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			match := allowOrigin(origin)

			// Preflight.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if match != "" {
					h.Set("Access-Control-Allow-Origin", match)
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					h.Set("Access-Control-Max-Age", corsMaxAge)
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if match != "" {
				h.Set("Access-Control-Allow-Origin", match)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
