package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured origins. origins is "*" or a comma-separated
// list; entries starting with "*." match any subdomain.
func CORS(origins string) func(http.Handler) http.Handler {
	allowedList := splitOrigins(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			allowed := allowedList[0]

			if reqOrigin != "" && isAllowed(reqOrigin, allowedList) {
				allowed = reqOrigin
			}

			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func isAllowed(reqOrigin string, configured []string) bool {
	for _, c := range configured {
		switch {
		case c == "*", c == reqOrigin:
			return true
		case strings.HasPrefix(c, "*."):
			host := reqOrigin
			if i := strings.Index(host, "://"); i >= 0 {
				host = host[i+3:]
			}
			if strings.HasSuffix(host, c[1:]) {
				return true
			}
		}
	}
	return false
}
