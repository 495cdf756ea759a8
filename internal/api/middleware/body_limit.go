package middleware

import "net/http"

// DefaultMaxBodyBytes is the default request body cap (1MB).
const DefaultMaxBodyBytes = 1024 * 1024

// MaxBodySize limits the body of POST, PUT and PATCH requests to max bytes.
// Reads past the limit fail and the JSON decoder reports a 400.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				if r.Body != nil {
					r.Body = http.MaxBytesReader(w, r.Body, max)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
