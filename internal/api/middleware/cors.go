package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/audit"
)

// CORS builds the cross-origin handler for the dashboard front end and warns
// once when the origin list is a wildcard.
func CORS(origins []string, log *zap.Logger) func(http.Handler) http.Handler {
	wildcard := false
	for _, origin := range origins {
		if origin == "*" || origin == ".*" {
			wildcard = true
			log.Warn("CORS wildcard detected",
				zap.String("origin", origin),
				zap.String("recommendation", "Use specific origins for production"),
			)
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type", "Authorization", ResponseRequestIDHeader,
			audit.HeaderEmail, audit.HeaderUser, audit.HeaderFallbackEmail, audit.HeaderFallbackUser,
		},
		ExposedHeaders: []string{ResponseRequestIDHeader, TraceIDHeader},
		// Credentialed requests are refused by browsers for a "*" origin.
		AllowCredentials: !wildcard,
	})
	return c.Handler
}
