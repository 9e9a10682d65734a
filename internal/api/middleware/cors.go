package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSOptions builds the browser policy for the API and the websocket
// session endpoint. Credentials are only allowed when explicit origins are
// configured: a wildcard origin downgrades to credential-less requests so
// a hostile page cannot ride a stored session.
func CORSOptions(origins []string) cors.Options {
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		origins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: !allowAll,
		MaxAge:           300,
	}
}
