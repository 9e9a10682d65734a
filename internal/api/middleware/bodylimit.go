package middleware

import "net/http"

// LimitBody caps request bodies on the JSON routes. Project documents are
// the largest payload this API accepts, so the cap is sized for them; the
// websocket session stream is not affected since the limit applies to the
// HTTP body, not the upgraded connection.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
