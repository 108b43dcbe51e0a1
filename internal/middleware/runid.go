// Package middleware provides HTTP middleware for the relay server.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Strob0t/TestRelay/internal/logger"
)

const headerRunID = "X-Run-ID"

// RunID is HTTP middleware that extracts X-Run-ID from the request header
// or generates a new one. The ID is stored in the context and set on the
// response header, so a webhook delivery and the run it spawns share one ID.
func RunID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRunID)
		if id == "" {
			id = generateID()
		}

		ctx := logger.WithRunID(r.Context(), id)
		w.Header().Set(headerRunID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateID returns a 16-byte random hex string (32 chars).
func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
