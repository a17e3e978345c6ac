package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const (
	apiKeyHeader = "api_key"
	userIDHeader = "X-User-ID"
)

// requireAPIKey authenticates every request by hashing the provided API key,
// looking it up, and performing a constant-time comparison to prevent timing
// attacks.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		hash := sha256.Sum256([]byte(key))
		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash[:]))
		switch {
		case errors.Is(err, ErrKeyNotFound):
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		case err != nil:
			// A lookup failure is not an authentication verdict.
			zctx.From(r.Context()).Error("API key lookup", zap.Error(err))
			writeErrorMessage(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded; the stored hash could differ
		// from what we computed if the repository returns a stale row.
		storedBytes, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash[:], storedBytes) != 1 {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withUser extracts the acting user's identity from the X-User-ID header.
// Account authentication lives at the edge; this service trusts the header.
func (h *Handler) withUser(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		fn(w, r, userID)
	}
}
