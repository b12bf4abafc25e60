package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const APIKeyHeader = "X-LIFTSYNC-KEY"

// APIKeyAuth lets through requests carrying the API key whose bcrypt hash it holds.
// Keys that passed the (slow) bcrypt check once are remembered in memory.
type APIKeyAuth struct {
	keyHash              string
	allowedPathsPrefixes []string

	mutex    sync.RWMutex
	verified map[string]bool
}

func NewAPIKeyAuth(keyHash string) *APIKeyAuth {
	return &APIKeyAuth{
		keyHash: keyHash,
		allowedPathsPrefixes: []string{
			// hosted images are linked directly from photos and profiles
			"/images/",
		},
		verified: map[string]bool{},
	}
}

func (h *APIKeyAuth) pathIsAlwaysAllowed(path string) bool {
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *APIKeyAuth) keyIsValid(key string) bool {
	h.mutex.RLock()
	ok := h.verified[key]
	h.mutex.RUnlock()
	if ok {
		return true
	}

	if !pkg.CheckAPIKeyHash(key, h.keyHash) {
		return false
	}

	h.mutex.Lock()
	h.verified[key] = true
	h.mutex.Unlock()
	return true
}

func (h *APIKeyAuth) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions || h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				log.Tracef("[missing key] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-api-key")
				return
			}

			if !h.keyIsValid(apiKey) {
				log.Warnf("[invalid key] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-api-key")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
