package httpapi

import (
	"net/http"
	"strings"

	"github.com/roach88/slotswap/internal/identity"
	"github.com/roach88/slotswap/internal/slot"
)

// authed rejects requests without a valid bearer token and stores the
// caller id in the request context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.writeError(w, r, slot.Errorf(slot.CodeUnauthenticated, "authorization required"))
			return
		}
		userID, err := s.verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
	}
}

func callerID(r *http.Request) string {
	return identity.UserIDFromContext(r.Context())
}
