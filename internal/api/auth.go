package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"camvault/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest validates the bearer token on the request and resolves
// it to a user record. A valid token whose subject no longer matches an
// account fails the same way as a bad token.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, errors.New("missing bearer token")
	}
	subject, err := h.Tokens.Verify(token)
	if err != nil {
		return models.User{}, err
	}
	user, ok, err := h.Store.FindUserByEmail(r.Context(), subject)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, errors.New("account not found")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return models.User{}, false
	}
	return user, true
}

// ExtractToken pulls the bearer credential from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
