// README: Handshake authentication: bearer token -> verified id -> user record.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ridewave/internal/infra"
	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

type Authenticator struct {
	verifier infra.TokenVerifier
	users    user.Directory
}

func NewAuthenticator(verifier infra.TokenVerifier, users user.Directory) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// TokenFromRequest looks for the credential in the access_token header,
// then the Authorization bearer header, then the access_token query param.
func TokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get("access_token")); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// Authenticate verifies token and resolves the user. Every failure wraps
// ErrUnauthenticated.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	claims, err := a.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	u, err := a.users.Lookup(ctx, types.ID(claims.UID))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Identity{}, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !u.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: invalid role %q", ErrUnauthenticated, u.Role)
	}
	return Identity{UserID: u.ID, Role: u.Role, PushToken: u.PushToken}, nil
}

// AuthenticateRequest is Authenticate over the token found in r.
func (a *Authenticator) AuthenticateRequest(r *http.Request) (Identity, error) {
	return a.Authenticate(r.Context(), TokenFromRequest(r))
}
