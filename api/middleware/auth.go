package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/storetrail/storetrail-backend/api/responses"
	"github.com/storetrail/storetrail-backend/pkg/auth"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

type verifyFunc func(config.JWTConfig, string) (*auth.Claims, error)

// Auth admits requests carrying a live access token whose session has not
// been revoked. A nil sessions checker skips the revocation lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, auth.Verify, sessions, logg)
}

// AuthAllowExpired admits correctly signed tokens past their expiry. Logout
// and refresh sit behind it.
func AuthAllowExpired(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, auth.VerifyLapsed, nil, logg)
}

func authenticate(cfg config.JWTConfig, verify verifyFunc, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := claimsFor(ctx, r, cfg, verify, sessions)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims, logg)))
		})
	}
}

func claimsFor(ctx context.Context, r *http.Request, cfg config.JWTConfig, verify verifyFunc, sessions session.AccessSessionChecker) (*auth.Claims, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := verify(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}

	live, err := sessions.HasSession(ctx, claims.ID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// bearerToken accepts "Bearer <token>" in any case as well as a bare token.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return raw
}

func withClaims(ctx context.Context, claims *auth.Claims, logg *logger.Logger) context.Context {
	userID, role := claims.UserID.String(), string(claims.Role)
	ctx = WithSessionID(WithRole(WithUserID(ctx, userID), role), claims.ID)
	if logg == nil {
		return ctx
	}
	return logg.WithRole(logg.WithUserID(ctx, userID), role)
}
