package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/api/middleware"
	"github.com/storetrail/storetrail-backend/api/responses"
	"github.com/storetrail/storetrail-backend/api/validators"
	"github.com/storetrail/storetrail-backend/internal/users"
	"github.com/storetrail/storetrail-backend/pkg/auth"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type profileReader interface {
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

var errSessionMissing = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")

// AuthMe returns the caller's profile.
func AuthMe(profiles profileReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if profiles == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		profile, err := profiles.Me(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AuthLogout drops the refresh session behind the presented access token.
// The token itself stays valid until Auth next checks the session store.
func AuthLogout(sessions sessionTokenRotator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sessions == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}
		accessID := middleware.SessionIDFromContext(ctx)
		if accessID == "" {
			responses.WriteError(ctx, logg, w, errSessionMissing)
			return
		}

		if err := sessions.Revoke(ctx, accessID); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh trades a refresh token for a new token pair. The role comes
// from the users table, not the old token, so promotions apply on refresh.
func AuthRefresh(sessions sessionTokenRotator, profiles profileReader, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sessions == nil || profiles == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := refresh(ctx, sessions, profiles, cfg, body.RefreshToken)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}

func refresh(ctx context.Context, sessions sessionTokenRotator, profiles profileReader, cfg config.JWTConfig, refreshToken string) (*refreshResponse, error) {
	userID, ok := middleware.UserUUIDFromContext(ctx)
	accessID := middleware.SessionIDFromContext(ctx)
	if !ok || accessID == "" {
		return nil, errSessionMissing
	}

	profile, err := profiles.Me(ctx, userID)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
	}
	if err != nil {
		return nil, err
	}

	nextAccessID, nextRefresh, err := sessions.Rotate(ctx, accessID, refreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	access, err := auth.Sign(cfg, time.Now().UTC(), auth.Identity{
		UserID:    profile.ID,
		Role:      profile.Role,
		SessionID: nextAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign access token")
	}
	return &refreshResponse{AccessToken: access, RefreshToken: nextRefresh}, nil
}
