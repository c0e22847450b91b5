package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storetrail/storetrail-backend/api/middleware"
	"github.com/storetrail/storetrail-backend/internal/users"
	"github.com/storetrail/storetrail-backend/pkg/auth"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
)

var sessionJWT = config.JWTConfig{Secret: "secret", Issuer: "storetrail", ExpirationMinutes: 15}

type rotateCall struct {
	oldAccessID string
	provided    string
}

type fakeSessions struct {
	rotated   []rotateCall
	revoked   []string
	nextID    string
	nextToken string
	rotateErr error
	revokeErr error
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	f.rotated = append(f.rotated, rotateCall{oldAccessID, provided})
	return f.nextID, f.nextToken, f.rotateErr
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	return f.revokeErr
}

type fixedProfile struct {
	profile *users.UserDTO
	err     error
}

func (f fixedProfile) Me(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return f.profile, f.err
}

func signedInRequest(method, path, body string, userID uuid.UUID, accessID string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	ctx := middleware.WithSessionID(middleware.WithUserID(req.Context(), userID.String()), accessID)
	return req.WithContext(ctx)
}

func userProfile(role enums.UserRole) fixedProfile {
	return fixedProfile{profile: &users.UserDTO{ID: uuid.New(), Role: role}}
}

func TestAuthMe(t *testing.T) {
	userID := uuid.New()
	profiles := fixedProfile{profile: &users.UserDTO{ID: userID, OpenID: "oid-1", Role: enums.UserRoleUser}}

	rec := httptest.NewRecorder()
	AuthMe(profiles, nil).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)

	var out users.UserDTO
	decodeData(t, rec, &out)
	assert.Equal(t, userID, out.ID)
	assert.Equal(t, "oid-1", out.OpenID)
}

func TestAuthMeWithoutUser(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthMe(fixedProfile{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogout(t *testing.T) {
	sessions := &fakeSessions{}

	rec := httptest.NewRecorder()
	AuthLogout(sessions, nil).ServeHTTP(rec, signedInRequest(http.MethodPost, "/api/v1/auth/logout", "", uuid.New(), "access-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"access-1"}, sessions.revoked)

	rec = httptest.NewRecorder()
	AuthLogout(sessions, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, sessions.revoked, 1)
}

func TestAuthLogoutStoreFailure(t *testing.T) {
	sessions := &fakeSessions{revokeErr: errors.New("redis down")}

	rec := httptest.NewRecorder()
	AuthLogout(sessions, nil).ServeHTTP(rec, signedInRequest(http.MethodPost, "/api/v1/auth/logout", "", uuid.New(), "access-1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRefreshSignsCurrentRole(t *testing.T) {
	userID := uuid.New()
	sessions := &fakeSessions{nextID: "access-2", nextToken: "refresh-2"}
	profiles := fixedProfile{profile: &users.UserDTO{ID: userID, Role: enums.UserRoleAdmin}}

	rec := httptest.NewRecorder()
	req := signedInRequest(http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"refresh-1"}`, userID, "access-1")
	AuthRefresh(sessions, profiles, sessionJWT, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []rotateCall{{"access-1", "refresh-1"}}, sessions.rotated)

	var out refreshResponse
	decodeData(t, rec, &out)
	assert.Equal(t, "refresh-2", out.RefreshToken)

	claims, err := auth.Verify(sessionJWT, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	assert.Equal(t, "access-2", claims.ID)
}

func TestAuthRefreshFailures(t *testing.T) {
	cases := []struct {
		name     string
		sessions *fakeSessions
		profiles fixedProfile
		body     string
		want     int
		rotates  int
	}{
		{
			name:     "stale refresh token",
			sessions: &fakeSessions{rotateErr: session.ErrInvalidRefreshToken},
			profiles: userProfile(enums.UserRoleUser),
			body:     `{"refresh_token":"stale"}`,
			want:     http.StatusUnauthorized,
			rotates:  1,
		},
		{
			name:     "deleted user",
			sessions: &fakeSessions{},
			profiles: fixedProfile{err: pkgerrors.New(pkgerrors.CodeNotFound, "user not found")},
			body:     `{"refresh_token":"r"}`,
			want:     http.StatusUnauthorized,
		},
		{
			name:     "session store down",
			sessions: &fakeSessions{rotateErr: errors.New("redis down")},
			profiles: userProfile(enums.UserRoleUser),
			body:     `{"refresh_token":"r"}`,
			want:     http.StatusServiceUnavailable,
			rotates:  1,
		},
		{
			name:     "missing refresh token",
			sessions: &fakeSessions{},
			profiles: userProfile(enums.UserRoleUser),
			body:     `{}`,
			want:     http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := signedInRequest(http.MethodPost, "/api/v1/auth/refresh", tc.body, uuid.New(), "access-1")
			AuthRefresh(tc.sessions, tc.profiles, sessionJWT, nil).ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			assert.Len(t, tc.sessions.rotated, tc.rotates)
			assert.NotEmpty(t, decodeError(t, rec).Code)
		})
	}
}
