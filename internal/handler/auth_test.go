package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feldbank/banking-api/internal/auth"
	"github.com/feldbank/banking-api/internal/domain"
)

type mockUserRepo struct {
	user        *domain.User
	err         error
	lastLoginAt *time.Time
}

func (m *mockUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return m.user, m.err
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ string, at time.Time) error {
	m.lastLoginAt = &at
	return nil
}

func loginUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		Username:     "alice",
		PasswordHash: string(hash),
		FirstName:    "Alice",
		LastName:     "Anders",
	}
}

func TestLogin(t *testing.T) {
	const secret = "test-secret"

	tests := []struct {
		name       string
		repo       *mockUserRepo
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid credentials",
			repo:       &mockUserRepo{user: loginUser(t, "hunter22")},
			body:       `{"username": "alice", "password": "hunter22"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			repo:       &mockUserRepo{user: loginUser(t, "hunter22")},
			body:       `{"username": "alice", "password": "wrong"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "unknown user",
			repo:       &mockUserRepo{err: domain.ErrNotFound},
			body:       `{"username": "nobody", "password": "hunter22"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "missing fields",
			repo:       &mockUserRepo{},
			body:       `{"username": "alice"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			repo:       &mockUserRepo{},
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(tc.repo, secret, time.Hour)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Login(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantCode != "" {
				var resp errorEnvelope
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			var resp loginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "alice", resp.User.Username)

			claims, err := auth.ValidateToken(resp.Token, secret)
			require.NoError(t, err)
			assert.Equal(t, "alice", claims.Username)

			// Login stamps the last-login time best-effort.
			assert.NotNil(t, tc.repo.lastLoginAt)
		})
	}
}
