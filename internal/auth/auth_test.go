package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	u := core.User{ID: "u1", Email: "a@example.com", Username: "alice", Role: core.RoleAdmin}

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, core.RoleAdmin, claims.Role)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, core.Identity{OwnerID: "u1", Role: core.RoleAdmin}, claims.Identity())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	u := core.User{ID: "u1", Role: core.RoleUser}

	t.Run("expired", func(t *testing.T) {
		past := NewTokenIssuer(testSecret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue(u)
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, core.ErrUnauthorized)
		assert.True(t, IsExpired(err))
	})

	t.Run("other secret", func(t *testing.T) {
		token, err := NewTokenIssuer("another-secret-of-length", time.Hour).Issue(u)
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, core.ErrUnauthorized)
		assert.False(t, IsExpired(err))
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			UserID: "u1", Role: core.RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := issuer.Issue(core.User{ID: "u1", Role: "root"})
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := NewService(memory.New(), NewTokenIssuer(testSecret, time.Hour))
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "pw", Username: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, core.RoleUser, sess.User.Role)
	assert.NotEqual(t, "pw", sess.User.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "x", Username: "other"})
	assert.ErrorIs(t, err, core.ErrConflict)

	login, err := svc.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "pw"})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "alice", Password: "pw", Username: "a"}, "email"},
		{"no password", RegisterInput{Email: "a@b.c", Username: "a"}, "password"},
		{"blank username", RegisterInput{Email: "a@b.c", Password: "pw", Username: "  "}, "username"},
		{"bad role", RegisterInput{Email: "a@b.c", Password: "pw", Username: "a", Role: "root"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.in, time.Now())
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func newAuthRouter(issuer *TokenIssuer, roles ...core.Role) *gin.Engine {
	r := gin.New()
	r.GET("/me", Authenticate(issuer), Authorize(roles...), func(c *gin.Context) {
		id, _ := IdentityFromContext(c.Request.Context())
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"ownerId": id.OwnerID, "email": claims.Email})
	})
	return r
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userToken, err := issuer.Issue(core.User{ID: "u1", Email: "a@example.com", Role: core.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		roles  []core.Role
		want   int
	}{
		{"no header", "", []core.Role{core.RoleUser}, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + userToken, []core.Role{core.RoleUser}, http.StatusUnauthorized},
		{"bad token", "Bearer nope", []core.Role{core.RoleUser}, http.StatusUnauthorized},
		{"role not allowed", "Bearer " + userToken, []core.Role{core.RoleAdmin}, http.StatusForbidden},
		{"ok", "Bearer " + userToken, []core.Role{core.RoleUser, core.RoleAdmin}, http.StatusOK},
		{"lowercase scheme", "bearer " + userToken, []core.Role{core.RoleUser}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newAuthRouter(issuer, tt.roles...).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.want == http.StatusOK {
				assert.Equal(t, "u1", body["ownerId"])
				assert.Equal(t, "a@example.com", body["email"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestAuthorizeWithoutAuthenticate(t *testing.T) {
	r := gin.New()
	r.GET("/x", Authorize(core.RoleUser), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
