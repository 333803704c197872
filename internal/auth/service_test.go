package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/whiteboard-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		want     error
	}{
		{"bad email", "Alice", "not-an-email", "password123", ErrInvalidEmail},
		{"display form email", "Alice", "Alice <alice@example.com>", "password123", ErrInvalidEmail},
		{"empty name", "  ", "alice@example.com", "password123", ErrInvalidName},
		{"short password", "Alice", "alice@example.com", "12345", ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_NormalizesEmailAndRejectsDuplicates(t *testing.T) {
	req := require.New(t)
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, " Alice ", " Alice@Example.com ", "password123")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal("alice@example.com", user.Email)
	req.Equal("Alice", user.Name)

	_, _, err = svc.Register(ctx, "Other", "alice@example.com", "password123")
	req.ErrorIs(err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Bob", "bob@example.com", "password123")
	req.NoError(err)

	_, _, err = svc.Login(ctx, "bob@example.com", "wrong-password")
	req.ErrorIs(err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	req.ErrorIs(err, ErrInvalidCredentials)

	user, token, err := svc.Login(ctx, "BOB@example.com", "password123")
	req.NoError(err)
	req.Equal("Bob", user.Name)

	identity, err := svc.Verify(token)
	req.NoError(err)
	req.Equal(user.ID, identity.UserID)
	req.Equal("bob@example.com", identity.Email)
	req.Equal("Bob", identity.Name)
}

func TestChangePassword(t *testing.T) {
	req := require.New(t)
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Carol", "carol@example.com", "password123")
	req.NoError(err)

	req.ErrorIs(svc.ChangePassword(ctx, user.ID, "nope", "newpassword"), ErrInvalidCredentials)
	req.ErrorIs(svc.ChangePassword(ctx, user.ID, "password123", "short"), ErrInvalidPassword)
	req.NoError(svc.ChangePassword(ctx, user.ID, "password123", "newpassword"))

	_, _, err = svc.Login(ctx, "carol@example.com", "newpassword")
	req.NoError(err)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newTestAuthService(t)

	other := &JWTConfig{Secret: []byte("other-secret"), Issuer: "test", Audience: "test", TTL: time.Hour}
	foreign, err := GenerateToken(other, TokenSubject{UserID: 1})
	require.NoError(t, err)

	expiredCfg := *svc.jwtConfig
	expiredCfg.TTL = -time.Minute
	expired, err := GenerateToken(&expiredCfg, TokenSubject{UserID: 1})
	require.NoError(t, err)

	wrongAudCfg := *svc.jwtConfig
	wrongAudCfg.Audience = "elsewhere"
	wrongAud, err := GenerateToken(&wrongAudCfg, TokenSubject{UserID: 1})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":        "not.a.token",
		"foreign secret": foreign,
		"expired":        expired,
		"wrong audience": wrongAud,
		"alg none":       unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(tok)
			require.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " Dave@Example.COM ", want: "dave@example.com"},
		{in: "first.last+tag@sub.example.org", want: "first.last+tag@sub.example.org"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "no-at-sign.example.com", wantErr: true},
		{in: "two@@example.com", wantErr: true},
		{in: "Dave <dave@example.com>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
