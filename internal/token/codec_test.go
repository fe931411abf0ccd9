package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testCodecCfg() Config {
	return Config{
		Secret:   "unit-test-secret",
		Issuer:   "auth-service",
		Audience: []string{"api-gateway"},
	}
}

func TestNew_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Secret: ""}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptySecret)

	_, err = New(Config{Secret: "   "}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(testCodecCfg(), func() time.Time { return now })
	require.NoError(t, err)

	const ttl = 15 * time.Minute
	roles := []string{"admin", "user"}

	signed, issued, err := c.Issue("subject-1", roles, ttl)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := c.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "subject-1", claims.Subject)
	require.Equal(t, roles, claims.Roles)
	require.Equal(t, ttl, claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time))
	require.Equal(t, issued.ExpiresAt.Time, claims.ExpiresAt.Time)
	require.NotEmpty(t, claims.ID)
}

func TestIssue_EmptyRoles(t *testing.T) {
	t.Parallel()

	c, err := New(testCodecCfg(), nil)
	require.NoError(t, err)

	signed, _, err := c.Issue("subject-1", nil, time.Minute)
	require.NoError(t, err)

	claims, err := c.Verify(signed)
	require.NoError(t, err)
	require.Empty(t, claims.Roles)
}

func TestIssue_JTIUnique_SameInstant(t *testing.T) {
	t.Parallel()

	// Часы заморожены: оба токена выпускаются в один и тот же момент
	// для одного subject/roles — строки всё равно обязаны различаться.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(testCodecCfg(), func() time.Time { return now })
	require.NoError(t, err)

	s1, c1, err := c.Issue("subject-1", []string{"user"}, time.Hour)
	require.NoError(t, err)
	s2, c2, err := c.Issue("subject-1", []string{"user"}, time.Hour)
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
	require.NotEqual(t, c1.ID, c2.ID)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	c, err := New(testCodecCfg(), func() time.Time { return now })
	require.NoError(t, err)

	const ttl = 30 * time.Second
	signed, _, err := c.Issue("subject-1", nil, ttl)
	require.NoError(t, err)

	// За мгновение до истечения токен ещё валиден.
	now = issuedAt.Add(ttl - time.Second)
	_, err = c.Verify(signed)
	require.NoError(t, err)

	// expiresAt == now — уже просрочен (leeway нет).
	now = issuedAt.Add(ttl)
	_, err = c.Verify(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExpired)

	now = issuedAt.Add(ttl + time.Hour)
	_, err = c.Verify(signed)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c, err := New(testCodecCfg(), nil)
	require.NoError(t, err)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Verify(raw)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrMalformed, "raw=%q", raw)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	c1, err := New(testCodecCfg(), nil)
	require.NoError(t, err)

	other := testCodecCfg()
	other.Secret = "another-secret"
	c2, err := New(other, nil)
	require.NoError(t, err)

	signed, _, err := c1.Issue("subject-1", nil, time.Hour)
	require.NoError(t, err)

	_, err = c2.Verify(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_WrongAlgRejected(t *testing.T) {
	t.Parallel()

	c, err := New(testCodecCfg(), nil)
	require.NoError(t, err)

	// Токен с иным заявленным алгоритмом, подписанный тем же ключом.
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-1",
			Issuer:    "auth-service",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	cfg := testCodecCfg()
	cfg.Issuer = "someone-else"
	alien, err := New(cfg, nil)
	require.NoError(t, err)

	c, err := New(testCodecCfg(), nil)
	require.NoError(t, err)

	signed, _, err := alien.Issue("subject-1", nil, time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}
