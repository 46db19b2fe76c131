package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := NewService("secret")
	p := Payload{UserID: "u-1", Purpose: PurposeConfirm}

	tok, err := svc.Issue(p)
	require.NoError(t, err)

	got, err := svc.Verify(tok, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService("secret").WithClock(fixedClock(issuedAt))
	tok, err := svc.Issue(Payload{UserID: "u-1", Purpose: PurposeReset})
	require.NoError(t, err)

	within := svc.WithClock(fixedClock(issuedAt.Add(59 * time.Minute)))
	_, err = within.Verify(tok, time.Hour)
	assert.NoError(t, err)

	later := svc.WithClock(fixedClock(issuedAt.Add(61 * time.Minute)))
	_, err = later.Verify(tok, time.Hour)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyInvalid(t *testing.T) {
	svc := NewService("secret")
	tok, err := svc.Issue(Payload{UserID: "u-1", Purpose: PurposeConfirm})
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, err := NewService("other").Verify(tok, time.Hour)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token", time.Hour)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := svc.Verify(tok+"x", time.Hour)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("missing user id", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"pur": "confirm",
			"iat": time.Now().Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(raw, time.Hour)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"uid": "u-1",
			"pur": "confirm",
			"iat": time.Now().Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(raw, time.Hour)
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
