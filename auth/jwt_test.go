package auth_test

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/auth"
	"github.com/tokenmarket/usertoken/logger"
)

func newTestService(t *testing.T, expiry time.Duration, opts ...auth.OptFn) *auth.Service {
	t.Helper()

	quiet := logger.New(logger.WithLogger(log.New(io.Discard, "", 0)))
	s, err := auth.NewService("test-secret", "test-client", "test-client-secret",
		"http://localhost:3300/user-token/completeGoogleLogin", expiry, quiet, opts...)
	require.Nil(t, err)

	return s
}

func testAccount() *usertoken.UserTokenResponse {
	return &usertoken.UserTokenResponse{
		ID:               "1",
		GoogleUserID:     "g1",
		Email:            "a@b.com",
		GoogleProfilePic: "p",
	}
}

func TestNewServiceRequiresConfig(t *testing.T) {
	for name, args := range map[string][4]string{
		"no-key":      {"", "client", "secret", "http://localhost/cb"},
		"no-client":   {"key", "", "secret", "http://localhost/cb"},
		"no-secret":   {"key", "client", "", "http://localhost/cb"},
		"no-callback": {"key", "client", "secret", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.NewService(args[0], args[1], args[2], args[3], time.Hour, nil)
			require.ErrorIs(t, err, auth.ErrNotValid)
		})
	}
}

func TestIssueAndVerify(t *testing.T) {
	// Arrange
	s := newTestService(t, time.Hour)

	// Act
	credential, validUntil, err := s.Issue(testAccount())

	// Assert
	require.Nil(t, err)
	require.NotZero(t, credential)
	require.WithinDuration(t, time.Now().Add(time.Hour), validUntil, 5*time.Second)
	require.True(t, s.Verify(credential))
}

func TestVerifyExpired(t *testing.T) {
	// Arrange
	s := newTestService(t, -time.Minute)

	// Act
	credential, validUntil, err := s.Issue(testAccount())

	// Assert
	require.Nil(t, err)
	require.True(t, validUntil.Before(time.Now()))
	require.False(t, s.Verify(credential))
	require.Nil(t, s.Decode(credential))
}

func TestVerifyTampered(t *testing.T) {
	// Arrange
	s := newTestService(t, time.Hour)
	credential, _, err := s.Issue(testAccount())
	require.Nil(t, err)

	// Act: flip one byte in the payload segment
	b := []byte(credential)
	b[len(b)/2] ^= 0x01
	tampered := string(b)

	// Assert
	require.False(t, s.Verify(tampered))
	require.Nil(t, s.Decode(tampered))
}

func TestVerifyWrongKey(t *testing.T) {
	// Arrange
	s := newTestService(t, time.Hour)
	credential, _, err := s.Issue(testAccount())
	require.Nil(t, err)

	other, err := auth.NewService("another-secret", "test-client", "test-client-secret",
		"http://localhost:3300/user-token/completeGoogleLogin", time.Hour, nil)
	require.Nil(t, err)

	// Assert
	require.False(t, other.Verify(credential))
}

func TestVerifyRequiresEmbeddedAccount(t *testing.T) {
	// Arrange: a signature-valid credential with no account in the payload
	s := newTestService(t, time.Hour)
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	credential, err := bare.SignedString([]byte("test-secret"))
	require.Nil(t, err)

	// Assert
	require.False(t, s.Verify(credential))
	require.Nil(t, s.Decode(credential))
}

func TestDecode(t *testing.T) {
	// Arrange
	s := newTestService(t, time.Hour)
	account := testAccount()
	credential, _, err := s.Issue(account)
	require.Nil(t, err)

	// Act
	decoded := s.Decode(credential)

	// Assert
	require.NotNil(t, decoded)
	require.Equal(t, account, decoded)

	// garbage never panics, only nils
	require.Nil(t, s.Decode(""))
	require.Nil(t, s.Decode("not.a.jwt"))
}
