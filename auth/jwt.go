package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/logger"
)

// Claims is the payload carried by a session credential:
// the account snapshot taken at login plus the standard expiry.
type Claims struct {
	GoogleUser *usertoken.UserTokenResponse `json:"googleUser"`
	jwt.RegisteredClaims
}

// Issue signs a session credential embedding account, expiring after the
// configured window.
//
// The expiry timestamp returns even when signing fails, so callers can
// still report the window they attempted; an empty credential must be
// treated as fatal for the login.
func (s *Service) Issue(account *usertoken.UserTokenResponse) (string, time.Time, error) {
	now := time.Now()
	validUntil := now.Add(s.expiry)

	claims := Claims{
		GoogleUser: account,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(validUntil),
		},
	}

	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		s.l.Error("cannot sign auth token", &logger.LogContext{Error: err})
		return "", validUntil, fmt.Errorf("%w: %s", ErrUnexpected, err)
	}

	return credential, validUntil, nil
}

// Verify asserts the credential's signature checks out against the shared
// secret, its expiry is in the future, and an account is embedded in it.
func (s *Service) Verify(credential string) bool {
	claims, err := s.parse(credential)
	if err != nil {
		return false
	}

	return claims.GoogleUser != nil
}

// Decode returns the account embedded in the credential.
//
// Tampered, expired, or otherwise malformed credentials decode to nil;
// no parse failure propagates to callers.
func (s *Service) Decode(credential string) *usertoken.UserTokenResponse {
	claims, err := s.parse(credential)
	if err != nil {
		return nil
	}

	return claims.GoogleUser
}

// parse runs signature and expiry checks, distinguishing definitively
// invalid credentials from unexpected parse failures for callers that
// care about the difference.
func (s *Service) parse(credential string) (*Claims, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: no credential set", ErrNotValid)
	}

	claims := new(Claims)
	_, err := s.parser.ParseWithClaims(credential, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		s.l.Debug("cannot parse auth token", &logger.LogContext{Error: err})
		return nil, fmt.Errorf("%w: %s", ErrNotValid, err)
	}

	return claims, nil
}
