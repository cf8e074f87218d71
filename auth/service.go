package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tokenmarket/usertoken/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
)

const defaultTimeout = 10 * time.Second

// Service is an implementation of the AuthService interface defined in this package.
//
// One Service both issues and verifies session credentials;
// a single shared secret suffices since there is no second party to the signature.
type Service struct {
	config *oauth2.Config
	key    []byte
	parser *jwt.Parser
	expiry time.Duration
	l      logger.Logger

	// outbound call knobs, overridable in tests
	timeout     time.Duration
	client      *http.Client
	userinfoURL string
}

// An OptFn is a functional option configuring a Service when constructing a new one.
type OptFn func(*Service)

// WithEndpoint replaces the Google OAuth2 endpoint,
// pointing the code exchange at a different token server.
func WithEndpoint(endpoint oauth2.Endpoint) OptFn {
	return func(s *Service) { s.config.Endpoint = endpoint }
}

// WithHTTPClient sets the *http.Client used for outbound provider calls.
func WithHTTPClient(client *http.Client) OptFn {
	return func(s *Service) { s.client = client }
}

// WithTimeout bounds every outbound provider call.
func WithTimeout(timeout time.Duration) OptFn {
	return func(s *Service) { s.timeout = timeout }
}

// WithUserinfoEndpoint replaces the base URL the userinfo fetch hits.
func WithUserinfoEndpoint(url string) OptFn {
	return func(s *Service) { s.userinfoURL = url }
}

// NewService constructs a *Service.
//
// callbackURL must be the completeGoogleLogin endpoint on this server;
// it is sent both when building the consent URL and when exchanging the code,
// and must match the redirect URI registered with Google.
func NewService(jwtKey, googleClient, googleSecret, callbackURL string, expiry time.Duration, l logger.Logger, opts ...OptFn) (*Service, error) {
	if jwtKey == "" || googleClient == "" || googleSecret == "" || callbackURL == "" {
		return nil, fmt.Errorf(`%w: config cannot be ""`, ErrNotValid)
	}

	s := &Service{
		config: &oauth2.Config{
			ClientID:     googleClient,
			ClientSecret: googleSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				goauth2.UserinfoProfileScope,
				goauth2.UserinfoEmailScope,
			},
			Endpoint: google.Endpoint,
		},
		key:     []byte(jwtKey),
		parser:  &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}},
		expiry:  expiry,
		l:       l,
		timeout: defaultTimeout,
	}

	if s.l == nil {
		s.l = logger.New()
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}
