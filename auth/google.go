package auth

import (
	"context"
	"fmt"

	"github.com/tokenmarket/usertoken/logger"
	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// AuthCodeURL builds the Google consent URL the client redirects users to.
//
// access_type=offline and prompt=consent ask Google for a refresh token
// on every login. No state nonce is sent; the flow is stateless between
// initiate and callback.
func (s *Service) AuthCodeURL() string {
	return s.config.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange swaps the authorization code Google sent to the callback
// for provider tokens.
//
// Any transport or provider failure is logged here and surfaced as
// ErrUnexpected; the caller must fail the login outright.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		s.l.Error("cannot exchange code with Google", &logger.LogContext{Error: err})
		return nil, fmt.Errorf("%w: %s", ErrUnexpected, err)
	}

	return token, nil
}

// FetchUser retrieves the Google profile for the exchanged token.
//
// A profile missing an email cannot be upserted and counts as empty.
func (s *Service) FetchUser(ctx context.Context, token *oauth2.Token) (*goauth2.Userinfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := []option.ClientOption{option.WithTokenSource(s.config.TokenSource(ctx, token))}
	if s.userinfoURL != "" {
		opts = append(opts, option.WithEndpoint(s.userinfoURL))
	}

	service, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		s.l.Error("cannot build Google userinfo service", &logger.LogContext{Error: err})
		return nil, fmt.Errorf("%w: %s", ErrUnexpected, err)
	}

	user, err := service.Userinfo.Get().Do()
	if err != nil {
		s.l.Error("cannot fetch Google userinfo", &logger.LogContext{Error: err})
		return nil, fmt.Errorf("%w: %s", ErrUnexpected, err)
	}

	if user == nil || user.Email == "" {
		return nil, fmt.Errorf("%w: empty profile returned for token", ErrUnexpected)
	}

	return user, nil
}
