package auth

import (
	"context"
	"time"

	usertoken "github.com/tokenmarket/usertoken"
	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
)

// AuthService is the full surface the login flow requires:
// building the Google consent URL, exchanging the callback code,
// fetching the remote profile, and the session credential codec.
type AuthService interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, token *oauth2.Token) (*goauth2.Userinfo, error)

	Issue(account *usertoken.UserTokenResponse) (string, time.Time, error)
	Verify(credential string) bool
	Decode(credential string) *usertoken.UserTokenResponse
}
