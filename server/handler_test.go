package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"

	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/config"
	"github.com/tokenmarket/usertoken/logger"
	"github.com/tokenmarket/usertoken/postgres"
)

type stubAuth struct {
	authURL     string
	token       *oauth2.Token
	exchangeErr error
	user        *goauth2.Userinfo
	fetchErr    error
	credential  string
	validUntil  time.Time
	issueErr    error
	decoded     *usertoken.UserTokenResponse
}

func (s *stubAuth) AuthCodeURL() string { return s.authURL }

func (s *stubAuth) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	return s.token, s.exchangeErr
}

func (s *stubAuth) FetchUser(_ context.Context, _ *oauth2.Token) (*goauth2.Userinfo, error) {
	return s.user, s.fetchErr
}

func (s *stubAuth) Issue(_ *usertoken.UserTokenResponse) (string, time.Time, error) {
	return s.credential, s.validUntil, s.issueErr
}

func (s *stubAuth) Verify(credential string) bool { return s.Decode(credential) != nil }

func (s *stubAuth) Decode(credential string) *usertoken.UserTokenResponse {
	if credential == "" {
		return nil
	}
	return s.decoded
}

type stubStore struct {
	upserted    usertoken.UserToken
	upsertErr   error
	gotUpsert   []string
	records     map[uint]usertoken.UserToken
	listed      []usertoken.UserToken
	listErr     error
	gotListOpts postgres.ListOpts
}

func (s *stubStore) UpsertByEmail(email, googleUserID, profilePic string) (usertoken.UserToken, error) {
	s.gotUpsert = []string{email, googleUserID, profilePic}
	return s.upserted, s.upsertErr
}

func (s *stubStore) ByID(id uint) (usertoken.UserToken, error) {
	record, ok := s.records[id]
	if !ok {
		return usertoken.UserToken{}, usertoken.ErrNotFound
	}
	return record, nil
}

func (s *stubStore) ByEmail(email string) (usertoken.UserToken, error) {
	for _, record := range s.records {
		if record.Email == email {
			return record, nil
		}
	}
	return usertoken.UserToken{}, usertoken.ErrNotFound
}

func (s *stubStore) List(opts postgres.ListOpts) ([]usertoken.UserToken, error) {
	s.gotListOpts = opts
	return s.listed, s.listErr
}

func testServer(t *testing.T, authSvc *stubAuth, store *stubStore) *Server {
	t.Helper()

	cfg := &config.Config{
		Env:           usertoken.Testing,
		ClientHostURL: mustURL(t, "http://localhost:3000"),
		ServerHostURL: mustURL(t, "http://localhost:3300"),
		Port:          "3300",
	}

	l := logger.New(logger.WithLogger(log.New(io.Discard, "", 0)))
	return New(cfg, l, authSvc, store)
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()

	var e envelope
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

func TestInitiateGoogleLogin(t *testing.T) {
	// Arrange
	authSvc := &stubAuth{authURL: "https://accounts.google.com/o/oauth2/auth?client_id=test"}
	s := testServer(t, authSvc, &stubStore{})

	r := httptest.NewRequest(http.MethodPost, "/user-token/initiateGoogleLogin", nil)
	w := httptest.NewRecorder()

	// Act
	s.routes().ServeHTTP(w, r)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		GoogleVerification struct {
			AuthorizationURL string `json:"authorizationUrl"`
		} `json:"googleVerification"`
	}
	e := decodeEnvelope(t, w.Body)
	require.NoError(t, json.Unmarshal(e.Data, &data))
	require.Equal(t, authSvc.authURL, data.GoogleVerification.AuthorizationURL)
}

func TestCompleteGoogleLogin(t *testing.T) {
	record := usertoken.UserToken{
		Model:            usertoken.Model{ID: 1},
		GoogleUserID:     "g1",
		Email:            "a@b.com",
		GoogleProfilePic: "p",
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		validUntil := time.Now().Add(time.Hour).UTC()
		authSvc := &stubAuth{
			token:      &oauth2.Token{AccessToken: "x"},
			user:       &goauth2.Userinfo{Id: "g1", Email: "a@b.com", Picture: "p"},
			credential: "signed-credential",
			validUntil: validUntil,
		}
		store := &stubStore{upserted: record}
		s := testServer(t, authSvc, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token/completeGoogleLogin?code=abc", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "http://localhost:3000", w.Header().Get("Location"))
		require.Equal(t, []string{"a@b.com", "g1", "p"}, store.gotUpsert)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "auth_token", cookies[0].Name)
		require.Equal(t, "signed-credential", cookies[0].Value)
		require.Equal(t, validUntil.Unix(), cookies[0].Expires.Unix())
		require.False(t, cookies[0].HttpOnly)
		require.False(t, cookies[0].Secure)
	})

	t.Run("MissingCode", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/completeGoogleLogin", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ExchangeFails", func(t *testing.T) {
		// Arrange
		authSvc := &stubAuth{exchangeErr: errors.New("provider unavailable")}
		s := testServer(t, authSvc, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/completeGoogleLogin?code=abc", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeEnvelope(t, w.Body)
		require.Equal(t, "Unable to complete Google verification", e.Message)
	})

	t.Run("FetchUserFails", func(t *testing.T) {
		// Arrange
		authSvc := &stubAuth{
			token:    &oauth2.Token{AccessToken: "x"},
			fetchErr: errors.New("no email on profile"),
		}
		s := testServer(t, authSvc, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/completeGoogleLogin?code=abc", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeEnvelope(t, w.Body)
		require.Equal(t, "Unable to complete Google verification", e.Message)
	})

	t.Run("IssueFails", func(t *testing.T) {
		// Arrange
		authSvc := &stubAuth{
			token:    &oauth2.Token{AccessToken: "x"},
			user:     &goauth2.Userinfo{Id: "g1", Email: "a@b.com", Picture: "p"},
			issueErr: errors.New("signing failed"),
		}
		s := testServer(t, authSvc, &stubStore{upserted: record})

		r := httptest.NewRequest(http.MethodGet, "/user-token/completeGoogleLogin?code=abc", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeEnvelope(t, w.Body)
		require.Equal(t, "Unable to generate auth token", e.Message)
	})
}

func TestFetchSingle(t *testing.T) {
	record := usertoken.UserToken{
		Model:            usertoken.Model{ID: 7},
		GoogleUserID:     "g7",
		Email:            "seven@example.com",
		GoogleProfilePic: "pic",
	}

	single := func(t *testing.T, body io.Reader) *usertoken.UserTokenResponse {
		t.Helper()

		var data struct {
			UserToken *usertoken.UserTokenResponse `json:"userToken"`
		}
		e := decodeEnvelope(t, body)
		require.NoError(t, json.Unmarshal(e.Data, &data))
		return data.UserToken
	}

	t.Run("ByID", func(t *testing.T) {
		// Arrange
		store := &stubStore{records: map[uint]usertoken.UserToken{7: record}}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token/single?userTokenID=7", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		got := single(t, w.Body)
		require.NotNil(t, got)
		require.Equal(t, "7", got.ID)
		require.Equal(t, "seven@example.com", got.Email)
	})

	t.Run("ByIDMiss", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/single?userTokenID=404", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Nil(t, single(t, w.Body))
	})

	t.Run("UnparseableID", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/single?userTokenID=not-a-number", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Nil(t, single(t, w.Body))
	})

	t.Run("ByEmail", func(t *testing.T) {
		// Arrange
		store := &stubStore{records: map[uint]usertoken.UserToken{7: record}}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token/single?email=seven%40example.com", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		got := single(t, w.Body)
		require.NotNil(t, got)
		require.Equal(t, "seven@example.com", got.Email)
	})

	t.Run("IDBeatsEmail", func(t *testing.T) {
		// Arrange
		store := &stubStore{records: map[uint]usertoken.UserToken{7: record}}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token/single?userTokenID=7&email=other%40example.com", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		got := single(t, w.Body)
		require.NotNil(t, got)
		require.Equal(t, "7", got.ID)
	})

	t.Run("DecodedIdentity", func(t *testing.T) {
		// Arrange
		//
		// The credential carries the profile as of issuance; a later login
		// updated the stored record. The response must show the stored state.
		stale := record.Response()
		stale.GoogleProfilePic = "old-pic"

		current := record
		current.GoogleProfilePic = "new-pic"

		authSvc := &stubAuth{decoded: stale}
		store := &stubStore{records: map[uint]usertoken.UserToken{7: current}}
		s := testServer(t, authSvc, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token/single", nil)
		r.Header.Set("Authorization", "Bearer some-credential")
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		got := single(t, w.Body)
		require.NotNil(t, got)
		require.Equal(t, "7", got.ID)
		require.Equal(t, "new-pic", got.GoogleProfilePic)
	})

	t.Run("DecodedIdentityRecordGone", func(t *testing.T) {
		// Arrange
		authSvc := &stubAuth{decoded: record.Response()}
		s := testServer(t, authSvc, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/single", nil)
		r.Header.Set("Authorization", "Bearer some-credential")
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Nil(t, single(t, w.Body))
	})

	t.Run("UndecodableCredential", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/single", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Nil(t, single(t, w.Body))
	})

	t.Run("NothingToResolve", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token/single", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFetchAll(t *testing.T) {
	records := []usertoken.UserToken{
		{Model: usertoken.Model{ID: 2}, Email: "b@example.com"},
		{Model: usertoken.Model{ID: 1}, Email: "a@example.com"},
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		store := &stubStore{listed: records}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token?orderBy=email&orderDirection=asc&skip=5&limit=2&search=example", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, postgres.ListOpts{
			Skip:           5,
			Limit:          2,
			OrderBy:        usertoken.SortFieldEmail,
			OrderDirection: usertoken.SortAsc,
			Search:         "example",
		}, store.gotListOpts)

		var data struct {
			UserTokens []*usertoken.UserTokenResponse `json:"userTokens"`
		}
		e := decodeEnvelope(t, w.Body)
		require.NoError(t, json.Unmarshal(e.Data, &data))
		require.Len(t, data.UserTokens, 2)
		require.Equal(t, "2", data.UserTokens[0].ID)
		require.Equal(t, "1", data.UserTokens[1].ID)
	})

	t.Run("MalformedPaging", func(t *testing.T) {
		// Arrange
		store := &stubStore{}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token?orderBy=email&skip=NaN&limit=-3", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 0, store.gotListOpts.Skip)
		require.Equal(t, 10, store.gotListOpts.Limit)
	})

	t.Run("MissingOrderBy", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownOrderBy", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{})

		r := httptest.NewRequest(http.MethodGet, "/user-token?orderBy=google_user_id", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("StoreFails", func(t *testing.T) {
		// Arrange
		store := &stubStore{listErr: errors.New("connection reset")}
		s := testServer(t, &stubAuth{}, store)

		r := httptest.NewRequest(http.MethodGet, "/user-token?orderBy=email", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeEnvelope(t, w.Body)
		require.Equal(t, "Something went wrong", e.Message)
	})

	t.Run("EmptyResult", func(t *testing.T) {
		// Arrange
		s := testServer(t, &stubAuth{}, &stubStore{listed: []usertoken.UserToken{}})

		r := httptest.NewRequest(http.MethodGet, "/user-token?orderBy=email", nil)
		w := httptest.NewRecorder()

		// Act
		s.routes().ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w.Body)
		require.JSONEq(t, `{"userTokens":[]}`, string(e.Data))
	})
}
