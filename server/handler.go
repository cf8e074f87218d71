package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/http/middleware"
	"github.com/tokenmarket/usertoken/http/req"
	"github.com/tokenmarket/usertoken/http/resp"
	"github.com/tokenmarket/usertoken/postgres"
)

const (
	msgGoogleVerification = "Unable to complete Google verification"
	msgGenerateAuthToken  = "Unable to generate auth token"
)

type googleVerification struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type initiatePayload struct {
	GoogleVerification googleVerification `json:"googleVerification"`
}

type singlePayload struct {
	UserToken *usertoken.UserTokenResponse `json:"userToken"`
}

type listPayload struct {
	UserTokens []*usertoken.UserTokenResponse `json:"userTokens"`
}

// initiateGoogleLogin hands the client the Google consent URL to send the user to.
//
// No server-side state ties this call to the eventual callback.
func (s *Server) initiateGoogleLogin(w http.ResponseWriter, r *http.Request) {
	payload := initiatePayload{
		GoogleVerification: googleVerification{AuthorizationURL: s.auth.AuthCodeURL()},
	}

	s.responder.Json(w, r, resp.Data(payload))
}

type completeGoogleLoginParams struct {
	Code string `schema:"code" validate:"required"`
}

// completeGoogleLogin is the OAuth callback: it exchanges the code,
// fetches the Google profile, upserts the record, issues a credential,
// sets the auth_token cookie, and redirects to the client app.
func (s *Server) completeGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var params completeGoogleLoginParams
	if err := s.parser.ParseQueryParams(r.URL.Query(), &params); err != nil {
		s.respondInvalid(w, r, err)
		return
	}

	token, err := s.auth.Exchange(r.Context(), params.Code)
	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("exchanging code: %w", err), resp.Msg(msgGoogleVerification))
		return
	}

	info, err := s.auth.FetchUser(r.Context(), token)
	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("fetching Google profile: %w", err), resp.Msg(msgGoogleVerification))
		return
	}

	record, err := s.store.UpsertByEmail(info.Email, info.Id, info.Picture)
	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("upserting %q: %w", info.Email, err))
		return
	}

	credential, validUntil, err := s.auth.Issue(record.Response())
	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("issuing credential: %w", err), resp.Msg(msgGenerateAuthToken))
		return
	}

	// The cookie is deliberately readable by the client app:
	// not HttpOnly so client-side code can attach it as a bearer token,
	// not Secure to allow the plain-HTTP local setup.
	cookie := &http.Cookie{
		Name:     middleware.AuthTokenCookie,
		Value:    credential,
		Path:     "/",
		Expires:  validUntil,
		HttpOnly: false,
		Secure:   false,
	}

	s.responder.Redirect(w, r, resp.Cookie(cookie), resp.Url(s.cfg.ClientHostURL.String()))
}

type fetchSingleParams struct {
	Email       string `schema:"email"`
	UserTokenID string `schema:"userTokenID"`
}

// fetchSingle returns one record resolved from, in order:
// the userTokenID query param, the email query param,
// or the identity decoded from the caller's credential.
// The decoded identity is re-read from the store so the caller sees
// current profile fields, not the snapshot frozen into the credential.
//
// A lookup that finds nothing is a success with a null payload.
func (s *Server) fetchSingle(w http.ResponseWriter, r *http.Request) {
	var params fetchSingleParams
	if err := s.parser.ParseQueryParams(r.URL.Query(), &params); err != nil {
		s.respondInvalid(w, r, err)
		return
	}

	if params.Email == "" && params.UserTokenID == "" && r.Header.Get("Authorization") == "" {
		s.respondInvalid(w, r, req.ValidationErrors{{
			Field: "userTokenID",
			Rule:  "at least one of the Authorization header, email, or userTokenID is required",
		}})
		return
	}

	switch {
	case params.UserTokenID != "":
		id, err := strconv.ParseUint(params.UserTokenID, 10, 64)
		if err != nil {
			// An unparseable identifier cannot match any record.
			s.responder.Json(w, r, resp.Data(singlePayload{}))
			return
		}

		record, err := s.store.ByID(uint(id))
		s.respondSingle(w, r, record, err)

	case params.Email != "":
		record, err := s.store.ByEmail(params.Email)
		s.respondSingle(w, r, record, err)

	default:
		account := middleware.AccountFromContext(r.Context())
		if account == nil {
			s.responder.Json(w, r, resp.Data(singlePayload{}))
			return
		}

		id, err := strconv.ParseUint(account.ID, 10, 64)
		if err != nil {
			s.responder.Json(w, r, resp.Data(singlePayload{}))
			return
		}

		record, err := s.store.ByID(uint(id))
		s.respondSingle(w, r, record, err)
	}
}

type fetchAllParams struct {
	Skip           string                  `schema:"skip"`
	Limit          string                  `schema:"limit"`
	OrderBy        usertoken.SortField     `schema:"orderBy" validate:"required,enum"`
	OrderDirection usertoken.SortDirection `schema:"orderDirection" validate:"omitempty,enum"`
	Search         string                  `schema:"search"`
}

// fetchAll returns a page of records, ordered by the allow-listed orderBy
// param and optionally filtered by a case-insensitive substring search.
//
// Malformed skip and limit values silently fall back to 0 and 10.
func (s *Server) fetchAll(w http.ResponseWriter, r *http.Request) {
	var params fetchAllParams
	if err := s.parser.ParseQueryParams(r.URL.Query(), &params); err != nil {
		s.respondInvalid(w, r, err)
		return
	}

	records, err := s.store.List(postgres.ListOpts{
		Skip:           atoiOr(params.Skip, 0),
		Limit:          atoiOr(params.Limit, 10),
		OrderBy:        params.OrderBy,
		OrderDirection: params.OrderDirection,
		Search:         params.Search,
	})
	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("listing records: %w", err))
		return
	}

	payload := listPayload{UserTokens: make([]*usertoken.UserTokenResponse, 0, len(records))}
	for _, record := range records {
		payload.UserTokens = append(payload.UserTokens, record.Response())
	}

	s.responder.Json(w, r, resp.Data(payload))
}

// respondSingle translates a store lookup into the single-record envelope,
// mapping not-found onto a null payload.
func (s *Server) respondSingle(w http.ResponseWriter, r *http.Request, record usertoken.UserToken, err error) {
	if errors.Is(err, usertoken.ErrNotFound) {
		s.responder.Json(w, r, resp.Data(singlePayload{}))
		return
	}

	if err != nil {
		s.responder.Err(w, r, fmt.Errorf("fetching record: %w", err))
		return
	}

	s.responder.Json(w, r, resp.Data(singlePayload{UserToken: record.Response()}))
}

// respondInvalid writes a 400 carrying any field-level validation errors.
func (s *Server) respondInvalid(w http.ResponseWriter, r *http.Request, err error) {
	var verrs req.ValidationErrors
	if errors.As(err, &verrs) {
		s.responder.Err(w, r, err, resp.Code(http.StatusBadRequest), resp.Msg("Invalid request"), resp.Verrs(verrs))
		return
	}

	s.responder.Err(w, r, err, resp.Code(http.StatusBadRequest), resp.Msg("Invalid request"))
}

// atoiOr parses val as a non-negative integer, falling back to def.
func atoiOr(val string, def int) int {
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return def
	}

	return n
}
