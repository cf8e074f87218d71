package postgres

import (
	"errors"
	"fmt"
	"strings"

	usertoken "github.com/tokenmarket/usertoken"
)

const defaultListLimit = 10

// ListOpts shapes a listing query: pagination, ordering, and an optional
// case-insensitive substring search.
type ListOpts struct {
	Skip           int
	Limit          int
	OrderBy        usertoken.SortField
	OrderDirection usertoken.SortDirection
	Search         string
}

// A UserTokenStore runs every query the service makes
// against the user token collection.
type UserTokenStore struct {
	db *DB
}

// NewUserTokenStore constructs a UserTokenStore around db.
func NewUserTokenStore(db *DB) *UserTokenStore { return &UserTokenStore{db: db} }

// UpsertByEmail writes the profile fields for email,
// creating the record if none exists.
//
// The upsert is a single atomic statement, so concurrent logins for the
// same email cannot produce two records; the last write wins on the
// profile fields. The post-update record always returns.
func (s *UserTokenStore) UpsertByEmail(email, googleUserID, profilePic string) (usertoken.UserToken, error) {
	if email == "" || googleUserID == "" {
		return usertoken.UserToken{}, fmt.Errorf("%w: email and googleUserID are required", usertoken.ErrMissingData)
	}

	ut := usertoken.UserToken{
		Email:            email,
		GoogleUserID:     googleUserID,
		GoogleProfilePic: profilePic,
	}
	err := s.db.Upsert(&ut, "email", []string{"google_user_id", "google_profile_pic", "updated_at"})
	if err != nil {
		return usertoken.UserToken{}, err
	}

	// re-read so store-managed fields reflect the winning state
	return s.ByEmail(email)
}

// ByID looks up a user token by its record identifier.
//
// No match is ErrNotFound; callers translate that to a null payload,
// never an error response.
func (s *UserTokenStore) ByID(id uint) (usertoken.UserToken, error) {
	var ut usertoken.UserToken
	if err := s.db.Where("id = ?", id).First(&ut); err != nil {
		return usertoken.UserToken{}, err
	}

	return ut, nil
}

// ByEmail looks up a user token by the email natural key.
func (s *UserTokenStore) ByEmail(email string) (usertoken.UserToken, error) {
	var ut usertoken.UserToken
	if err := s.db.Where("email = ?", email).First(&ut); err != nil {
		return usertoken.UserToken{}, err
	}

	return ut, nil
}

// List retrieves user tokens ordered by the allow-listed sort field,
// ties always broken by ascending record id so identical primary keys
// paginate stably, then windowed by skip/limit.
//
// Search filters before the window applies,
// a case-insensitive substring match on email.
func (s *UserTokenStore) List(opts ListOpts) ([]usertoken.UserToken, error) {
	if err := opts.OrderBy.Valid(); err != nil {
		return nil, fmt.Errorf("%w: cannot order by %q", usertoken.ErrNotValid, opts.OrderBy)
	}

	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}

	if opts.Skip < 0 {
		opts.Skip = 0
	}

	dir := "DESC"
	if opts.OrderDirection == usertoken.SortAsc {
		dir = "ASC"
	}

	q := s.db.
		Order(fmt.Sprintf("%s %s, id ASC", opts.OrderBy, dir)).
		Limit(opts.Limit).
		Offset(opts.Skip)

	if opts.Search != "" {
		pattern := "%" + EscapeLike(opts.Search) + "%"
		q = q.Where("email ILIKE ?", pattern)
	}

	var uts []usertoken.UserToken
	err := q.Find(&uts)
	if errors.Is(err, usertoken.ErrNotFound) {
		return []usertoken.UserToken{}, nil
	}

	if err != nil {
		return nil, err
	}

	return uts, nil
}

// EscapeLike escapes the LIKE/ILIKE metacharacters in val
// so it matches only literally.
func EscapeLike(val string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(val)
}
