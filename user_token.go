package usertoken

import "strconv"

// A UserToken is the record persisted for every Google account
// that completes a login.
//
// Email is the natural key: completing a login upserts on it,
// so at most one UserToken exists per email.
// UserTokens are never deleted by this service.
type UserToken struct {
	Model
	GoogleUserID     string `json:"googleUserID"`
	Email            string `gorm:"uniqueIndex" json:"email"`
	GoogleProfilePic string `json:"googleProfilePic"`
}

// A UserTokenResponse is the outward-facing projection of a UserToken.
// It is returned on every read endpoint and embedded in the session credential.
type UserTokenResponse struct {
	ID               string `json:"id"`
	GoogleUserID     string `json:"googleUserID"`
	Email            string `json:"email"`
	GoogleProfilePic string `json:"googleProfilePic"`
}

// Response projects the UserToken into its outward-facing shape.
func (ut UserToken) Response() *UserTokenResponse {
	return &UserTokenResponse{
		ID:               strconv.FormatUint(uint64(ut.ID), 10),
		GoogleUserID:     ut.GoogleUserID,
		Email:            ut.Email,
		GoogleProfilePic: ut.GoogleProfilePic,
	}
}
