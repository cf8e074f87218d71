package req

import (
	"fmt"
	"strings"

	usertoken "github.com/tokenmarket/usertoken"
)

// A ValidationError is an issue with a concrete value not matching the rule set on its field.
type ValidationError struct {
	Field string      `json:"field"`
	Got   interface{} `json:"got"`
	Rule  string      `json:"rule,omitempty"`
}

// ValidationErrors is a set of ValidationError.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msg := fmt.Sprintf("field=%q rule=%q got=%q", err.Field, err.Rule, fmt.Sprint(err.Got))
		msgs = append(msgs, msg)
	}

	return strings.Join(msgs, "\n")
}

func (ValidationErrors) Unwrap() error { return usertoken.ErrNotValid }
