// Package resp writes structured HTTP responses.
//
// Every JSON body shares one envelope: successes carry "data",
// failures carry a client-safe "message" and, for validation issues,
// field-level "validationErrors". Internal error detail is only logged.
package resp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/tokenmarket/usertoken/http/req"
	"github.com/tokenmarket/usertoken/logger"
)

const defaultErrMsg = "Something went wrong"

// Responder maintains reusable pieces for responding to HTTP requests.
// These are the forms of response a Responder can execute:
//
//	Json
//	Redirect
//	Err
//
// A single instance configured at startup suffices for the application.
type Responder struct {
	logger logger.Logger

	// Pool of *bytes.Buffer to prerender responses into
	pool *sync.Pool

	// Root URL redirects fall back to when no destination is set
	rootUrl *url.URL
}

// A ResponderOptFn is a functional option configuring a Responder when constructing a new one.
type ResponderOptFn func(*Responder)

// WithLogger sets the logger.Logger the Responder logs failure states with.
func WithLogger(l logger.Logger) ResponderOptFn {
	return func(d *Responder) { d.logger = l }
}

// WithRootUrl sets the URL redirects without an explicit destination go to.
func WithRootUrl(u *url.URL) ResponderOptFn {
	return func(d *Responder) { d.rootUrl = u }
}

// NewResponder constructs a *Responder using the ResponderOptFns passed in.
func NewResponder(opts ...ResponderOptFn) *Responder {
	d := &Responder{
		pool: &sync.Pool{New: func() interface{} { return new(bytes.Buffer) }},
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.New()
	}

	return d
}

type jsonSchema struct {
	Data             interface{}          `json:"data,omitempty"`
	Message          string               `json:"message,omitempty"`
	ValidationErrors req.ValidationErrors `json:"validationErrors,omitempty"`
}

// Json responds with data in JSON format, collating it from Data()
// and setting appropriate headers.
//
// Standard 2xx codes produce {"data": ...}; 4xx and 5xx codes produce
// {"message": ...} plus any validation errors attached with Verrs().
func (doer *Responder) Json(w http.ResponseWriter, r *http.Request, opts ...Fn) error {
	rr, err := doer.do(w, r, opts...)
	if err != nil {
		return err
	}

	if rr.code == 0 {
		rr.code = http.StatusOK
	}

	payload := jsonSchema{Data: rr.data}
	if rr.code >= http.StatusBadRequest {
		payload = jsonSchema{Message: rr.msg, ValidationErrors: rr.verrs}
		if payload.Message == "" {
			payload.Message = defaultErrMsg
		}
	}

	b := doer.pool.Get().(*bytes.Buffer)
	b.Reset()
	defer doer.pool.Put(b)

	if err := json.NewEncoder(b).Encode(payload); err != nil {
		http.Error(w, defaultErrMsg, http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(rr.code)
	if _, err := b.WriteTo(w); err != nil {
		return err
	}

	return nil
}

// Err logs the error causing the failure state and writes a JSON body
// carrying only the client-safe message set with Msg().
//
// The default status code is 500; override with Code() for client faults.
func (doer *Responder) Err(w http.ResponseWriter, r *http.Request, err error, opts ...Fn) error {
	if err != nil {
		doer.logger.Error(err.Error(), &logger.LogContext{Error: err, Request: r})
	}

	rr, nested := doer.do(w, r, opts...)
	if nested != nil {
		return nested
	}

	if rr.code == 0 {
		rr.code = http.StatusInternalServerError
	}

	return doer.Json(w, r, Code(rr.code), Msg(rr.msg), Verrs(rr.verrs))
}

// Redirect issues an HTTP redirect, given Url() set the redirect destination.
// If Url() is not passed in opts, the Responder's root URL is the destination.
//
// Any cookie attached with Cookie() is set before redirecting.
// The default response status code is 302.
func (doer *Responder) Redirect(w http.ResponseWriter, r *http.Request, opts ...Fn) error {
	rr, err := doer.do(w, r, opts...)
	if err != nil {
		return err
	}

	if rr.url == nil {
		rr.url = doer.rootUrl
	}

	if rr.url == nil {
		return fmt.Errorf("%w: cannot redirect, no destination URL", ErrMissingData)
	}

	if rr.cookie != nil {
		http.SetCookie(w, rr.cookie)
	}

	if rr.code == 0 {
		rr.code = http.StatusFound
	}

	http.Redirect(w, r, rr.url.String(), rr.code)
	return nil
}

// do applies every Fn to a fresh *Response.
func (doer *Responder) do(w http.ResponseWriter, r *http.Request, opts ...Fn) (*Response, error) {
	rr := &Response{w: w, r: r}
	for _, opt := range opts {
		if err := opt(*doer, rr); err != nil {
			return nil, err
		}
	}

	return rr, nil
}
