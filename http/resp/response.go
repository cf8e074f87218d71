package resp

import (
	"net/http"
	"net/url"

	"github.com/tokenmarket/usertoken/http/req"
)

// A Fn is a functional option that mutates the state of the Response.
type Fn func(Responder, *Response) error

// A Response is the internal object a Responder response method builds
// while applying all functional options.
type Response struct {
	w      http.ResponseWriter
	r      *http.Request
	code   int
	cookie *http.Cookie
	data   interface{}
	msg    string
	url    *url.URL
	verrs  req.ValidationErrors
}

// Code sets the response status code.
func Code(c int) Fn {
	return func(_ Responder, r *Response) error {
		r.code = c
		return nil
	}
}

// Cookie attaches a cookie to set on the response.
func Cookie(c *http.Cookie) Fn {
	return func(_ Responder, r *Response) error {
		r.cookie = c
		return nil
	}
}

// Data stores the provided value for writing to the client.
//
// Used with Responder.Json.
func Data(d interface{}) Fn {
	return func(_ Responder, r *Response) error {
		r.data = d
		return nil
	}
}

// Msg sets the client-safe message written on failure responses.
func Msg(m string) Fn {
	return func(_ Responder, r *Response) error {
		r.msg = m
		return nil
	}
}

// Url parses raw and sets it as the redirect destination.
func Url(raw string) Fn {
	return func(_ Responder, r *Response) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}

		r.url = u
		return nil
	}
}

// Verrs attaches field-level validation errors for the client.
func Verrs(verrs req.ValidationErrors) Fn {
	return func(_ Responder, r *Response) error {
		r.verrs = verrs
		return nil
	}
}
