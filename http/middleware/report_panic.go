package middleware

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/tokenmarket/usertoken"
)

// ReportPanic recovers and reports panics to Sentry
// by wrapping the handler in sentryhttp.Handle.
//
// In development and testing environments panics are left alone
// so they surface in local output and test failures.
func ReportPanic(env usertoken.Environment) Adapter {
	if env.IsDevelopment() || env.IsTesting() {
		return NoopAdapter
	}

	sh := sentryhttp.New(sentryhttp.Options{
		Repanic:         false,
		WaitForDelivery: true,
	})

	return func(handler http.Handler) http.Handler {
		return sh.Handle(handler)
	}
}
