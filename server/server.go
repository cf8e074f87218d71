// Package server wires every component into the HTTP service
// and owns its lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/auth"
	"github.com/tokenmarket/usertoken/config"
	"github.com/tokenmarket/usertoken/http/middleware"
	"github.com/tokenmarket/usertoken/http/req"
	"github.com/tokenmarket/usertoken/http/resp"
	"github.com/tokenmarket/usertoken/http/router"
	"github.com/tokenmarket/usertoken/logger"
	"github.com/tokenmarket/usertoken/postgres"
)

// A UserTokenStorer runs the queries the HTTP handlers need
// against the user token collection.
type UserTokenStorer interface {
	UpsertByEmail(email, googleUserID, profilePic string) (usertoken.UserToken, error)
	ByID(id uint) (usertoken.UserToken, error)
	ByEmail(email string) (usertoken.UserToken, error)
	List(opts postgres.ListOpts) ([]usertoken.UserToken, error)
}

// A Server manages and exposes all components of the service to one another.
type Server struct {
	auth      auth.AuthService
	cfg       *config.Config
	l         logger.Logger
	parser    *req.Parser
	responder *resp.Responder
	store     UserTokenStorer
	srv       *http.Server
}

// New constructs a Server from already-initialized components
// and registers every route.
func New(cfg *config.Config, l logger.Logger, authSvc auth.AuthService, store UserTokenStorer) *Server {
	s := &Server{
		auth:   authSvc,
		cfg:    cfg,
		l:      l,
		parser: req.NewParser(),
		responder: resp.NewResponder(
			resp.WithLogger(l),
			resp.WithRootUrl(cfg.ClientHostURL),
		),
		store: store,
	}

	s.srv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// routes builds the Router, applying the every-request middleware stack
// and registering the user token endpoints under their shared prefix.
func (s *Server) routes() *router.Router {
	r := router.New(s.cfg.Env)
	r.OnEveryRequest(
		middleware.RequestID(),
		middleware.InjectIPAddress(),
		middleware.LogRequest(s.l),
		middleware.RateLimit(middleware.NewVisitors()),
		middleware.CORS(s.cfg.ClientHostURL.String()),
		middleware.CurrentAccount(s.auth.Decode),
	)

	r.HandleNotFound(func(w http.ResponseWriter, rx *http.Request) {
		s.responder.Json(w, rx, resp.Code(http.StatusNotFound), resp.Msg("Not found"))
	})

	ut := r.Subrouter("/user-token")
	ut.HandleRoutes([]router.Route{
		{
			Path:        "/initiateGoogleLogin",
			Method:      http.MethodPost,
			Handler:     s.initiateGoogleLogin,
			Middlewares: []middleware.Adapter{middleware.Idempotent(s.idempotencyCache(), nil)},
		},
		{Path: "/completeGoogleLogin", Method: http.MethodGet, Handler: s.completeGoogleLogin},
		{Path: "/single", Method: http.MethodGet, Handler: s.fetchSingle},
		{Path: "", Method: http.MethodGet, Handler: s.fetchAll},
	})

	return r
}

// idempotencyCache backs the login-initiation endpoint with Redis when
// configured, falling back to the in-process map.
func (s *Server) idempotencyCache() middleware.IdempotencyCacher {
	if s.cfg.RedisURL == "" {
		return middleware.NewIdemResMap()
	}

	opts, err := redis.ParseURL(s.cfg.RedisURL)
	if err != nil {
		s.l.Warn(fmt.Sprintf("ignoring invalid REDIS_URL: %s", err), nil)
		return middleware.NewIdemResMap()
	}

	return middleware.NewRedisCache(opts)
}

// Serve begins the web server.
//
// These, and (*Server).Shutdown, stop Serve:
//
// - os.Interrupt
// - syscall.SIGHUP
// - syscall.SIGINT
// - syscall.SIGQUIT
// - syscall.SIGTERM
func (s *Server) Serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan os.Signal, 1)
	signal.Notify(
		ch,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)

	go func() {
		sig := <-ch
		s.l.Info(fmt.Sprint("received shutdown signal: ", sig), nil)
		cancel()
	}()

	go func() {
		s.l.Info(fmt.Sprintf("running web server at %s", s.srv.Addr), nil)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.l.Error(fmt.Errorf("could not listen: %w", err).Error(), nil)
			cancel()
		}
	}()

	<-ctx.Done()
	return s.Shutdown()
}

// Shutdown shutdowns the web server, draining in-flight requests.
func (s *Server) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.l.Info("shutting down web server", nil)
	err := s.srv.Shutdown(shutdownCtx)
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not shutdown: %w", err)
	}

	s.l.Info("web server shutdown successfully", nil)
	return nil
}
