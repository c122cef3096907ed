// Package http exposes the expense API over HTTP.
//
// Routing, binding and per-route auth live on a gin engine; cross-cutting
// concerns (request ids, security headers, CORS, rate limiting) wrap it as
// plain net/http middleware so they also cover gin's 404 and 405 replies.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers dispatch to.
type Deps struct {
	Expenses *services.ExpenseService
	Stats    *services.StatsService
	Auth     *auth.Service
	Tokens   *auth.TokenIssuer
	// Ready backs /readyz. Nil always reports ready.
	Ready  Pinger
	Logger *applog.Logger
}

// Options tune the HTTP surface.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	CORSOrigins    []string
	RateLimitRPM   int
	MaxUploadBytes int64
	TrustedProxies []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:           cfg.Addr(),
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustedProxies: cfg.TrustedProxies,
	}
}

type Server struct {
	http.Server
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.FromContext(context.Background())
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.WarnContext(context.Background(), "Ignoring trusted proxy", "error", err)
		}
	}
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM})

	// Outermost first: trace, headers, detection, CORS, rate limit, logger.
	var h http.Handler = NewRouter(opts, deps)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(logger)(h)
	h = limiter.Middleware(detector.ExtractClientIP)(h)
	h = security.CORS(security.DefaultCORSConfig(opts.CORSOrigins))(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(detector.ExtractClientIP, logger).Middleware(h)

	return &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		limiter: limiter,
	}
}

// Shutdown stops the rate limiter and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
