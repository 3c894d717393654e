package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/cors"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

var (
	CorsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	CorsAllowedHeaders = []string{"Content-Type", "Authorization"}
)

// OriginPolicy decides which cross origins may call the API.
type OriginPolicy struct {
	allowed map[string]bool
}

func NewOriginPolicy(allowedOrigins []string) *OriginPolicy {
	policy := &OriginPolicy{allowed: make(map[string]bool, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		policy.allowed[origin] = true
	}
	return policy
}

func (policy *OriginPolicy) IsAllowed(origin string) bool {
	return policy.allowed[origin]
}

// Check passes requests without Origin, same-origin requests and allow-listed origins.
// Anything else panics with EC_FORBIDDEN.
func (policy *OriginPolicy) Check(r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || policy.IsAllowed(origin) || isSameOrigin(r, origin) {
		return
	}
	panic(kerror.Create("OriginNotAllowed", "Origin not allowed").
		WithErrorCode(kerror.EC_FORBIDDEN).
		With("origin", origin).
		WithoutStack())
}

func isSameOrigin(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// NewCorsMiddleware rejects disallowed origins, then lets rs/cors answer preflights and set the
// Access-Control-* headers (credentials allowed) for allow-listed origins.
func NewCorsMiddleware(ctx context.Context, allowedOrigins []string) func(http.Handler) http.Handler {
	policy := NewOriginPolicy(allowedOrigins)
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   CorsAllowedMethods,
		AllowedHeaders:   CorsAllowedHeaders,
		AllowCredentials: true,
		Logger:           &corsLogger{ctx: ctx},
	})
	return func(next http.Handler) http.Handler {
		inner := c.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.Check(r)
			inner.ServeHTTP(w, r)
		})
	}
}

// corsLogger routes rs/cors decisions to klogging at verbose level.
type corsLogger struct {
	ctx context.Context
}

func (l *corsLogger) Printf(format string, v ...interface{}) {
	klogging.Verbose(l.ctx).With("detail", strings.TrimSpace(fmt.Sprintf(format, v...))).Log("Cors", "")
}
