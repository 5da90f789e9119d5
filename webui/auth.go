package webui

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"thumbnail_studio/logging"
)

const basicAuthRealm = `Basic realm="thumbnail studio", charset="UTF-8"`

// BasicAuth protects the API with a single shared password. Any user name
// is accepted.
type BasicAuth struct {
	hash    []byte
	limiter *RateLimiter
	logger  *logging.Logger
}

// NewBasicAuth hashes password once with bcrypt.
func NewBasicAuth(password string, logger *logging.Logger) (*BasicAuth, error) {
	if password == "" {
		return nil, fmt.Errorf("webui: password cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("webui: hash password: %w", err)
	}
	return &BasicAuth{
		hash:    hash,
		limiter: NewRateLimiter(5, 15*time.Minute, 30*time.Minute),
		logger:  logger.Named("auth"),
	}, nil
}

// Verify reports whether password matches.
func (a *BasicAuth) Verify(password string) bool {
	err := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		a.logger.Warn("password check failed", zap.Error(err))
	}
	return err == nil
}

// Middleware rejects requests without valid credentials. Clients that fail
// too often are blocked for a while.
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, wait := a.limiter.Allow(ip); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "too many failed attempts", http.StatusTooManyRequests)
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !a.Verify(password) {
			if ok {
				a.limiter.RecordFailure(ip)
				a.logger.Warn("rejected credentials", zap.String("ip", ip))
			}
			w.Header().Set("WWW-Authenticate", basicAuthRealm)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		a.limiter.Reset(ip)
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of r.RemoteAddr. chi's RealIP middleware
// has already applied X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
