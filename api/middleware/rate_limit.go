package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/brandinbox/api/responses"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

const defaultRateLimitMessage = "Too many attempts. Please try again later."

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy caps requests on one route per fixed window. Every scope
// with a positive limit keeps its own counter; a zero limit disables it.
type RateLimitPolicy struct {
	Name   string
	Window time.Duration

	// IPLimit counts by caller address.
	IPLimit int
	// EmailLimit counts by the hashed "email" field of a JSON body.
	EmailLimit int
	// UserLimit counts by authenticated user and requires Auth upstream.
	UserLimit int

	Message string
}

// LoginPolicy throttles credential attempts by address and by email.
func LoginPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	return RateLimitPolicy{Name: name, Window: window, IPLimit: ipLimit, EmailLimit: emailLimit}
}

// MediaGenerationPolicy throttles generate-media per seller. Each accepted
// call fans out to the media pipeline, so the budget is per user not per listing.
func MediaGenerationPolicy(window time.Duration, userLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		Name:      "generate-media",
		Window:    window,
		UserLimit: userLimit,
		Message:   "Media generation limit reached. Please wait before regenerating.",
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0 || p.UserLimit > 0)
}

func (p RateLimitPolicy) name() string {
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		return name
	}
	return "default"
}

func (p RateLimitPolicy) key(scope, subject string) string {
	return fmt.Sprintf("rl:%s:%s:%s", scope, p.name(), subject)
}

func (p RateLimitPolicy) message() string {
	if p.Message != "" {
		return p.Message
	}
	return defaultRateLimitMessage
}

// rateCheck is one counter a request must stay under.
type rateCheck struct {
	scope   string
	subject string
	limit   int
}

// RateLimit enforces policy with fixed-window counters in store. A nil store
// or a disabled policy passes requests through untouched.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks, err := policy.checksFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, check := range checks {
				count, err := store.IncrWithTTL(ctx, policy.key(check.scope, check.subject), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(check.limit) {
					respondRateLimited(ctx, logg, w, policy, check, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checksFor resolves the counters for r. Reading the email rewinds the body
// so handlers still see it.
func (p RateLimitPolicy) checksFor(r *http.Request) ([]rateCheck, error) {
	var checks []rateCheck
	if p.IPLimit > 0 {
		if ip := clientIP(r); ip != "" {
			checks = append(checks, rateCheck{scope: "ip", subject: ip, limit: p.IPLimit})
		}
	}
	if p.UserLimit > 0 {
		if userID := UserIDFromContext(r.Context()); userID != 0 {
			checks = append(checks, rateCheck{scope: "user", subject: strconv.FormatUint(uint64(userID), 10), limit: p.UserLimit})
		}
	}
	if p.EmailLimit > 0 && r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if email := normalizeEmail(extractEmail(body)); email != "" {
			checks = append(checks, rateCheck{scope: "email", subject: hashValue(email), limit: p.EmailLimit})
		}
	}
	return checks, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, check rateCheck, count int64) {
	if logg != nil {
		subjectField := check.scope
		switch check.scope {
		case "email":
			subjectField = "email_hash"
		case "user":
			subjectField = "user_id"
		}
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          check.scope,
			"policy":         policy.name(),
			subjectField:     check.subject,
			"attempts":       count,
			"limit":          check.limit,
			"window_seconds": int(policy.Window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	if seconds := int(policy.Window.Seconds()); seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, policy.message()))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
