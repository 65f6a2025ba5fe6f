// Package environment carries the deployment environment (development,
// staging, production) through request contexts so that handlers and
// integrations can branch on it without plumbing extra parameters. The
// billing layer uses it to decide whether mock checkout fallbacks are
// permitted.
package environment

import (
	"context"
	"log/slog"
)

// Environment is the application deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

type contextKey struct{}

// WithContext attaches the environment to the context.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves the environment from the context. Returns the
// empty string when none was attached.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

// IsProduction reports whether e is the production environment.
// Accepts the short "prod" alias for operator convenience.
func (e Environment) IsProduction() bool {
	return e == Production || e == "prod"
}

// IsDevelopment reports whether e is the development environment.
// Accepts the short "dev" alias.
func (e Environment) IsDevelopment() bool {
	return e == Development || e == "dev"
}

// LoggerExtractor returns a context extractor that adds the environment
// to every log record when present.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env := FromContext(ctx); env != "" {
			return slog.String("env", string(env)), true
		}
		return slog.Attr{}, false
	}
}
