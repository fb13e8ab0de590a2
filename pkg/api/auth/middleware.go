package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type RouteAuthMiddleware struct {
	routes      RouteAuthConfig
	defaultAuth *AuthConfig
}

type UserContextKey string

const UserContextKey_ UserContextKey = "user"

type Provider interface {
	// Authenticate is called to authenticate the request.
	// Provider must update the context with the user and call next.ServeHTTP or return a http error.
	// When required is false, requests without credentials pass through anonymously.
	Authenticate(next http.Handler, required bool) http.Handler
}

type User struct {
	UserID string
}

type AuthConfig struct {
	Provider Provider
	Required bool
}

// RouteAuthConfig is keyed by "METHOD /path". Use "*" as the method to match any method
// and a trailing "/*" to match a path prefix.
type RouteAuthConfig map[string]AuthConfig

func UserFromContext(ctx context.Context) (User, error) {
	user, ok := ctx.Value(UserContextKey_).(User)
	if !ok {
		return User{}, errors.New("user not found in context")
	}
	return user, nil
}

func NewRouteAuthMiddleware(defaultAuth *AuthConfig) *RouteAuthMiddleware {
	return &RouteAuthMiddleware{
		routes:      make(RouteAuthConfig),
		defaultAuth: defaultAuth,
	}
}

func (m *RouteAuthMiddleware) SetRouteAuthProvider(pattern string, provider Provider, required bool) *RouteAuthMiddleware {
	m.routes[pattern] = AuthConfig{
		Provider: provider,
		Required: required,
	}
	return m
}

func (m *RouteAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for OPTIONS (CORS preflight) requests
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		// Skip auth for docs endpoints
		if strings.HasPrefix(r.URL.Path, "/docs") {
			next.ServeHTTP(w, r)
			return
		}

		authConfig := m.getAuthConfigForRoute(r.URL.Path, r.Method)

		if authConfig == nil || authConfig.Provider == nil {
			// No auth configured, continue without authentication
			next.ServeHTTP(w, r)
			return
		}

		authConfig.Provider.Authenticate(next, authConfig.Required).ServeHTTP(w, r)
	})
}

func (m *RouteAuthMiddleware) getAuthConfigForRoute(path, method string) *AuthConfig {
	// Try to find exact match first
	if config, exists := m.routes[method+" "+path]; exists {
		return &config
	}
	if config, exists := m.routes["* "+path]; exists {
		return &config
	}

	for pattern, config := range m.routes {
		if matchesPattern(pattern, method, path) {
			return &config
		}
	}

	return m.defaultAuth
}

func matchesPattern(pattern, method, path string) bool {
	patternMethod, patternPath, ok := strings.Cut(pattern, " ")
	if !ok {
		return false
	}
	if patternMethod != "*" && patternMethod != method {
		return false
	}

	if prefix, ok := strings.CutSuffix(patternPath, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return patternPath == path
}
