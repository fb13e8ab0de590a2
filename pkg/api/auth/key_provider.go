package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/apibillme/cache"
	"github.com/rs/zerolog"
)

// KeyAuthProvider verifies "Bearer <user>:<key>" or basic auth credentials
// against argon2id key hashes.
type KeyAuthProvider struct {
	hashByUserID map[string]string
	verified     cache.Cache
	logger       *zerolog.Logger
}

func NewKeyAuthProvider(hashByUserID map[string]string, cfg *Config, logger *zerolog.Logger) *KeyAuthProvider {
	return &KeyAuthProvider{
		hashByUserID: hashByUserID,
		verified:     cache.New(cfg.CacheSize, cache.WithTTL(cfg.CacheTTL)),
		logger:       logger,
	}
}

func NewKeyAuthProviderFromConfig(cfg *Config, logger *zerolog.Logger) (*KeyAuthProvider, error) {
	keys, err := cfg.ParseAPIKeys()
	if err != nil {
		return nil, err
	}
	return NewKeyAuthProvider(keys, cfg, logger), nil
}

// Enabled reports whether any key is configured.
func (p *KeyAuthProvider) Enabled() bool {
	return len(p.hashByUserID) > 0
}

// HashKey returns the argon2id hash to configure for key.
func HashKey(key string) (string, error) {
	return argon2id.CreateHash(key, argon2id.DefaultParams)
}

func (p *KeyAuthProvider) Authenticate(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := credentials(r)
		if !ok {
			if required {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !p.verify(userID, key) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user := User{
			UserID: userID,
		}

		ctx := context.WithValue(r.Context(), UserContextKey_, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *KeyAuthProvider) verify(userID, key string) bool {
	cached, ok := p.verified.Get(userID)
	if ok && subtle.ConstantTimeCompare([]byte(cached.(string)), []byte(key)) == 1 {
		return true
	}

	hash, ok := p.hashByUserID[userID]
	if !ok {
		return false
	}

	start := time.Now()
	match, err := argon2id.ComparePasswordAndHash(key, hash)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Compare key hash")
		return false
	}

	p.logger.Debug().
		Str("user_id", userID).
		Bool("match", match).
		Dur("took", time.Since(start)).
		Msg("Key verified")

	if match {
		p.verified.Set(userID, key)
	}
	return match
}

func credentials(r *http.Request) (string, string, bool) {
	if user, pass, ok := r.BasicAuth(); ok {
		return user, pass, user != "" && pass != ""
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "", false
	}

	user, key, ok := strings.Cut(strings.TrimPrefix(authHeader, "Bearer "), ":")
	if !ok || user == "" || key == "" {
		return "", "", false
	}
	return user, key, true
}
