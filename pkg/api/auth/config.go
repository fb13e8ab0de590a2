package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	// APIKeys maps user IDs to argon2id hashes of their API keys, as JSON or
	// semicolon-separated user=hash pairs.
	// Example: {"alice":"$argon2id$v=19$m=65536,t=1,p=2$..."} or "alice=$argon2id$...;bob=$argon2id$..."
	// Empty disables authentication.
	APIKeys string `env:"AUTH_API_KEYS,default={}"`
	// CacheTTL is how long a verified key is trusted without rehashing.
	CacheTTL  time.Duration `env:"AUTH_CACHE_TTL,default=1h" validate:"gt=0"`
	CacheSize int           `env:"AUTH_CACHE_SIZE,default=256" validate:"gt=0"`
}

// ParseAPIKeys parses APIKeys into a user ID to key hash map.
func (c *Config) ParseAPIKeys() (map[string]string, error) {
	if c.APIKeys == "" || c.APIKeys == "{}" {
		return make(map[string]string), nil
	}

	var keyMap map[string]string
	if err := json.Unmarshal([]byte(c.APIKeys), &keyMap); err != nil {
		return c.parseKeyValuePairs()
	}

	return keyMap, nil
}

func (c *Config) parseKeyValuePairs() (map[string]string, error) {
	keyMap := make(map[string]string)

	// Hashes contain commas, so pairs are separated by semicolons.
	for pair := range strings.SplitSeq(c.APIKeys, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid user-hash pair: %s", pair)
		}

		user := strings.TrimSpace(parts[0])
		hash := strings.TrimSpace(parts[1])

		if user == "" || hash == "" {
			return nil, fmt.Errorf("empty user or hash in pair: %s", pair)
		}

		keyMap[user] = hash
	}

	return keyMap, nil
}
