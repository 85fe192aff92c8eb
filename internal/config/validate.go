package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Validate checks the configuration for the given run mode ("serve" for the
// API server, "cli" for one-shot commands). It collects all problems into
// one error so a bad config surfaces everything at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Provider.Kind {
	case "", "fixture":
		if c.Provider.FixtureDir == "" {
			problems = append(problems, "provider.fixture_dir is required for the fixture provider")
		}
	case "cvr":
	default:
		problems = append(problems, fmt.Sprintf("provider.kind must be fixture or cvr, got %q", c.Provider.Kind))
	}

	switch c.Cache.Backend {
	case "", "memory":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			problems = append(problems, "cache.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.backend must be memory, sqlite or postgres, got %q", c.Cache.Backend))
	}

	switch c.Chat.Classifier {
	case "", "keyword":
	case "llm":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required for the llm classifier")
		}
	default:
		problems = append(problems, fmt.Sprintf("chat.classifier must be keyword or llm, got %q", c.Chat.Classifier))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimitRPS < 0 {
			problems = append(problems, "server.rate_limit_rps must be >= 0")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// ProviderTTL returns the provider response cache TTL.
func (c *Config) ProviderTTL() time.Duration {
	return time.Duration(c.Provider.TTLSecs) * time.Second
}

// CacheTTL returns the default response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}

// ThreadTTL returns the chat thread idle-expiry bound.
func (c *Config) ThreadTTL() time.Duration {
	return time.Duration(c.Chat.ThreadTTLSecs) * time.Second
}
