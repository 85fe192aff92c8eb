package provider

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvrgpt/internal/cache"
	"github.com/sells-group/cvrgpt/pkg/cvrindeks"
)

// Config selects and parameterizes a provider. It is filled from the
// application configuration by the caller; the factory itself reads no
// environment.
type Config struct {
	// Kind is "fixture" or "cvr".
	Kind string

	// FixtureDir is the fixture data root (fixture kind).
	FixtureDir string

	// IndexBaseURL overrides the CVR index base URL (cvr kind).
	IndexBaseURL string

	// RegnskabBaseURL overrides the announcements base URL (cvr kind).
	RegnskabBaseURL string

	// Credentials for the Virk distribution endpoints. Token wins over
	// basic auth when both are set.
	Token    string
	User     string
	Password string

	// TTL bounds cached provider responses. Zero disables expiry.
	TTL time.Duration
}

// New builds the configured provider. memo may be nil to disable response
// caching (fixtures never cache regardless).
func New(cfg Config, memo *cache.Memoizer) (Provider, error) {
	switch cfg.Kind {
	case "", "fixture":
		if cfg.FixtureDir == "" {
			return nil, eris.New("provider: fixture kind requires a data directory")
		}
		return NewFixture(cfg.FixtureDir), nil

	case "cvr":
		var opts []cvrindeks.Option
		if cfg.IndexBaseURL != "" {
			opts = append(opts, cvrindeks.WithBaseURL(cfg.IndexBaseURL))
		}
		if cfg.Token != "" {
			opts = append(opts, cvrindeks.WithToken(cfg.Token))
		} else if cfg.User != "" {
			opts = append(opts, cvrindeks.WithBasicAuth(cfg.User, cfg.Password))
		}
		client := cvrindeks.NewClient(opts...)

		core := NewCVRIndeks(client, memo, cfg.TTL)
		filings := NewRegnskab(client, cfg.RegnskabBaseURL, memo, cfg.TTL)
		return NewComposite(core, filings), nil

	default:
		return nil, eris.Errorf("provider: unknown kind %q", cfg.Kind)
	}
}
