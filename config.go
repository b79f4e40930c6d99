package users

import (
	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is an environment backed Config and RegistrationConfig
// implementation. Every knob has a sensible default so the zero setup
// path only requires AUTH_SIGNING_KEY.
type EnvConfig struct {
	SigningKey      string   `env:"AUTH_SIGNING_KEY"`
	SigningMethod   string   `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey      string   `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration int      `env:"AUTH_TOKEN_EXPIRATION" envDefault:"24"`
	TokenLookup     string   `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme      string   `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer          string   `env:"AUTH_ISSUER"`
	Audience        []string `env:"AUTH_AUDIENCE" envSeparator:","`
	EmailPattern    string   `env:"AUTH_EMAIL_PATTERN"`
	PasswordPattern string   `env:"AUTH_PASSWORD_PATTERN"`
}

// LoadConfig builds an EnvConfig from environment variables.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to parse environment configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures the loaded configuration can actually sign tokens.
func (c *EnvConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("signing key is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	if c.TokenExpiration <= 0 {
		c.TokenExpiration = DefaultTokenExpiration
	}

	return nil
}

func (c *EnvConfig) GetSigningKey() string      { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string   { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string      { return c.ContextKey }
func (c *EnvConfig) GetTokenExpiration() int    { return c.TokenExpiration }
func (c *EnvConfig) GetTokenLookup() string     { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string      { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string          { return c.Issuer }
func (c *EnvConfig) GetAudience() []string      { return c.Audience }
func (c *EnvConfig) GetEmailPattern() string    { return c.EmailPattern }
func (c *EnvConfig) GetPasswordPattern() string { return c.PasswordPattern }

var _ Config = (*EnvConfig)(nil)
var _ RegistrationConfig = (*EnvConfig)(nil)
