// Package config loads the identity service settings from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"

	identity "github.com/trustlayer/go-identity"
)

// Prefix is prepended to every variable name
const Prefix = "TRUSTLAYER_"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	MailLog    = "log"
	MailSMTP   = "smtp"
	MailResend = "resend"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Debug       bool   `env:"DEBUG"`

	HTTP      HTTP      `envPrefix:"HTTP_"`
	DB        DB        `envPrefix:"DB_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	OTP       OTP       `envPrefix:"OTP_"`
	Mail      Mail      `envPrefix:"MAIL_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	CORS      CORS      `envPrefix:"CORS_"`
}

type HTTP struct {
	Address         string        `env:"ADDRESS" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DB struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:identity.db?cache=shared"`
}

// Auth holds the token settings and implements identity.Config
type Auth struct {
	SigningKey       string   `env:"SIGNING_KEY"`
	TokenExpiration  int      `env:"TOKEN_EXPIRATION_HOURS" envDefault:"720"`
	Issuer           string   `env:"ISSUER" envDefault:"trustlayer"`
	Audience         []string `env:"AUDIENCE" envDefault:"trustlayer-api" envSeparator:","`
	ContextKey       string   `env:"CONTEXT_KEY" envDefault:"user"`
	TokenLookup      string   `env:"TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme       string   `env:"AUTH_SCHEME" envDefault:"Bearer"`
	DeterministicIDs bool     `env:"DETERMINISTIC_IDS"`
}

var _ identity.Config = Auth{}

func (a Auth) GetSigningKey() string   { return a.SigningKey }
func (a Auth) GetContextKey() string   { return a.ContextKey }
func (a Auth) GetTokenExpiration() int { return a.TokenExpiration }
func (a Auth) GetTokenLookup() string  { return a.TokenLookup }
func (a Auth) GetAuthScheme() string   { return a.AuthScheme }
func (a Auth) GetIssuer() string       { return a.Issuer }
func (a Auth) GetAudience() []string   { return a.Audience }

type OTP struct {
	TTL         time.Duration `env:"TTL" envDefault:"10m"`
	Cooldown    time.Duration `env:"COOLDOWN" envDefault:"60s"`
	AsyncNotify bool          `env:"ASYNC_NOTIFY" envDefault:"true"`
}

type Mail struct {
	Provider     string `env:"PROVIDER" envDefault:"log"`
	Product      string `env:"PRODUCT" envDefault:"TrustLayer"`
	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	From         string `env:"FROM"`
	FromName     string `env:"FROM_NAME" envDefault:"TrustLayer"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
	ResendURL    string `env:"RESEND_URL"`
}

type RateLimit struct {
	Max    int           `env:"MAX" envDefault:"20"`
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
}

type CORS struct {
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"*"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom reads the configuration from vars, keyed by full variable name.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      Prefix,
		Environment: vars,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse environment")
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	cfg.Mail.Provider = strings.ToLower(cfg.Mail.Provider)

	if err := cfg.Validate(); err != nil {
		return nil, identity.NewValidationError(err)
	}
	return cfg, nil
}

// IsDevelopment reports whether codes may be echoed and logged
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In(EnvDevelopment, EnvProduction)),
		validation.Field(&c.HTTP),
		validation.Field(&c.DB),
		validation.Field(&c.Auth),
		validation.Field(&c.OTP),
		validation.Field(&c.Mail),
		validation.Field(&c.RateLimit),
	)
}

func (h HTTP) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Address, validation.Required),
	)
}

func (d DB) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.Issuer, validation.Required),
		validation.Field(&a.Audience, validation.Required),
		validation.Field(&a.TokenExpiration,
			validation.Min(identity.MinTokenExpiration),
			validation.Max(identity.MaxTokenExpiration),
		),
	)
}

func (o OTP) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.TTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&o.Cooldown, validation.Min(time.Duration(0))),
	)
}

func (m Mail) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Provider, validation.Required, validation.In(MailLog, MailSMTP, MailResend)),
		validation.Field(&m.SMTPHost, requiredFor(m.Provider, MailSMTP)...),
		validation.Field(&m.SMTPUser, requiredFor(m.Provider, MailSMTP)...),
		validation.Field(&m.SMTPPassword, requiredFor(m.Provider, MailSMTP)...),
		validation.Field(&m.ResendAPIKey, requiredFor(m.Provider, MailResend)...),
		validation.Field(&m.From, requiredFor(m.Provider, MailResend)...),
	)
}

// requiredFor makes a field mandatory only for the given mail provider
func requiredFor(provider, want string) []validation.Rule {
	if provider != want {
		return nil
	}
	return []validation.Rule{validation.Required}
}

func (r RateLimit) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Max, validation.Min(0)),
	)
}
