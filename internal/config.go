package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/starford/postdeck/internal/postview"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"    envPrefix:"APP_"`
	API    APIConfig         `yaml:"api"    envPrefix:"API_"`
	SQLite SQLiteConfig      `yaml:"sqlite" envPrefix:"SQLITE_"`
	Web    WebConfig         `yaml:"web"    envPrefix:"WEB_"`
	Auth   AuthConfig        `yaml:"auth"   envPrefix:"AUTH_"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Web.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"      envPrefix:"HTTP_"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// APIConfig describes the upstream posts API.
//
// BaseURL is only a first-run default: once a base URL has been set through
// the UI or the MCP tools, the stored value wins.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	Token    string        `yaml:"token"    env:"TOKEN"`
	Timeout  time.Duration `yaml:"timeout"  env:"TIMEOUT"`
	PollSpec string        `yaml:"poll"     env:"POLL"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.BaseURL != "" {
		if err := postview.ValidateBaseURL(c.BaseURL); err != nil {
			return fmt.Errorf("api: base_url: %w", err)
		}
	}
	if c.PollSpec != "" {
		if _, err := cron.ParseStandard(c.PollSpec); err != nil {
			return fmt.Errorf("api: poll %q: %w", c.PollSpec, err)
		}
	}
	return nil
}

// PollEnabled reports whether the change poller should run.
func (c *APIConfig) PollEnabled() bool {
	return c.PollSpec != ""
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WebConfig holds the HTML front end settings. An empty TemplatesDir uses
// the embedded templates.
type WebConfig struct {
	TemplatesDir string `yaml:"templates_dir" env:"TEMPLATES_DIR"`
	Locale       string `yaml:"locale"        env:"LOCALE"`
}

// Validate validates the web configuration.
func (c *WebConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Locale, validation.Required, validation.By(func(v any) error {
			if _, err := language.Parse(v.(string)); err != nil {
				return fmt.Errorf("unknown locale: %w", err)
			}
			return nil
		})),
	)
}

// Language returns the collation locale.
func (c *WebConfig) Language() language.Tag {
	return language.Make(c.Locale)
}

// AuthConfig holds authentication configuration for the HTML pages.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token, or Basic auth with the token as password.
type AuthConfig struct {
	Mode  string `yaml:"mode"  env:"MODE"`
	Token string `yaml:"token" env:"TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		API: APIConfig{
			Timeout:  30 * time.Second,
			PollSpec: "@every 30s",
		},
		SQLite: SQLiteConfig{
			Path: "./postdeck.db",
		},
		Web: WebConfig{
			Locale: "en",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
