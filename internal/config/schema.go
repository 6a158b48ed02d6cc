package config

import (
	"encoding/json"

	"github.com/coopco/dodgem/internal/cron"
)

// Config is the top-level configuration
type Config struct {
	Credentials CredentialsConfig `json:"credentials"`
	Bump        BumpConfig        `json:"bump"`
	Browser     BrowserConfig     `json:"browser"`
	Site        SiteConfig        `json:"site"`
	Channels    ChannelsConfig    `json:"channels"`
	History     HistoryConfig     `json:"history"`
	Metrics     MetricsConfig     `json:"metrics"`
}

type CredentialsConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BumpConfig holds the defaults for `dodgem start` and the pacing of a cycle.
type BumpConfig struct {
	Target          string            `json:"target"` // "all" or "oldest"
	IntervalMinutes float64           `json:"intervalMinutes"`
	Schedule        cron.CronSchedule `json:"schedule"` // optional; overrides the interval
	CooldownSeconds float64           `json:"cooldownSeconds"`
	SettleSeconds   float64           `json:"settleSeconds"`
}

type BrowserConfig struct {
	Headless       bool   `json:"headless"`
	ExecPath       string `json:"execPath"`
	UserAgent      string `json:"userAgent"`
	WindowWidth    int    `json:"windowWidth"`
	WindowHeight   int    `json:"windowHeight"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // default per browser operation
}

// SiteConfig describes the trading site: where to log in, how to reach the
// list of active listings, and how to re-save one.
type SiteConfig struct {
	LoginURL            string `json:"loginUrl"`
	IdentitySelector    string `json:"identitySelector"`
	SecretSelector      string `json:"secretSelector"`
	LoginSubmitSelector string `json:"loginSubmitSelector"`
	LoggedInSelector    string `json:"loggedInSelector"`

	IndexURL           string `json:"indexUrl"`
	MenuSelector       string `json:"menuSelector"`
	IndexLinkSelector  string `json:"indexLinkSelector"`
	IndexReadySelector string `json:"indexReadySelector"`
	ListingSelector    string `json:"listingSelector"`

	EditSelector      string `json:"editSelector"`
	EditReadySelector string `json:"editReadySelector"`
	SaveSelector      string `json:"saveSelector"`
	SavedSelector     string `json:"savedSelector"`

	NavigateTimeoutSeconds int `json:"navigateTimeoutSeconds"`
	ReadyTimeoutSeconds    int `json:"readyTimeoutSeconds"`
}

// ChannelsConfig holds the raw config of each notification channel; a
// channel is enabled when its section is present.
type ChannelsConfig struct {
	Notify   string          `json:"notify"` // "all" or "errors"
	Telegram json.RawMessage `json:"telegram,omitempty"`
	Discord  json.RawMessage `json:"discord,omitempty"`
	Slack    json.RawMessage `json:"slack,omitempty"`
	Webhook  json.RawMessage `json:"webhook,omitempty"`

	// HeartbeatMinutes sends a status report this often; 0 disables it.
	HeartbeatMinutes float64 `json:"heartbeatMinutes"`
}

// Enabled returns the configured channels by name.
func (c ChannelsConfig) Enabled() map[string]json.RawMessage {
	enabled := make(map[string]json.RawMessage)
	for name, raw := range map[string]json.RawMessage{
		"telegram": c.Telegram,
		"discord":  c.Discord,
		"slack":    c.Slack,
		"webhook":  c.Webhook,
	} {
		if len(raw) > 0 && string(raw) != "null" {
			enabled[name] = raw
		}
	}
	return enabled
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

type MetricsConfig struct {
	Addr string `json:"addr"` // e.g. ":9090"; empty disables the endpoint
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Bump: BumpConfig{
			Target:          "all",
			IntervalMinutes: 15,
			CooldownSeconds: 10,
		},
		Browser: BrowserConfig{
			Headless:       true,
			WindowWidth:    1920,
			WindowHeight:   1080,
			TimeoutSeconds: 30,
		},
		Site:     RocketLeagueGarage(),
		Channels: ChannelsConfig{Notify: "all"},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "~/.dodgem/history",
		},
	}
}

// RocketLeagueGarage is the default site profile.
func RocketLeagueGarage() SiteConfig {
	return SiteConfig{
		LoginURL:            "https://rocket-league.com/login",
		IdentitySelector:    `.rlg-form .rlg-input[type="email"]`,
		SecretSelector:      `.rlg-form .rlg-input[type="password"]`,
		LoginSubmitSelector: `.rlg-form .rlg-btn-primary[type="submit"]`,
		LoggedInSelector:    ".rlg-header-main-welcome-user",

		IndexURL:          "https://rocket-league.com/trading",
		MenuSelector:      ".rlg-header-main-welcome-user",
		IndexLinkSelector: "[href^='/trades']",
		ListingSelector:   ".rlg-trade-display-header > a",

		EditSelector: "[href^='/trade/edit']",
		SaveSelector: `.rlg-btn-primary[type="submit"]`,

		NavigateTimeoutSeconds: 120,
		ReadyTimeoutSeconds:    120,
	}
}
