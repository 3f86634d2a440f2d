// Package config loads and validates the tuning knobs the ConfigLoader
// collaborator (spec.md §6) exposes: timeouts, retry counts, intervals,
// paths, DB connection, judge URL, and the local-ip override.
package config

import "time"

// AppConfig is every knob the orchestrator, test engine, scraper
// framework and output writers need. Fields tagged `default` are filled
// by ViperLoader when left unset; fields tagged `validate:"required"`
// must be supplied by the operator.
type AppConfig struct {
	Debug bool `mapstructure:"debug" default:"false"`

	DatabasePath       string `mapstructure:"database_path" default:"pogo-proxies.db"`
	DownloadPath       string `mapstructure:"download_path" default:"downloads"`
	WorkingProxiesPath string `mapstructure:"working_proxies_path" default:"working_proxies.txt"`
	ProxyChainsPath    string `mapstructure:"proxychains_path"`
	KinanCityPath      string `mapstructure:"kinancity_path"`
	StripProtocol      bool   `mapstructure:"strip_protocol" default:"false"`
	GeoIPPath          string `mapstructure:"geoip_path"`
	ProxyFilePath      string `mapstructure:"proxy_file_path"`

	JudgeURL       string `mapstructure:"judge_url" validate:"required"`
	LocalIP        string `mapstructure:"local_ip" validate:"required"`
	UserAgent      string `mapstructure:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
	PogoVersion    string `mapstructure:"pogo_version" validate:"required"`
	NianticURL     string `mapstructure:"niantic_url" validate:"required"`
	PTCLoginURL    string `mapstructure:"ptc_login_url" validate:"required"`
	PTCSignupURL   string `mapstructure:"ptc_signup_url" validate:"required"`
	PTCSignupTitle string `mapstructure:"ptc_signup_title" validate:"required"`
	SkipAnonymity  bool   `mapstructure:"skip_anonymity" default:"false"`

	MaxConcurrency int     `mapstructure:"max_concurrency" default:"50"`
	Retries        int     `mapstructure:"retries" default:"3"`
	BackoffFactor  float64 `mapstructure:"backoff_factor" default:"1"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" default:"5"`

	ScanIntervalMinutes    int `mapstructure:"scan_interval_minutes" default:"60"`
	NoticeIntervalSeconds  int `mapstructure:"notice_interval_seconds" default:"30"`
	ScrapeIntervalMinutes  int `mapstructure:"scrape_interval_minutes" default:"120"`
	OutputIntervalMinutes  int `mapstructure:"output_interval_minutes" default:"15"`
	FailCleanIntervalHours int `mapstructure:"fail_clean_interval_hours" default:"6"`

	IgnoreCountries []string `mapstructure:"ignore_countries"`
	ScraperProxies  []string `mapstructure:"scraper_proxies"`

	DashboardPort int `mapstructure:"dashboard_port" default:"8080"`
}

func (c *AppConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMinutes) * time.Minute
}

func (c *AppConfig) NoticeInterval() time.Duration {
	return time.Duration(c.NoticeIntervalSeconds) * time.Second
}

func (c *AppConfig) ScrapeInterval() time.Duration {
	return time.Duration(c.ScrapeIntervalMinutes) * time.Minute
}

func (c *AppConfig) OutputInterval() time.Duration {
	return time.Duration(c.OutputIntervalMinutes) * time.Minute
}

func (c *AppConfig) FailCleanInterval() time.Duration {
	return time.Duration(c.FailCleanIntervalHours) * time.Hour
}

func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *AppConfig) IgnoreCountrySet() map[string]bool {
	set := make(map[string]bool, len(c.IgnoreCountries))
	for _, country := range c.IgnoreCountries {
		set[country] = true
	}
	return set
}

// ConfigLoader reads, defaults and validates an AppConfig from the
// operator's configuration file and environment.
type ConfigLoader interface {
	Load() (*AppConfig, error)
}
