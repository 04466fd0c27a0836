package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
		LogLevel    string   `yaml:"log_level"`
		Timeout     string   `yaml:"request_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Profile struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"profile"`
	Content struct {
		Source   string `yaml:"source"`
		SeedPath string `yaml:"seed_path"`
		TTL      string `yaml:"ttl"`
		MicroCMS struct {
			ServiceDomain string `yaml:"service_domain"`
			APIKey        string `yaml:"api_key"`
			Endpoint      string `yaml:"endpoint"`
			Timeout       string `yaml:"timeout"`
		} `yaml:"microcms"`
	} `yaml:"content"`
	Quiz struct {
		TimeUnit       string `yaml:"time_unit"`
		Countdown      int    `yaml:"countdown"`
		StartDelay     int    `yaml:"start_delay"`
		QuestionBudget int    `yaml:"question_budget"`
		RevealDelay    int    `yaml:"reveal_delay"`
		ReviewBudget   int    `yaml:"review_budget"`
		Retain         int    `yaml:"retain"`
		Idle           int    `yaml:"idle"`
	} `yaml:"quiz"`
	Auth struct {
		Passphrase     string `yaml:"passphrase"`
		PassphraseHash string `yaml:"passphrase_hash"`
		JWTSecret      string `yaml:"jwt_secret"`
		TokenTTL       string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Transfer struct {
		TTL string `yaml:"ttl"`
	} `yaml:"transfer"`
	Worker struct {
		Size    int    `yaml:"size"`
		Buffer  int    `yaml:"buffer"`
		Timeout string `yaml:"timeout"`
	} `yaml:"worker"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// applyEnv lets secrets and endpoints come from the environment instead of the file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("JWT_SECRET", &c.Auth.JWTSecret)
	set("QUIZ_PASSPHRASE", &c.Auth.Passphrase)
	set("QUIZ_PASSPHRASE_HASH", &c.Auth.PassphraseHash)
	set("MICROCMS_API_KEY", &c.Content.MicroCMS.APIKey)
	set("MICROCMS_SERVICE_DOMAIN", &c.Content.MicroCMS.ServiceDomain)
	set("POSTGRES_URL", &c.Postgres.URL)
	set("REDIS_ADDR", &c.Redis.Addr)
	set("PROFILE_DSN", &c.Profile.DSN)
	if v, ok := lookup("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v, or fallback when v is not positive.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
