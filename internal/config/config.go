// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno TOKENGATE_*.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
		// ID lógico del servicio; delimita el keyspace de credenciales.
		ServiceID string `yaml:"service_id"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		Driver string `yaml:"driver"` // memory | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Clients struct {
		Driver   string `yaml:"driver"` // file | postgres
		File     string `yaml:"file"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"clients"`

	JWT struct {
		Issuer         string `yaml:"issuer"`
		PrivateKeyPath string `yaml:"private_key_path"`
		PublicKeyPath  string `yaml:"public_key_path"`
		Duration       string `yaml:"duration"` // ej: "1h"
	} `yaml:"jwt"`

	Credentials struct {
		CodeTTL    string `yaml:"code_ttl"`    // ej: "10m"
		AccessTTL  string `yaml:"access_ttl"`  // ej: "1h"
		RefreshTTL string `yaml:"refresh_ttl"` // ej: "720h"
	} `yaml:"credentials"`
}

// Load lee el YAML (si path no es vacío), aplica env overrides y defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.App.Env, "TOKENGATE_ENV")
	setStr(&c.App.ServiceID, "TOKENGATE_SERVICE_ID")
	setStr(&c.Server.Addr, "TOKENGATE_ADDR")
	setStr(&c.Log.Level, "TOKENGATE_LOG_LEVEL")
	setStr(&c.Cache.Driver, "TOKENGATE_CACHE_DRIVER")
	setStr(&c.Cache.Redis.Addr, "TOKENGATE_REDIS_ADDR")
	setStr(&c.Cache.Redis.Password, "TOKENGATE_REDIS_PASSWORD")
	setInt(&c.Cache.Redis.DB, "TOKENGATE_REDIS_DB")
	setStr(&c.Cache.Redis.Prefix, "TOKENGATE_REDIS_PREFIX")
	setStr(&c.Clients.Driver, "TOKENGATE_CLIENTS_DRIVER")
	setStr(&c.Clients.File, "TOKENGATE_CLIENTS_FILE")
	setStr(&c.Clients.Postgres.DSN, "TOKENGATE_CLIENTS_DSN")
	setStr(&c.JWT.Issuer, "TOKENGATE_JWT_ISSUER")
	setStr(&c.JWT.PrivateKeyPath, "TOKENGATE_JWT_PRIVATE_KEY")
	setStr(&c.JWT.PublicKeyPath, "TOKENGATE_JWT_PUBLIC_KEY")
	setStr(&c.JWT.Duration, "TOKENGATE_JWT_DURATION")
	setStr(&c.Credentials.CodeTTL, "TOKENGATE_CODE_TTL")
	setStr(&c.Credentials.AccessTTL, "TOKENGATE_ACCESS_TTL")
	setStr(&c.Credentials.RefreshTTL, "TOKENGATE_REFRESH_TTL")
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.ServiceID == "" {
		c.App.ServiceID = "tokengate"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Clients.Driver == "" {
		c.Clients.Driver = "file"
	}
	if c.Clients.File == "" {
		c.Clients.File = "configs/clients.yaml"
	}
	if c.JWT.Duration == "" {
		c.JWT.Duration = "1h"
	}
	if c.Credentials.CodeTTL == "" {
		c.Credentials.CodeTTL = "10m"
	}
	if c.Credentials.AccessTTL == "" {
		c.Credentials.AccessTTL = "1h"
	}
	if c.Credentials.RefreshTTL == "" {
		c.Credentials.RefreshTTL = "720h"
	}
}

// Durations parseadas. Un valor malformado cae al default indicado.

func (c *Config) JWTDuration() time.Duration { return parseDur(c.JWT.Duration, time.Hour) }

func (c *Config) CodeTTL() time.Duration { return parseDur(c.Credentials.CodeTTL, 10*time.Minute) }

func (c *Config) AccessTTL() time.Duration { return parseDur(c.Credentials.AccessTTL, time.Hour) }

func (c *Config) RefreshTTL() time.Duration {
	return parseDur(c.Credentials.RefreshTTL, 720*time.Hour)
}

func parseDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
