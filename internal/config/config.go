// Package config loads the procure CLI configuration from a YAML file,
// overlaid with PROCURE_* variables from the environment and optional
// dotenv files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-procure/pkg/condition"
)

const envPrefix = "PROCURE_"

type Config struct {
	API     API               `yaml:"api"`
	Log     Log               `yaml:"log"`
	Server  Server            `yaml:"server"`
	Table   Table             `yaml:"table"`
	Session condition.Session `yaml:"session"`
	// Forms optionally points at an OpenAPI document (path or URL) whose
	// request bodies extend the built-in forms.
	Forms string `yaml:"forms"`
}

type API struct {
	BaseURL string        `yaml:"baseURL" validate:"required,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type Server struct {
	Addr     string `yaml:"addr" validate:"required"`
	BasePath string `yaml:"basePath"`
}

type Table struct {
	PageSize int `yaml:"pageSize" validate:"min=1,max=500"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8080/api",
			Timeout: 15 * time.Second,
		},
		Log:    Log{Level: "info"},
		Server: Server{Addr: ":8090"},
		Table:  Table{PageSize: 10},
	}
}

// Load reads path (skipped when empty), then applies environment overrides.
// Variables already set in the process win over those read from envFiles.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	env := map[string]string{}
	for _, file := range envFiles {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}

	if err := cfg.overlay(env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) overlay(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[envPrefix+key]; ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("API_URL", &c.API.BaseURL)
	str("API_TOKEN", &c.API.Token)
	str("LOG_LEVEL", &c.Log.Level)
	str("ADDR", &c.Server.Addr)
	str("BASE_PATH", &c.Server.BasePath)
	str("USER_ID", &c.Session.UserID)
	str("FORMS", &c.Forms)

	if v, ok := env[envPrefix+"API_TIMEOUT"]; ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sAPI_TIMEOUT: %w", envPrefix, err)
		}
		c.API.Timeout = d
	}
	if v, ok := env[envPrefix+"LOG_DEV"]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sLOG_DEV: %w", envPrefix, err)
		}
		c.Log.Development = b
	}
	if v, ok := env[envPrefix+"PAGE_SIZE"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sPAGE_SIZE: %w", envPrefix, err)
		}
		c.Table.PageSize = n
	}
	if v, ok := env[envPrefix+"ROLES"]; ok {
		c.Session.Roles = nil
		for _, role := range strings.Split(v, ",") {
			if role = strings.TrimSpace(role); role != "" {
				c.Session.Roles = append(c.Session.Roles, role)
			}
		}
	}
	return nil
}
