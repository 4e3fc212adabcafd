// Package config resolves runtime settings from defaults, an optional
// .strategist.yaml file, a .env file and STRATEGIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "STRATEGIST"
	configName     = ".strategist"
	DefaultDSN     = "strategist.db"
	DefaultAddr    = ":8080"
	DefaultBackend = "sqlite"
)

var validate = validator.New()

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type DBConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=sqlite postgres postgresql mysql"`
	// DSN is a file path for sqlite and a connection URL or DSN otherwise.
	// Prefer the environment for credentials.
	DSN string `mapstructure:"dsn" validate:"required"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required"`
}

type ReportConfig struct {
	ChromePath string `mapstructure:"chrome_path"`
	CSSPath    string `mapstructure:"css_path"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"omitempty,url"`
	ServiceName  string `mapstructure:"service_name" validate:"required"`
}

// Setup registers defaults, the config search path and environment binding
// on v. configFile overrides the search path when non-empty.
func Setup(v *viper.Viper, configFile string) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", EnvPrefix+"_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	v.SetDefault("db.backend", DefaultBackend)
	v.SetDefault("db.dsn", DefaultDSN)
	v.SetDefault("http.addr", DefaultAddr)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("report.chrome_path", "")
	v.SetDefault("report.css_path", "")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "strategist")
}

// Load reads the config file if one exists, unmarshals every resolved key
// and validates the result. A missing searched-for file is not an error; a
// missing explicit file is.
func Load(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env err=%v", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg.DB.Backend = strings.ToLower(strings.TrimSpace(cfg.DB.Backend))
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}
