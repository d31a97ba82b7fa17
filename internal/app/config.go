package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file when no -config flag is given.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Name   string `koanf:"name" validate:"required"`
	Port   int    `koanf:"port" validate:"min=1,max=65535"`
	Scheme string `koanf:"scheme" validate:"oneof=http https"`
	// BasePath mounts every route under a prefix, e.g. an ingress path. Empty mounts at /.
	BasePath string `koanf:"base_path" validate:"omitempty,startswith=/"`
	// ServiceAddress is the address advertised to consul. Empty means the outbound interface.
	ServiceAddress string `koanf:"service_address"`

	Backend BackendConfig `koanf:"backend"`
	Catalog CatalogConfig `koanf:"catalog"`
	Ui      UiConfig      `koanf:"ui"`
	Proxy   ProxyConfig   `koanf:"proxy"`
	Log     LogConfig     `koanf:"log"`
	Cors    CorsConfig    `koanf:"cors"`
	Consul  ConsulConfig  `koanf:"consul"`
}

type BackendConfig struct {
	Url     string        `koanf:"url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	RootId string `koanf:"root_id" validate:"required"`
}

type UiConfig struct {
	Title string `koanf:"title" validate:"required"`
}

type ProxyConfig struct {
	ChunkSize      int           `koanf:"chunk_size" validate:"min=512,max=1048576"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type CorsConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type ConsulConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address" validate:"required_if=Enabled true"`
	Port    int    `koanf:"port" validate:"min=0,max=65535"`
	Scheme  string `koanf:"scheme" validate:"oneof=http https"`
}

func defaultConfig() Config {
	return Config{
		Name:   "mediapire-gateway",
		Port:   8099,
		Scheme: "http",
		Backend: BackendConfig{
			Url:     "http://supervisor/core/api",
			Timeout: 60 * time.Second,
		},
		Catalog: CatalogConfig{RootId: "media-source://reolink"},
		Ui:      UiConfig{Title: "Media Source"},
		Proxy: ProxyConfig{
			ChunkSize:      8 << 10,
			ConnectTimeout: 60 * time.Second,
			IdleTimeout:    60 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "json"},
		Cors: CorsConfig{AllowedOrigins: []string{}},
		Consul: ConsulConfig{
			Address: "localhost",
			Port:    8500,
			Scheme:  "http",
		},
	}
}

var envMappings = map[string]string{
	"port":                 "port",
	"base_path":            "base_path",
	"service_address":      "service_address",
	"supervisor_api":       "backend.url",
	"supervisor_token":     "backend.token",
	"backend_timeout":      "backend.timeout",
	"media_root_id":        "catalog.root_id",
	"ui_title":             "ui.title",
	"proxy_chunk_size":     "proxy.chunk_size",
	"proxy_idle_timeout":   "proxy.idle_timeout",
	"proxy_timeout":        "proxy.connect_timeout",
	"log_level":            "log.level",
	"log_format":           "log.format",
	"cors_allowed_origins": "cors.allowed_origins",
	"consul_enabled":       "consul.enabled",
	"consul_address":       "consul.address",
	"consul_port":          "consul.port",
	"consul_scheme":        "consul.scheme",
}

// envKey maps known environment variables to config paths and drops everything else.
func envKey(key string) string {
	return envMappings[strings.ToLower(key)]
}

var sliceConfigPaths = []string{"cors.allowed_origins"}

// LoadConfig layers defaults, the optional YAML file at path (or $CONFIG_PATH) and the environment.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.BasePath = strings.TrimSuffix(cfg.BasePath, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// splitSliceFields turns comma separated environment values into lists.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		values := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}

		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	u, err := url.Parse(c.Backend.Url)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("backend url %q must be absolute", c.Backend.Url)
	}

	return nil
}
