package config

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

// IdentityConfig holds the named connection parameters shared with the web client.
type IdentityConfig struct {
	ProjectID         string `yaml:"project_id"`
	APIKey            string `yaml:"api_key"`
	AuthDomain        string `yaml:"auth_domain"`
	StorageBucket     string `yaml:"storage_bucket"`
	MessagingSenderID string `yaml:"messaging_sender_id"`
	AppID             string `yaml:"app_id"`
	MeasurementID     string `yaml:"measurement_id"`
}

type Config struct {
	Identity IdentityConfig `yaml:"identity"`

	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"database_url"`
	RedisAddress   string   `yaml:"redis_address"`
	RedisPassword  string   `yaml:"redis_password"`
	RabbitMQURL    string   `yaml:"rabbitmq_url"`
	RequestQueue   string   `yaml:"request_queue"`
	PrivateKeyPath string   `yaml:"private_key_path"`
	PublicKeyPath  string   `yaml:"public_key_path"`
	GeminiAPIKey   string   `yaml:"gemini_api_key"`
	GeminiModel    string   `yaml:"gemini_model"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
	SessionTTL     Duration `yaml:"session_ttl"`

	JWTPrivateKey *rsa.PrivateKey `yaml:"-"`
	JWTPublicKey  *rsa.PublicKey  `yaml:"-"`
}

// Duration lets YAML carry values such as "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	d.Duration = parsed
	return nil
}

func Defaults() *Config {
	return &Config{
		Port:           "8080",
		RequestQueue:   "blood-requests",
		PrivateKeyPath: "/etc/certs/private.pem",
		PublicKeyPath:  "/etc/certs/public.pem",
		GeminiModel:    "gemini-2.0-flash",
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		SessionTTL:     Duration{24 * time.Hour},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("BLOODLINK_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Identity.ProjectID, "BLOODLINK_PROJECT_ID")
	setString(&cfg.Identity.APIKey, "BLOODLINK_API_KEY")
	setString(&cfg.Identity.AuthDomain, "BLOODLINK_AUTH_DOMAIN")
	setString(&cfg.Identity.StorageBucket, "BLOODLINK_STORAGE_BUCKET")
	setString(&cfg.Identity.MessagingSenderID, "BLOODLINK_MESSAGING_SENDER_ID")
	setString(&cfg.Identity.AppID, "BLOODLINK_APP_ID")
	setString(&cfg.Identity.MeasurementID, "BLOODLINK_MEASUREMENT_ID")

	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabaseURL, "DB_CONNECTION_STRING")
	setString(&cfg.RedisAddress, "REDIS_ADDRESS")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.RabbitMQURL, "RABBITMQ_URL")
	setString(&cfg.RequestQueue, "REQUEST_QUEUE_NAME")
	setString(&cfg.PrivateKeyPath, "PRIVATE_KEY_PATH")
	setString(&cfg.PublicKeyPath, "PUBLIC_KEY_PATH")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL %q: %w", ttl, err)
		}
		cfg.SessionTTL = Duration{d}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports every missing identity-critical or store parameter at once.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"project_id", c.Identity.ProjectID},
		{"api_key", c.Identity.APIKey},
		{"auth_domain", c.Identity.AuthDomain},
		{"database_url", c.DatabaseURL},
		{"redis_address", c.RedisAddress},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}
	return nil
}

// LoadKeys reads the RSA key pair used to sign session tokens.
func (c *Config) LoadKeys() error {
	privateKey, err := loadPrivateKey(c.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}
	publicKey, err := loadPublicKey(c.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("load public key: %w", err)
	}
	c.JWTPrivateKey = privateKey
	c.JWTPublicKey = publicKey
	return nil
}

// PublicConfig is the browser-safe subset served to web clients.
func (c *Config) PublicConfig() map[string]string {
	pub := map[string]string{
		"projectId":         c.Identity.ProjectID,
		"apiKey":            c.Identity.APIKey,
		"authDomain":        c.Identity.AuthDomain,
		"storageBucket":     c.Identity.StorageBucket,
		"messagingSenderId": c.Identity.MessagingSenderID,
		"appId":             c.Identity.AppID,
	}
	if c.Identity.MeasurementID != "" {
		pub["measurementId"] = c.Identity.MeasurementID
	}
	return pub
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return privateKey, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}
