package config_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlinkbd/bloodlink-api/internal/config"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BLOODLINK_CONFIG", "BLOODLINK_PROJECT_ID", "BLOODLINK_API_KEY", "BLOODLINK_AUTH_DOMAIN",
		"BLOODLINK_STORAGE_BUCKET", "BLOODLINK_MESSAGING_SENDER_ID", "BLOODLINK_APP_ID",
		"BLOODLINK_MEASUREMENT_ID", "PORT", "DB_CONNECTION_STRING", "REDIS_ADDRESS",
		"REDIS_PASSWORD", "RABBITMQ_URL", "REQUEST_QUEUE_NAME", "PRIVATE_KEY_PATH",
		"PUBLIC_KEY_PATH", "GEMINI_API_KEY", "GEMINI_MODEL", "LOG_LEVEL",
		"ALLOWED_ORIGINS", "SESSION_TTL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL.Duration)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bloodlink.yaml", `
identity:
  project_id: bloodlink-bd
  api_key: file-key
  auth_domain: bloodlink-bd.firebaseapp.com
  storage_bucket: bloodlink-bd.appspot.com
port: "9090"
database_url: postgres://localhost/bloodlink
redis_address: localhost:6379
session_ttl: 2h
allowed_origins:
  - https://bloodlink.example
`)
	t.Setenv("BLOODLINK_API_KEY", "env-key")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bloodlink-bd", cfg.Identity.ProjectID)
	assert.Equal(t, "env-key", cfg.Identity.APIKey, "environment wins over the file")
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "blood-requests", cfg.RequestQueue, "unset keys keep their defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOODLINK_CONFIG", writeFile(t, "c.yaml", "port: \"7070\"\n"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.yaml")},
		{name: "malformed yaml", path: writeFile(t, "bad.yaml", "identity: [unclosed")},
		{name: "bad duration", path: writeFile(t, "ttl.yaml", "session_ttl: forever\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidSessionTTLFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "a day")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate_ListsEveryMissingKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Identity.ProjectID = "bloodlink-bd"
	cfg.RedisAddress = "   "

	err := cfg.Validate()

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"api_key", "auth_domain", "database_url", "redis_address"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "api_key")
}

func TestPublicConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Identity = config.IdentityConfig{
		ProjectID:         "bloodlink-bd",
		APIKey:            "browser-key",
		AuthDomain:        "bloodlink-bd.firebaseapp.com",
		StorageBucket:     "bloodlink-bd.appspot.com",
		MessagingSenderID: "123",
		AppID:             "1:123:web:abc",
	}
	cfg.GeminiAPIKey = "server-secret"

	pub := cfg.PublicConfig()
	assert.Equal(t, "bloodlink-bd", pub["projectId"])
	assert.NotContains(t, pub, "measurementId")
	for _, v := range pub {
		assert.NotEqual(t, "server-secret", v)
	}

	cfg.Identity.MeasurementID = "G-XYZ"
	assert.Equal(t, "G-XYZ", cfg.PublicConfig()["measurementId"])
}

func TestLoadKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.PrivateKeyPath = writeFile(t, "private.pem", string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})))
	cfg.PublicKeyPath = writeFile(t, "public.pem", string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})))

	require.NoError(t, cfg.LoadKeys())
	assert.True(t, key.PublicKey.Equal(cfg.JWTPublicKey))
	assert.True(t, key.Equal(cfg.JWTPrivateKey))

	cfg.PublicKeyPath = filepath.Join(t.TempDir(), "missing.pem")
	assert.Error(t, cfg.LoadKeys())
}
