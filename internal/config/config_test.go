package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Prefix string
	}

	Game struct {
		Expiry time.Duration
	}

	Auth struct {
		SigningKey string
		Admin      struct {
			Login string
		}
	}
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	p := write(t, "config.yaml", `
http:
  port: 8080
redis:
  addrs: ["localhost:6379"]
`)
	t.Setenv("REDIS_PREFIX", "from-env")

	var c testConfig
	c.Game.Expiry = 7 * 24 * time.Hour
	c.Redis.Prefix = "default"

	require.NoError(t, config.Load(p, &c))
	require.Equal(t, int32(8080), c.HTTP.Port)
	require.Equal(t, []string{"localhost:6379"}, c.Redis.Addrs)
	require.Equal(t, "from-env", c.Redis.Prefix, "environment overrides file and defaults")
	require.Equal(t, 7*24*time.Hour, c.Game.Expiry, "defaults survive when the file is silent")
}

func TestLoad_EnvOnlyKeys(t *testing.T) {
	p := write(t, "config.yaml", "http:\n  port: 8080\n")
	t.Setenv("AUTH_SIGNINGKEY", "secret-from-env")
	t.Setenv("AUTH_ADMIN_LOGIN", "root")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("GAME_EXPIRY", "48h")

	var c testConfig
	require.NoError(t, config.Load(p, &c))
	require.Equal(t, "secret-from-env", c.Auth.SigningKey, "keys without a default are read from the environment")
	require.Equal(t, "root", c.Auth.Admin.Login)
	require.Equal(t, int32(9000), c.HTTP.Port, "environment overrides the file")
	require.Equal(t, 48*time.Hour, c.Game.Expiry)
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "absent.yaml"), &c))
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")), "a missing file is fine")

	p := write(t, ".env", "ECOQUEST_TEST_A=from-file\nECOQUEST_TEST_B=from-file\n")
	t.Setenv("ECOQUEST_TEST_A", "from-env")
	t.Setenv("ECOQUEST_TEST_B", "")
	require.NoError(t, os.Unsetenv("ECOQUEST_TEST_B"))

	require.NoError(t, config.LoadDotEnv(p))
	require.Equal(t, "from-env", os.Getenv("ECOQUEST_TEST_A"))
	require.Equal(t, "from-file", os.Getenv("ECOQUEST_TEST_B"))
}
