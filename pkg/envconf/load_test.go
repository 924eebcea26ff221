package envconf

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_RequiredAndDefaults(t *testing.T) {
	type nested struct {
		DSN     string        `env:"TEST_ENVCONF_DSN"`
		Timeout time.Duration `env:"TEST_ENVCONF_TIMEOUT" default:"5s"`
	}

	type cfg struct {
		Port uint16 `env:"TEST_ENVCONF_PORT" default:"8080"`
		Name string `env:"TEST_ENVCONF_NAME"`
		DB   nested
	}

	t.Run("defaults_fill_missing_vars", func(t *testing.T) {
		t.Setenv("TEST_ENVCONF_NAME", "vault")
		t.Setenv("TEST_ENVCONF_DSN", "postgres://localhost/x")

		c := new(cfg)

		err := Load(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if c.Port != 8080 {
			t.Fatalf("port default: want 8080, got %d", c.Port)
		}
		if c.DB.Timeout != 5*time.Second {
			t.Fatalf("timeout default: want 5s, got %v", c.DB.Timeout)
		}
	})

	t.Run("env_overrides_default", func(t *testing.T) {
		t.Setenv("TEST_ENVCONF_NAME", "vault")
		t.Setenv("TEST_ENVCONF_DSN", "postgres://localhost/x")
		t.Setenv("TEST_ENVCONF_PORT", "9999")

		c := new(cfg)

		err := Load(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if c.Port != 9999 {
			t.Fatalf("port: want 9999, got %d", c.Port)
		}
	})

	t.Run("missing_required_fails", func(t *testing.T) {
		t.Setenv("TEST_ENVCONF_DSN", "postgres://localhost/x")

		c := new(cfg)

		err := Load(c)
		if !errors.Is(err, ErrMissingRequired) {
			t.Fatalf("want ErrMissingRequired, got %v", err)
		}
	})
}
