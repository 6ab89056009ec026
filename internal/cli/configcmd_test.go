package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/patrickenfuego/chapterize/internal/config"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/model"
)

// configTestEnv isolates the config file with XDG_CONFIG_HOME and captures
// command output. Tests using it must not be parallel (t.Setenv).
func configTestEnv(t *testing.T) (*Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithGetenv(func(string) string { return "" }),
	)
	return env, stdout, stderr
}

func TestConfigSetAndGet(t *testing.T) {
	env, stdout, stderr := configTestEnv(t)

	if err := runConfigSet(env, config.KeyModelSize, "large"); err != nil {
		t.Fatalf("runConfigSet() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "default-model = large") {
		t.Errorf("stderr = %q, want set confirmation", stderr.String())
	}

	if err := runConfigGet(env, config.KeyModelSize); err != nil {
		t.Fatalf("runConfigGet() error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "large" {
		t.Errorf("get output = %q, want %q", got, "large")
	}
}

func TestConfigSetNormalizesLanguage(t *testing.T) {
	env, _, _ := configTestEnv(t)

	if err := runConfigSet(env, config.KeyLanguage, "French"); err != nil {
		t.Fatalf("runConfigSet() error = %v", err)
	}

	value, err := config.Get(config.KeyLanguage)
	if err != nil {
		t.Fatalf("config.Get() error = %v", err)
	}
	if value != "fr" {
		t.Errorf("stored language = %q, want canonical code %q", value, "fr")
	}
}

func TestConfigSetRejectsBadValues(t *testing.T) {
	env, _, _ := configTestEnv(t)

	if err := runConfigSet(env, config.KeyLanguage, "klingon"); !errors.Is(err, lang.ErrInvalid) {
		t.Errorf("set bad language error = %v, want lang.ErrInvalid", err)
	}
	if err := runConfigSet(env, config.KeyModelSize, "jumbo"); !errors.Is(err, model.ErrUnsupportedModel) {
		t.Errorf("set bad model size error = %v, want model.ErrUnsupportedModel", err)
	}
	if err := runConfigSet(env, "bogus-key", "value"); !errors.Is(err, config.ErrInvalidKey) {
		t.Errorf("set unknown key error = %v, want config.ErrInvalidKey", err)
	}
}

func TestConfigGetUnknownKey(t *testing.T) {
	env, _, _ := configTestEnv(t)

	if err := runConfigGet(env, "bogus-key"); !errors.Is(err, config.ErrInvalidKey) {
		t.Errorf("get unknown key error = %v, want config.ErrInvalidKey", err)
	}
}

func TestConfigGetEnvFallback(t *testing.T) {
	env, stdout, _ := configTestEnv(t)
	env.Getenv = func(key string) string {
		if key == config.EnvOutputDir {
			return "/from/env"
		}
		return ""
	}

	if err := runConfigGet(env, config.KeyOutputDir); err != nil {
		t.Fatalf("runConfigGet() error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "/from/env" {
		t.Errorf("get output = %q, want env fallback", got)
	}
}

func TestConfigList(t *testing.T) {
	env, stdout, _ := configTestEnv(t)

	if err := runConfigList(env); err != nil {
		t.Fatalf("runConfigList() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "No configuration set.") {
		t.Errorf("empty list output = %q", stdout.String())
	}

	stdout.Reset()
	if err := runConfigSet(env, config.KeyModelSize, "small"); err != nil {
		t.Fatalf("runConfigSet() error = %v", err)
	}
	if err := runConfigList(env); err != nil {
		t.Fatalf("runConfigList() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "default-model=small") {
		t.Errorf("list output = %q, want default-model entry", stdout.String())
	}
}
