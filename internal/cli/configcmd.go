package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patrickenfuego/chapterize/internal/config"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/model"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/chapterize/config.
Settings can also be overridden via environment variables.

Supported settings:
  default-language   Audiobook language (env: CHAPTERIZE_LANGUAGE)
  default-model      Speech model size: small, large (env: CHAPTERIZE_MODEL)
  ffmpeg-path        Path to the ffmpeg binary
  generate-cue-file  Always export a cue file (env: CHAPTERIZE_GENERATE_CUE_FILE)
  cue-path           Default cue file path
  output-dir         Default directory for chapter files (env: CHAPTERIZE_OUTPUT_DIR)`,
		Example: `  chapterize config set default-language french
  chapterize config set output-dir ~/Audiobooks/chapters
  chapterize config get default-model
  chapterize config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  chapterize config set default-language german
  chapterize config set output-dir /mnt/audiobooks`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  chapterize config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  chapterize config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// envFallbacks maps config keys to their environment variable overrides.
var envFallbacks = map[string]string{
	config.KeyLanguage:    config.EnvLanguage,
	config.KeyModelSize:   config.EnvModelSize,
	config.KeyWriteLedger: config.EnvWriteLedger,
	config.KeyOutputDir:   config.EnvOutputDir,
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	// Key-specific validation before persisting anything.
	switch key {
	case config.KeyLanguage:
		code, err := lang.Resolve(value)
		if err != nil {
			return err
		}
		value = code
	case config.KeyModelSize:
		if !model.Size(value).Valid() {
			return fmt.Errorf("%w: invalid model size %q (valid: small, large)",
				model.ErrUnsupportedModel, value)
		}
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
		value = expanded
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !slices.Contains(config.Keys(), key) {
		return fmt.Errorf("%w: %q (valid keys: %s)",
			config.ErrInvalidKey, key, strings.Join(config.Keys(), ", "))
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Check environment variable fallback.
	if value == "" {
		if envName, ok := envFallbacks[key]; ok {
			value = env.Getenv(envName)
		}
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	// Add environment variable values for completeness.
	for key, envName := range envFallbacks {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(envName); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys() {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
		}
	}

	return nil
}
