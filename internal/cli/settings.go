package cli

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/apiscope/internal/config"
	"github.com/mark3labs/apiscope/internal/logging"
)

// Settings is the configuration every command runs with after merging
// defaults, the config file, the environment and flag overrides.
type Settings struct {
	config.Config
	ConfigPath string
	Verbose    bool
	Logger     zerolog.Logger
}

func resolveSettings(cmd *cobra.Command) (*Settings, error) {
	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		var ce *config.Error
		if errors.As(err, &ce) {
			return nil, newUsageError(ce.Error())
		}
		return nil, err
	}

	s := &Settings{Config: *cfg, ConfigPath: configPath}
	if err := applyFlagOverrides(flags, s); err != nil {
		return nil, err
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, newUsageError(err.Error())
	}

	level := s.Log.Level
	if s.Verbose {
		level = zerolog.LevelDebugValue
	}
	s.Logger = logging.New(level, s.Log.Pretty, cmd.ErrOrStderr())
	return s, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, s *Settings) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		s.Input = strings.TrimSpace(value)
	}
	if flags.Changed("base-url") {
		value, err := flags.GetString("base-url")
		if err != nil {
			return err
		}
		s.BaseURL = strings.TrimSpace(value)
	}
	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		s.IncludeTags = config.SanitizeList(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		s.ExcludeTags = config.SanitizeList(value)
	}
	if flags.Changed("body-methods") {
		value, err := flags.GetStringSlice("body-methods")
		if err != nil {
			return err
		}
		s.BodyMethods = value
	}
	if flags.Changed("strict") {
		value, err := flags.GetBool("strict")
		if err != nil {
			return err
		}
		s.Strict = value
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		s.Timeout = value
	}
	if flags.Changed("concurrency") {
		value, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		s.Concurrency = value
	}
	if flags.Changed("log-level") {
		value, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		s.Log.Level = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		s.Verbose = value
	}
	return nil
}
