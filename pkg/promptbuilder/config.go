package promptbuilder

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/beeper/ai-companion/pkg/aitokens"
	"github.com/beeper/ai-companion/pkg/promptpost"
)

//go:embed example-config.yaml
var ExampleConfig string

// DataDirName is the directory created under the XDG data home.
const DataDirName = "ai-companion"

// Config is the prompt assembly configuration.
type Config struct {
	Prompt      PromptConfig      `yaml:"prompt"`
	PostProcess promptpost.Config `yaml:"post_process"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Storage     StorageConfig     `yaml:"storage"`
}

// PromptConfig holds the defaults for variables and placeholders.
type PromptConfig struct {
	DefaultUserName string `yaml:"default_user_name"`
	Timezone        string `yaml:"timezone"`
	Location        string `yaml:"location"`
	DeviceInfo      string `yaml:"device_info"`
}

// TokensConfig selects the token estimator.
type TokensConfig struct {
	Estimator string `yaml:"estimator"` // heuristic|tiktoken
	Model     string `yaml:"model"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// DefaultConfig returns the values of the embedded example config.
func DefaultConfig() *Config {
	post := promptpost.DefaultConfig()
	post.TruncationSuffix = promptpost.DefaultTruncationSuffix
	post.MergeSeparator = "\n\n"
	return &Config{
		Prompt: PromptConfig{
			DefaultUserName: "User",
			Timezone:        "UTC",
		},
		PostProcess: post,
		Tokens: TokensConfig{
			Estimator: "heuristic",
			Model:     "gpt-4o",
		},
	}
}

func upgradeConfig(helper configupgrade.Helper) {
	helper.Copy(configupgrade.Str, "prompt", "default_user_name")
	helper.Copy(configupgrade.Str, "prompt", "timezone")
	helper.Copy(configupgrade.Str, "prompt", "location")
	helper.Copy(configupgrade.Str, "prompt", "device_info")

	helper.Copy(configupgrade.Bool, "post_process", "enable_deduplication")
	helper.Copy(configupgrade.Bool, "post_process", "enable_empty_filter")
	helper.Copy(configupgrade.Bool, "post_process", "enable_merging")
	helper.Copy(configupgrade.Bool, "post_process", "enable_formatting")
	helper.Copy(configupgrade.Bool, "post_process", "enable_length_check")
	helper.Copy(configupgrade.Int, "post_process", "max_message_length")
	helper.Copy(configupgrade.Int, "post_process", "max_total_tokens")
	helper.Copy(configupgrade.Str, "post_process", "length_exceeded_strategy")
	helper.Copy(configupgrade.Str, "post_process", "truncation_suffix")
	helper.Copy(configupgrade.Str, "post_process", "merge_separator")

	helper.Copy(configupgrade.Str, "tokens", "estimator")
	helper.Copy(configupgrade.Str, "tokens", "model")

	helper.Copy(configupgrade.Str, "storage", "data_dir")
}

// LoadConfig reads the config at path on top of the embedded example config.
// Keys missing from the file keep their example values. An empty path or a
// missing file yields the example config.
func LoadConfig(path string) (*Config, error) {
	var base yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &base); err != nil {
		return nil, fmt.Errorf("failed to parse example config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if len(data) > 0 {
			var user yaml.Node
			if err = yaml.Unmarshal(data, &user); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if user.Kind == yaml.DocumentNode && len(user.Content) > 0 && user.Content[0].Kind == yaml.MappingNode {
				upgradeConfig(configupgrade.NewHelper(&base, &user))
			}
		}
	}

	var cfg Config
	if err := base.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail at build time.
func (c *Config) Validate() error {
	if err := c.PostProcess.Validate(); err != nil {
		return fmt.Errorf("invalid post_process config: %w", err)
	}
	switch c.Tokens.Estimator {
	case "", "heuristic", "tiktoken":
	default:
		return fmt.Errorf("unknown tokens.estimator %q", c.Tokens.Estimator)
	}
	return nil
}

// DataDir returns the configured storage directory or the XDG default.
func (c *Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return filepath.Join(xdg.DataHome, DataDirName)
}

// NewEstimator creates the configured token estimator.
func (c *Config) NewEstimator(log zerolog.Logger) aitokens.Estimator {
	if c.Tokens.Estimator == "tiktoken" {
		return aitokens.TiktokenEstimator{Model: c.Tokens.Model, Log: log}
	}
	return aitokens.HeuristicEstimator{}
}
