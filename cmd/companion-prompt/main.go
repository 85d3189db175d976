package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/beeper/ai-companion/pkg/charstore"
	"github.com/beeper/ai-companion/pkg/promptbuilder"
	"github.com/beeper/ai-companion/pkg/shared/stringutil"
)

// Information to find out exactly which commit the tool was built from.
// These are filled at build time with the -X linker flag.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// dataDirEnv overrides storage.data_dir from the config file.
const dataDirEnv = "COMPANION_DATA_DIR"

type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

type app struct {
	cfg   *promptbuilder.Config
	log   zerolog.Logger
	store *charstore.Store
}

func (f *globalFlags) load() (*app, error) {
	level, err := zerolog.ParseLevel(f.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := promptbuilder.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataDir = stringutil.EnvOr(cfg.Storage.DataDir, os.Getenv(dataDirEnv))
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	dataDir := cfg.DataDir()
	log.Debug().Str("data_dir", dataDir).Msg("Using data directory")
	return &app{
		cfg:   cfg,
		log:   log,
		store: charstore.NewFileStore(dataDir, log),
	}, nil
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "companion-prompt",
		Short:         "Assemble companion chat prompts for LLM backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory holding character and conversation records")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(map[string]string{
				"tag":        Tag,
				"commit":     Commit,
				"build_time": BuildTime,
			})
		},
	}

	rootCmd.AddCommand(newBuildCmd(flags))
	rootCmd.AddCommand(newImportCardCmd(flags))
	rootCmd.AddCommand(newMigrateCmd(flags))
	rootCmd.AddCommand(versionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

func newImportCardCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-card PATH",
		Short: "Import a YAML, TOML or JSON5 character card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load()
			if err != nil {
				return err
			}
			character, err := charstore.ImportCard(args[0])
			if err != nil {
				return err
			}
			if err = a.store.SaveCharacter(a.log.WithContext(cmd.Context()), character); err != nil {
				return fmt.Errorf("failed to save character: %w", err)
			}
			a.log.Info().Str("character_id", character.ID).Str("name", character.Name).Msg("Imported character card")
			return printJSON(character)
		},
	}
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite legacy character records in the current format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load()
			if err != nil {
				return err
			}
			count, err := a.store.MigrateCharacters(a.log.WithContext(cmd.Context()))
			if err != nil {
				return err
			}
			a.log.Info().Int("migrated", count).Msg("Character migration finished")
			return printJSON(map[string]int{"migrated": count})
		},
	}
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
