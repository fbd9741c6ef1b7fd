package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vampirenirmal/dramaturg/internal/config"
)

var (
	configPath string
	verbose    bool
	useMock    bool
	outputDir  string
)

var rootCmd = &cobra.Command{
	Use:   "dramaturg",
	Short: "dramaturg - hierarchical script generation from a storyline",
	Long: `dramaturg turns a one-line storyline into a script, one stage at a time:
title, characters, scene outline, place descriptions and per-scene dialogue.

Every stage is sampled from a text-completion model in chunks, extracted,
optionally screened by a toxicity classifier, and retried on malformed output.

Keys are read from the config file or from the environment:
  OPENAI_API_KEY       - completion endpoint key (required)
  PERSPECTIVE_API_KEY  - classifier key (optional, enables the safety gate)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dramaturg/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every completion call")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use canned completions instead of the endpoint")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "output directory (overrides paths.output_dir)")
}

// loadConfig applies the persistent flags on top of the config file.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath, func(c *config.Config) {
		if useMock {
			c.AI.Mock = true
		}
		if outputDir != "" {
			c.Paths.OutputDir = outputDir
		}
	})
}

// Execute runs the root command
func Execute() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
