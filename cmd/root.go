// Package cmd implements the medgraph command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/medgraph/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "medgraph",
		Short: "Medical institution directory ingestor",
		Long: `medgraph extracts hospitals, medical schools and veterinary schools
from public directories, normalizes them and stores one row per institution
in PostgreSQL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(func() {
		if err := initConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medgraph version %s\n", bootstrap.Version)
		},
	})

	rootCmd.AddCommand(
		newExtractCommand(),
		newReportCommand(),
		newCountriesCommand(),
		newScheduleCommand(),
		newMigrateCommand(),
	)
}

// initConfig reads in the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	return nil
}

// loadConfig decodes the global viper state and creates the logger.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// countryArgs merges --countries with positional arguments.
func countryArgs(flagValues, args []string) []string {
	out := make([]string, 0, len(flagValues)+len(args))
	for _, values := range [][]string{flagValues, args} {
		for _, v := range values {
			if code := strings.ToUpper(strings.TrimSpace(v)); code != "" {
				out = append(out, code)
			}
		}
	}
	return out
}
