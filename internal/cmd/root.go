package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/config"
	"github.com/pothiers/cadence/internal/logging"
)

var (
	cfgFile   string
	showRates bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence: data file generation rate",
	Long: `Cadence reads grep output of data file headers (one "file:FIELD=value"
per line), works out when each file was generated, how large it is and which
instrument produced it, and reports the moving average of generated volume
per instrument over a trailing time window.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.cadence.yaml)")
	flags.StringP("output", "o", "text", "output format: text, json")
	flags.StringP("log-level", "l", "warn", "log verbosity: debug, info, warn, error")
	flags.IntP("window", "w", 1800, "moving average window in seconds")
	flags.Int("category-segment", 5, "'/'-separated key segment holding the category")
	flags.Int("date-segment", 4, "'/'-separated key segment holding YYYYMMDD for TIME-OBS")
	flags.String("pattern", "", "custom line regex with named groups key, field, value")
	flags.String("chart", "", "write a PNG chart of the moving average to this path")
	flags.Int("start-of-day-hour", 17, "hour at which an observing night starts on the chart")
	flags.BoolVar(&showRates, "rates", false, "list every moving-average entry")

	bind := map[string]string{
		config.KeyOutput:          "output",
		config.KeyLogLevel:        "log-level",
		config.KeyWindowSeconds:   "window",
		config.KeyCategorySegment: "category-segment",
		config.KeyDateSegment:     "date-segment",
		config.KeyPattern:         "pattern",
		config.KeyChart:           "chart",
		config.KeyStartOfDayHour:  "start-of-day-hour",
	}
	for key, flag := range bind {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".cadence")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("cadence")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		cobra.CheckErr(err)
	}
}

// setup loads the settings and returns a context carrying the logger.
func setup(parent context.Context) (context.Context, config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, cfg, nil, err
	}
	log.Debugw("Debug output is enabled", "config", viper.ConfigFileUsed())
	return logging.WithLogger(parent, log), cfg, log, nil
}
