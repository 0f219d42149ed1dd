// Package main is the entry point for the fnplot command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lemonberrylabs/fnplot/pkg/config"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by the subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	config.SetDefaults(c.v)

	root := &cobra.Command{
		Use:   "fnplot",
		Short: "Plot single-variable math expressions",
		Long: `fnplot parses expressions such as "sin(x) / x" against a closed set of
functions, samples them over a range and renders the result.

Run "fnplot serve" for the HTTP, web and gRPC front ends, or use the
eval and render commands directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.initConfig(); err != nil {
				return err
			}
			c.initLogging(cmd)
			return nil
		},
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("fnplot version {{.Version}}\n")

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.fnplot/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Int("points", config.Default().Points, "number of samples across the range")
	_ = c.v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = c.v.BindPFlag("points", root.PersistentFlags().Lookup("points"))

	root.AddCommand(c.serveCmd(), c.evalCmd(), c.renderCmd(), c.functionsCmd())
	return root
}

// initConfig reads .env, the config file and FNPLOT_* variables.
func (c *cli) initConfig() error {
	_ = godotenv.Load()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", c.cfgFile, err)
		}
		return nil
	}

	c.v.SetConfigName("config")
	c.v.SetConfigType("yaml")
	c.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home + "/.fnplot")
	}
	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// initLogging configures the global logger.
func (c *cli) initLogging(cmd *cobra.Command) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch c.v.GetString("log-level") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
}

// load resolves the configuration after flags have been parsed.
func (c *cli) load() (config.Config, error) {
	return config.Load(c.v)
}
