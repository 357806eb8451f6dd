package main

import (
	"fmt"

	"diabcare/internal/config"
	"diabcare/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by the sub-commands once the root command
// has loaded configuration.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	closeLog func() error
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "diabcare",
		Short:         "Diabetes risk clinic backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return a.initialize(configFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	if err := setupFlags(rootCmd, a.v); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		a.serveCommand(),
		a.migrateCommand(),
		a.predictCommand(),
	)
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
// Each one overrides the configuration key of the same name.
func setupFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config.yaml file")
	flags.String("listen-port", "", "HTTP listen port")
	flags.String("database-driver", "", "Database driver: postgres or sqlite")
	flags.String("postgres-uri", "", "PostgreSQL connection URI")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("model-path", "", "Path to the model artifact")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this rotated file")
	flags.BoolP("debug", "d", false, "Enable debug output")

	bindings := map[string]string{
		"listen_port":     "listen-port",
		"database_driver": "database-driver",
		"postgres_uri":    "postgres-uri",
		"sqlite_path":     "sqlite-path",
		"model_path":      "model-path",
		"log_level":       "log-level",
		"log_file":        "log-file",
		"debug":           "debug",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// initialize loads configuration and sets up logging before any
// sub-command runs.
func (a *app) initialize(configFile string) error {
	if a.cfg != nil {
		return nil
	}
	if configFile != "" {
		a.v.SetConfigFile(configFile)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	closeLog, err := logging.Init(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.GeneratedSecret {
		logging.ForService("config").Warn("secret_key not set, generated a random one; tokens and sessions will not survive a restart")
	}

	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}
