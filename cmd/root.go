package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"crate-schema/internal/dialect"
	"crate-schema/internal/logging"
)

var (
	dsn        string
	driver     string
	cfgFile    string
	logLevel   string
	DB         *sql.DB
	DriverName string // "pgx" or "postgres"
	Logger     *zap.Logger

	configErr error
)

var RootCmd = &cobra.Command{
	Use:   "crate-schema",
	Short: "Keeps CrateDB tables in sync with entity definitions",
	Long: `
   ___ ___    _ _____ ___     ___  ___ _  _ ___ __  __   _
  / __| _ \  /_\_   _| __|   / __|/ __| || | __|  \/  | /_\
 | (__|   / / _ \| | | _|    \__ \ (__| __ | _|| |\/| |/ _ \
  \___|_|_\/_/ \_\_| |___|   |___/\___|_||_|___|_|  |_/_/ \_\

Creates, updates and drops CrateDB tables from declared entities.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}

		var err error
		Logger, err = logging.New(viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		if viper.ConfigFileUsed() != "" {
			Logger.Info("using config file", zap.String("path", viper.ConfigFileUsed()))
		}

		config, err := resolveDBConfig()
		if err != nil {
			return err
		}
		DriverName = config.Driver

		if _, err := dialect.GetDialect(DriverName); err != nil {
			return err
		}

		DB, err = sql.Open(DriverName, config.DSN)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		Logger.Info("opened database",
			zap.String("name", config.Name),
			zap.String("driver", DriverName),
			zap.String("dsn", logging.SanitizeConnectionString(config.DSN)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
		if Logger != nil {
			_ = Logger.Sync()
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.SanitizeError(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./crate-schema.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().StringVar(&driver, "driver", "", "database/sql driver: pgx or postgres")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("database.driver", RootCmd.PersistentFlags().Lookup("driver"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("database.dsn", "postgres://crate@127.0.0.1:5432/doc?sslmode=disable")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("crate-schema")
		viper.SetConfigType("yaml")
	}

	// CRATE_SCHEMA_DATABASE_DSN overrides database.dsn
	viper.SetEnvPrefix("crate_schema")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configErr = readConfig()
}

// readConfig reads the config file. Only a config file that was searched for
// and not found is tolerated; flags and defaults still apply then.
func readConfig() error {
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}
