package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crate-schema/internal/client"
	"crate-schema/internal/dialect"
	"crate-schema/internal/engine"
	"crate-schema/internal/mapping"
	"crate-schema/internal/retry"
	"crate-schema/internal/schema"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// SchemaConfig holds the schema.* settings.
type SchemaConfig struct {
	Option          schema.SchemaOption
	Name            string
	IgnoreFailures  bool
	ContinueOnError bool
	Workers         int
	Timeout         time.Duration
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// resolveDBConfig picks the connection settings: --dsn wins, then the active
// entry of databases, then database.dsn from config or defaults.
func resolveDBConfig() (*DBConfig, error) {
	var config DBConfig
	if dsn == "" && viper.IsSet("databases") {
		active, err := GetActiveDBConfig()
		if err != nil {
			return nil, err
		}
		config = *active
	} else {
		config = DBConfig{
			Name:   "CLI",
			Driver: viper.GetString("database.driver"),
			DSN:    viper.GetString("database.dsn"),
			Active: true,
		}
	}

	if config.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (via flag or config)")
	}
	config.Driver = normalizeDriver(config.Driver)
	return &config, nil
}

func normalizeDriver(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", dialect.DriverPGX:
		return dialect.DriverPGX
	case "postgresql", "pq", dialect.DriverPQ:
		return dialect.DriverPQ
	default:
		return name
	}
}

func loadSchemaConfig() (SchemaConfig, error) {
	option, err := schema.ParseSchemaOption(viper.GetString("schema.option"))
	if err != nil {
		return SchemaConfig{}, err
	}
	return SchemaConfig{
		Option:          option,
		Name:            viper.GetString("schema.name"),
		IgnoreFailures:  viper.GetBool("schema.ignore_failures"),
		ContinueOnError: viper.GetBool("schema.continue_on_error"),
		Workers:         viper.GetInt("schema.workers"),
		Timeout:         viper.GetDuration("schema.timeout"),
	}, nil
}

func loadRetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	if viper.IsSet("retry.max_retries") {
		cfg.MaxRetries = viper.GetInt("retry.max_retries")
	}
	if d := viper.GetDuration("retry.initial_delay"); d > 0 {
		cfg.InitialDelay = d
	}
	return cfg
}

// loadMappingContext registers the entities declared under entities.
func loadMappingContext() (*mapping.Context, error) {
	var specs []mapping.EntitySpec
	if err := viper.UnmarshalKey("entities", &specs); err != nil {
		return nil, fmt.Errorf("failed to parse entities config: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no entities configured (add an entities section to the config file)")
	}

	mc := mapping.NewContext()
	if err := mc.RegisterSpecs(specs); err != nil {
		return nil, err
	}
	return mc, nil
}

// session is what a command needs to talk to CrateDB.
type session struct {
	Manager  *engine.Manager
	Client   *client.Client
	Entities *mapping.Context
}

// newSession wires the mapping context, the client and the engine from config.
func newSession(opts ...engine.ManagerOption) (*session, error) {
	sc, err := loadSchemaConfig()
	if err != nil {
		return nil, err
	}
	mc, err := loadMappingContext()
	if err != nil {
		return nil, err
	}
	d, err := dialect.GetDialect(DriverName)
	if err != nil {
		return nil, err
	}

	c := client.New(DB, d, client.Config{
		Schema:  sc.Name,
		Timeout: sc.Timeout,
		Retry:   loadRetryConfig(),
	}, Logger)

	base := []engine.ManagerOption{
		engine.WithSchemaOption(sc.Option),
		engine.WithIgnoreFailures(sc.IgnoreFailures),
		engine.WithContinueOnError(sc.ContinueOnError),
		engine.WithWorkers(sc.Workers),
		engine.WithLogger(Logger),
	}
	return &session{
		Manager:  engine.NewManager(mc, c, append(base, opts...)...),
		Client:   c,
		Entities: mc,
	}, nil
}

// bindFlags binds config keys to flags of the running command. Commands share
// keys, so binding happens at run time rather than in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func init() {
	viper.SetDefault("schema.option", schema.Update.String())
	viper.SetDefault("schema.name", dialect.DefaultSchema)
	viper.SetDefault("schema.workers", 1)
	viper.SetDefault("schema.timeout", 30*time.Second)
}
