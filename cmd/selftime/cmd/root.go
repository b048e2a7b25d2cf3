// Package cmd provides the command-line interface of selftime.
package cmd

import (
	"github.com/sarchlab/selftime/config"
	"github.com/sarchlab/selftime/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string

	v      = config.NewViper()
	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "selftime",
	Short: "Measure the self time of nested operations.",
	Long: `selftime creates the components of a workload plan and measures ` +
		`how long each one takes. The self time of a component excludes the ` +
		`time spent creating the components it depends on.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()

	_ = logger.Sync()

	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.selftime/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env",
		"file of environment variables to load")
	flags.String("format", "table", "report format: table, tree, csv or json")
	flags.Int("top", 0, "only report the N slowest operations by self time")
	flags.String("db", "", "directory to record sessions into")
	flags.Bool("virtual", false,
		"advance a virtual clock instead of waiting for component costs")
	flags.Int("monitor-port", 0, "serve live metrics on this port")
	flags.Bool("monitor-open", false, "open the monitoring page in a browser")
	flags.String("log-level", "info", "log level")
	flags.Bool("log-development", false, "human readable logs")

	bindFlag(config.KeyFormat, "format")
	bindFlag(config.KeyTop, "top")
	bindFlag(config.KeyDB, "db")
	bindFlag(config.KeyVirtual, "virtual")
	bindFlag(config.KeyMonitorPort, "monitor-port")
	bindFlag(config.KeyMonitorOpen, "monitor-open")
	bindFlag(config.KeyLogLevel, "log-level")
	bindFlag(config.KeyLogDevelopment, "log-development")
}

func bindFlag(key, name string) {
	err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	if err != nil {
		panic(err)
	}
}

// initConfig reads in the env file, the config file and the environment.
func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	l, err := logging.New(c.Log.Level, c.Log.Development)
	if err != nil {
		return err
	}

	cfg = c
	logger = l

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", zap.String("file", used))
	}

	return nil
}
