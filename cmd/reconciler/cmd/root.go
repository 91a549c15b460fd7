package cmd

import (
	"fmt"
	"os"
	"strings"

	"contra-reconciliation-service/cmd/reconciler/config"
	"contra-reconciliation-service/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Contra transfer reconciliation tool",
	Long: `Reconciler pairs transfers between the bank accounts of one group of
companies, marks them INB TRF or SIS CON, and compares the result with a
hand-curated final workbook.

Examples:
  reconciler reconcile --statements hdfc.xlsx,sbi.xlsx --final "Final Jan.xlsx"
  reconciler reconcile -s hdfc.xlsx -s sbi.xlsx -F final.xlsx --output-format json
  reconciler serve --addr :8000
  reconciler canonicalize "XNS_361_BOB_CA" "bob 0361 ca xns"`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&noColor, "no-color", false, "disable coloured console output")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, "text", "log format: text, json")
	flags.String(config.KeyLogFile, "", "write logs to this file instead of stderr")
	flags.String(config.KeyBankDirectory, "", "YAML file of extra bank name to code mappings")

	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag(config.KeyLogLevel, flags.Lookup(config.KeyLogLevel))
	viper.BindPFlag(config.KeyLogFormat, flags.Lookup(config.KeyLogFormat))
	viper.BindPFlag(config.KeyLogFile, flags.Lookup(config.KeyLogFile))
	viper.BindPFlag(config.KeyBankDirectory, flags.Lookup(config.KeyBankDirectory))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setupLogging replaces the global logger with one built from the
// configuration.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.CreateLoggerConfig(viper.GetViper(), viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)

	if noColor {
		color.NoColor = true
	}
	return nil
}

// useColors reports whether console output should be coloured.
func useColors() bool {
	return !noColor && !color.NoColor
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
