// Package cmd provides the CLI commands for pv.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	serverURL  string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "pv",
	Short: "PassVault CLI - manage your credentials from the terminal",
	Long: `PassVault CLI (pv) talks to a PassVault server and manages your
stored credentials.

Get started:
  pv login                 Authenticate with the server
  pv list                  List your vault entries
  pv add                   Add a new entry
  pv export                Export entries to a file

Examples:
  pv login --email you@example.com
  pv add --platform github --username you
  pv list --json
  pv export --format yaml -o vault.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.passvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".passvault")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetDefault("server", "http://localhost:8080")

	viper.SetEnvPrefix("PASSVAULT")
	viper.AutomaticEnv()

	// Load config file if it exists.
	_ = viper.ReadInConfig()
}

// getConfigPath returns the path the config file should be written to.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".passvault", "config.yaml")
}

// getServerURL returns the configured server URL.
func getServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	return viper.GetString("server")
}

// isVerbose returns whether verbose mode is enabled.
func isVerbose() bool {
	if verbose {
		return true
	}
	return viper.GetBool("verbose")
}
