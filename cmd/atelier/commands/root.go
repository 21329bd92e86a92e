package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// configPath is the global --config flag.
var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Atelier - Multi-agent application generator",
	Long: `Atelier turns a one-line project brief into a complete starter
application. A team of specialized agents cooperates over a Redis
blackboard: choosing a tech stack, agreeing on a delivery contract,
generating code, and validating the result until it is good enough
or the iteration budget runs out.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "atelier.yml", "Path to the pipeline configuration file")
}
