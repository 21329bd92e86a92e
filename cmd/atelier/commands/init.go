package commands

import (
	"github.com/spf13/cobra"

	"github.com/atelier-ai/atelier/internal/scaffold"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter atelier.yml in the current directory",
	Long: `Create a starter atelier.yml configuration file.

Examples:
  # Create atelier.yml
  atelier init

  # Replace an existing atelier.yml
  atelier init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Replace an existing atelier.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(initForce); err != nil {
		return err
	}
	scaffold.PrintSuccess()
	return nil
}
