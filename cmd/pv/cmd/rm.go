package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a vault entry",
	Long: `Delete an entry from your vault.

By default, you will be prompted to confirm the deletion.
Use --yes or -y to skip the confirmation prompt.`,
	Aliases: []string{"delete", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolVarP(&rmForce, "yes", "y", false, "Skip confirmation prompt")
}

func runRm(_ *cobra.Command, args []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	id := args[0]

	if !rmForce {
		if !PromptConfirm(fmt.Sprintf("Delete entry '%s'?", id)) {
			Info("Canceled")
			return nil
		}
	}

	if err := client.DeleteEntry(id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	Success("Entry '%s' deleted", id)
	return nil
}
