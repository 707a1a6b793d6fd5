package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updatePlatform string
	updateUsername string
	updatePassword bool
	updateURL      string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a vault entry",
	Long: `Update one or more fields of an existing entry. Only the flags you
pass are changed; everything else keeps its current value.

Use --password to be prompted for a new password.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updatePlatform, "platform", "", "new platform name")
	updateCmd.Flags().StringVar(&updateUsername, "username", "", "new username")
	updateCmd.Flags().BoolVar(&updatePassword, "password", false, "prompt for a new password")
	updateCmd.Flags().StringVar(&updateURL, "url", "", "new URL")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	fields := make(map[string]string)
	if cmd.Flags().Changed("platform") {
		fields["platform"] = updatePlatform
	}
	if cmd.Flags().Changed("username") {
		fields["username"] = updateUsername
	}
	if cmd.Flags().Changed("url") {
		fields["url"] = updateURL
	}
	if updatePassword {
		password, err := promptPassword("New password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}
		fields["password"] = password
	}

	if len(fields) == 0 {
		return fmt.Errorf("nothing to update, pass at least one of --platform, --username, --password, --url")
	}

	entry, err := client.UpdateEntry(args[0], fields)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	Success("Entry for '%s' updated", entry.Platform)
	return nil
}
