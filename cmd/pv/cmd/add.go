package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addPlatform string
	addUsername string
	addPassword string
	addURL      string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new vault entry",
	Long: `Add a new credential to your vault.

If --password is not given, you will be prompted for it with echo
disabled so it stays out of your shell history.`,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addPlatform, "platform", "", "platform or site name (required)")
	addCmd.Flags().StringVar(&addUsername, "username", "", "account username (required)")
	addCmd.Flags().StringVar(&addPassword, "password", "", "account password (prompted if omitted)")
	addCmd.Flags().StringVar(&addURL, "url", "", "site URL")
	addCmd.MarkFlagRequired("platform")
	addCmd.MarkFlagRequired("username")
}

func runAdd(_ *cobra.Command, _ []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	password := addPassword
	if password == "" {
		password, err = promptPassword("Password for " + addPlatform + ": ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	entry, err := client.CreateEntry(addPlatform, addUsername, password, addURL)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	Success("Entry for '%s' created (%s)", entry.Platform, entry.ID)
	return nil
}
