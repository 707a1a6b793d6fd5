package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your account password",
	Long:  "Change the password you log in with. Existing sessions stay valid.",
	RunE:  runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(_ *cobra.Command, _ []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	current, err := promptPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	next, err := promptPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := promptPassword("Confirm new password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if next != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if _, err := client.request("POST", "/auth/change-password", map[string]string{
		"current_password": current,
		"new_password":     next,
	}); err != nil {
		return err
	}

	Success("Password changed")
	return nil
}
