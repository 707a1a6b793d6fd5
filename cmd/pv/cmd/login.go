package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with PassVault",
	Long: `Authenticate with a PassVault server using your email and password.

The session token will be stored in ~/.passvault/config.yaml`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
}

// viperToken returns the stored session token, if any.
func viperToken() string {
	return viper.GetString("token")
}

// promptPassword reads a password from the terminal with echo disabled.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := loginEmail
	if email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	client := NewClient(getServerURL(), "")
	user, token, err := client.Login(email, password)
	if err != nil {
		return err
	}

	viper.Set("token", token)
	configPath := getConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		if err := viper.SafeWriteConfigAs(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	// The config file holds a live session token.
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	Success("Logged in as %s (%s)", user.Name, user.Email)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of PassVault",
	Long:  "Revoke the current session on the server and remove the stored token.",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if token := viperToken(); token != "" {
		client := NewClient(getServerURL(), token)
		if err := client.Logout(); err != nil {
			// Clear the local token even if the server is unreachable.
			Error("failed to revoke session on server: %v", err)
		}
	}

	viper.Set("token", "")
	if err := viper.WriteConfigAs(getConfigPath()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println("Logged out successfully")
	return nil
}
