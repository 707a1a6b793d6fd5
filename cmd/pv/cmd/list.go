package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listShowPasswords bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your vault entries",
	Long: `List all entries in your vault, most recently updated first.

Passwords are hidden unless --show-passwords is given.`,
	Aliases: []string{"ls"},
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listShowPasswords, "show-passwords", false, "include passwords in the output")
}

func runList(_ *cobra.Command, _ []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	entries, err := client.ListEntries()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	if !listShowPasswords {
		for i := range entries {
			entries[i].Password = "********"
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No entries found.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Add one with: pv add --platform NAME --username USER")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, Bold("ID")+"\t"+Bold("PLATFORM")+"\t"+Bold("USERNAME")+"\t"+Bold("PASSWORD")+"\t"+Bold("URL"))
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Platform, e.Username, e.Password, e.URL)
	}
	return w.Flush()
}
