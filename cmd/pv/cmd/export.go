package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all vault entries",
	Long: `Export all entries, including passwords, in JSON or YAML.

The export contains plaintext passwords. Treat the output file like a
password list, because it is one.

Examples:
  pv export --format yaml -o vault.yaml
  pv export --format json > vault.json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Output format: yaml, json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}

// exportedEntry is the shape written to export files.
type exportedEntry struct {
	Platform string `json:"platform" yaml:"platform"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

func runExport(_ *cobra.Command, _ []string) error {
	client, err := newAuthedClient()
	if err != nil {
		return err
	}

	entries, err := client.ListEntries()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No entries to export.")
		return nil
	}

	exported := make([]exportedEntry, 0, len(entries))
	for _, e := range entries {
		exported = append(exported, exportedEntry{
			Platform: e.Platform,
			Username: e.Username,
			Password: e.Password,
			URL:      e.URL,
		})
	}

	var output []byte
	switch exportFormat {
	case "yaml":
		output, err = yaml.Marshal(exported)
	case "json":
		output, err = json.MarshalIndent(exported, "", "  ")
		output = append(output, '\n')
	default:
		return fmt.Errorf("unknown format: %s (valid: yaml, json)", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	if exportOutput != "" {
		if err := os.WriteFile(exportOutput, output, 0600); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d entries to %s\n", len(exported), exportOutput)
		return nil
	}

	fmt.Print(string(output))
	return nil
}
