package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	sessionDir    string
	storylineFile string
)

// addSessionFlags registers the flags every stage command shares.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sessionDir, "session", "", "saved session directory, relative to the output dir")
	cmd.Flags().StringVar(&storylineFile, "storyline-file", "", "read the storyline from a file")
}

// storyline joins the positional arguments, or reads --storyline-file.
func storyline(args []string) (string, error) {
	if storylineFile != "" {
		data, err := os.ReadFile(storylineFile)
		if err != nil {
			return "", fmt.Errorf("reading storyline: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}
