package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

var validateKeysCmd = &cobra.Command{
	Use:   "validate-keys",
	Short: "Check the completion and classifier keys",
	Long: `Send a one-token completion with the completion key and score a
placeholder text with the classifier key. Both checks run concurrently.
The command fails if the completion key is rejected; a bad classifier key
only disables the safety gate.`,
	RunE: runValidateKeys,
}

func init() {
	rootCmd.AddCommand(validateKeysCmd)
}

func runValidateKeys(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	creds := a.credentials()

	var completionErr error
	classifierOK := false

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		completionErr = a.completer.ValidateKey(ctx, creds.CompletionKey)
		return nil
	})
	if creds.ClassifierKey != "" {
		g.Go(func() error {
			classifierOK = a.gate.ValidateKey(ctx, creds.ClassifierKey)
			return nil
		})
	}
	_ = g.Wait()

	w := cmd.OutOrStdout()
	printHeader(w, "Keys")
	switch {
	case completionErr == nil:
		fmt.Fprintln(w, successStyle.Render("✓ completion key accepted"))
	case errors.Is(completionErr, core.ErrCredentials):
		fmt.Fprintln(w, errorStyle.Render("✗ completion key rejected: check the key"))
	case errors.Is(completionErr, core.ErrQuota):
		fmt.Fprintln(w, errorStyle.Render("✗ completion key has no quota left"))
	case errors.Is(completionErr, core.ErrTimeout):
		fmt.Fprintln(w, errorStyle.Render("✗ completion endpoint did not answer in time"))
	default:
		fmt.Fprintln(w, errorStyle.Render("✗ completion key check failed: "+completionErr.Error()))
	}

	switch {
	case creds.ClassifierKey == "":
		fmt.Fprintln(w, mutedStyle.Render("- classifier key not set: generated text will not be screened"))
	case classifierOK:
		fmt.Fprintln(w, successStyle.Render("✓ classifier key accepted"))
	default:
		fmt.Fprintln(w, warnStyle.Render("! classifier key rejected: generated text will not be screened"))
	}

	if completionErr != nil {
		return fmt.Errorf("completion key is not usable: %w", completionErr)
	}
	return nil
}
