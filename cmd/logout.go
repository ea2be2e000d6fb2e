package main

import (
	"context"
	"fmt"

	"talentlink/internal/securestore"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Long: `Remove the access token, refresh token and user profile from secure
storage. Removal is best effort; failures are logged, never fatal.`,
	RunE: runLogoutCommand,
}

var (
	force bool
)

func init() {
	logoutCmd.Flags().BoolVar(&force, "force", false, "Log out without confirmation")

	rootCmd.AddCommand(logoutCmd)
}

func runLogoutCommand(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if !hasStoredSession(ctx, a) {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}
	status := a.sessions.Status(ctx)

	if !force {
		who := "the current user"
		if status.User != nil && status.User.Email != "" {
			who = status.User.Email
		}
		fmt.Fprintf(out, "This will sign out %s and remove stored credentials.\n", who)
		fmt.Fprintf(out, "Are you sure you want to continue? (y/N): ")

		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)

		if response != "y" && response != "Y" && response != "yes" && response != "Yes" {
			fmt.Fprintln(out, "Logout cancelled.")
			return nil
		}
	}

	a.sessions.SignOut(ctx)

	fmt.Fprintln(out, "✓ Signed out. Stored credentials have been cleared.")
	if failures := a.store.Diagnostics().TotalErrors; failures > 0 {
		fmt.Fprintf(out, "Warning: %d storage operations failed; see the log for details.\n", failures)
	}

	return nil
}

func hasStoredSession(ctx context.Context, a *app) bool {
	for _, key := range securestore.WellKnownKeys {
		if _, ok := a.store.GetItem(ctx, key); ok {
			return true
		}
	}
	return false
}
