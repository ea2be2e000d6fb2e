package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE:  runStatusCommand,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	rootCmd.AddCommand(statusCmd)
}

func runStatusCommand(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status := a.sessions.Status(ctx)
	out := cmd.OutOrStdout()

	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(out, "Backend:       %s (secret-grade: %t)\n", status.Backend, status.SecretGrade)

	switch {
	case status.Authenticated:
		fmt.Fprintln(out, "Session:       signed in")
	case status.Expired:
		fmt.Fprintln(out, "Session:       expired")
	default:
		fmt.Fprintln(out, "Session:       signed out")
	}

	if status.ExpiresAt != nil {
		fmt.Fprintf(out, "Expires:       %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	if status.User != nil {
		fmt.Fprintf(out, "User:          %s <%s>\n", status.User.Name, status.User.Email)
	}
	fmt.Fprintf(out, "Refresh token: %t\n", status.HasRefresh)

	return nil
}
