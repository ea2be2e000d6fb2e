package main

import (
	"context"
	"encoding/json"
	"fmt"

	"talentlink/internal/securestore"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and edit the secure store",
	Long: `Low-level access to the secure store. Keys are not validated; the
well-known keys are auth_token, refresh_token and user_data.`,
}

var storeGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, a *app) error {
			value, ok := a.store.GetItem(ctx, args[0])
			if !ok {
				return fmt.Errorf("key %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		})
	},
}

var storeSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value, replacing any previous one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, a *app) error {
			return a.store.SetItem(ctx, args[0], args[1])
		})
	},
}

var storeRemoveCmd = &cobra.Command{
	Use:     "rm <key>",
	Aliases: []string{"remove"},
	Short:   "Remove a value; removing a missing key is not an error",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, a *app) error {
			a.store.RemoveItem(ctx, args[0])
			return nil
		})
	},
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the active backend and swallowed failure counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, a *app) error {
			// Read every well-known key so the counters reflect the medium's current state
			for _, key := range securestore.WellKnownKeys {
				a.store.GetItem(ctx, key)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"platform":     a.cfg.Platform,
				"backend":      a.store.Backend(),
				"secret_grade": a.store.SecretGrade(),
				"diagnostics":  a.store.Diagnostics(),
			})
		})
	},
}

func init() {
	storeCmd.AddCommand(storeGetCmd, storeSetCmd, storeRemoveCmd, storeInfoCmd)
	rootCmd.AddCommand(storeCmd)
}

func withStore(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
