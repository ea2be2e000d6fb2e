package main

import (
	"context"
	"fmt"
	"time"

	"talentlink/internal/forms"
	"talentlink/internal/session"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session issued by the backend",
	Long: `Validate the login form and store the access token, refresh token and
user profile in secure storage. The tokens are obtained from the backend
by the caller; this command only persists them.`,
	RunE: runLoginCommand,
}

var (
	loginEmail        string
	loginPassword     string
	loginAccessToken  string
	loginRefreshToken string
	loginUserID       string
	loginName         string
	loginTimeout      int
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (required)")
	loginCmd.Flags().StringVar(&loginAccessToken, "access-token", "", "Access token issued by the backend (required)")
	loginCmd.Flags().StringVar(&loginRefreshToken, "refresh-token", "", "Refresh token issued by the backend")
	loginCmd.Flags().StringVar(&loginUserID, "user-id", "", "User ID")
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name")
	loginCmd.Flags().IntVar(&loginTimeout, "timeout", 10, "Storage timeout in seconds")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")
	loginCmd.MarkFlagRequired("access-token")

	rootCmd.AddCommand(loginCmd)
}

func runLoginCommand(cmd *cobra.Command, args []string) error {
	form := forms.LoginForm{Email: loginEmail, Password: loginPassword}
	if err := form.Validate(); err != nil {
		return err
	}
	form = form.Sanitize()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(loginTimeout)*time.Second)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.sessions.SignIn(ctx, session.Credentials{
		AccessToken:  loginAccessToken,
		RefreshToken: loginRefreshToken,
		User: session.User{
			ID:    loginUserID,
			Name:  loginName,
			Email: form.Email,
		},
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Signed in as %s\n", form.Email)
	fmt.Fprintf(out, "Backend: %s\n", a.store.Backend())
	if !a.store.SecretGrade() {
		fmt.Fprintln(out, "Warning: this backend does not encrypt stored credentials.")
	}

	return nil
}
