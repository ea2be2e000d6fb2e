package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"talentlink/internal/forms"
	"talentlink/internal/inputguard"

	"github.com/spf13/cobra"
)

// checkResult is what a check kind reports for one input
type checkResult struct {
	Value   string
	Valid   bool
	Message string
}

type checkFunc func(input string, limit int) checkResult

func sanitized(value string) checkResult {
	return checkResult{Value: value, Valid: true}
}

var checkKinds = map[string]checkFunc{
	"text": func(in string, limit int) checkResult {
		return sanitized(inputguard.SanitizeString(in, limit))
	},
	"email": func(in string, _ int) checkResult {
		clean := inputguard.SanitizeEmail(in)
		if !inputguard.ValidateEmail(clean) {
			return checkResult{Value: clean, Message: "not a valid email address"}
		}
		return sanitized(clean)
	},
	"password": func(in string, _ int) checkResult {
		result := inputguard.ValidatePassword(in)
		return checkResult{Valid: result.Valid, Message: result.Message}
	},
	"html": func(in string, _ int) checkResult {
		return sanitized(inputguard.SanitizeHTML(in))
	},
	"phone": func(in string, _ int) checkResult {
		clean := strings.TrimSpace(inputguard.SanitizePhoneNumber(in))
		if !forms.ValidPhone(clean) {
			return checkResult{Value: clean, Message: "not a valid phone number"}
		}
		return sanitized(clean)
	},
	"url": func(in string, _ int) checkResult {
		clean := inputguard.SanitizeURL(in)
		if clean == "" {
			return checkResult{Message: "only absolute http and https URLs are accepted"}
		}
		return sanitized(clean)
	},
	"sql": func(in string, _ int) checkResult {
		return sanitized(inputguard.PreventSQLInjection(in))
	},
	"alnum": func(in string, limit int) checkResult {
		return sanitized(inputguard.SanitizeAlphanumeric(in, limit))
	},
	"richtext": func(in string, _ int) checkResult {
		return sanitized(inputguard.SanitizeRichText(in))
	},
}

// defaultLimits apply when --max is not given
var defaultLimits = map[string]int{
	"text":  inputguard.DefaultStringLength,
	"alnum": inputguard.DefaultAlphanumericLength,
}

var checkCmd = &cobra.Command{
	Use:   "check <kind> <input>",
	Short: "Run input through a sanitizer or validator",
	Long: `Run input through one of the input guard functions and print the result.
Validators exit non-zero when the input is rejected.

Kinds: ` + strings.Join(checkKindNames(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: runCheckCommand,
}

var checkMax int

func init() {
	checkCmd.Flags().IntVar(&checkMax, "max", 0, "Maximum length for text and alnum (default per kind)")

	rootCmd.AddCommand(checkCmd)
}

func runCheckCommand(cmd *cobra.Command, args []string) error {
	kind, input := args[0], args[1]

	fn, ok := checkKinds[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q (want one of: %s)", kind, strings.Join(checkKindNames(), ", "))
	}

	limit := checkMax
	if limit <= 0 {
		limit = defaultLimits[kind]
	}

	result := fn(input, limit)
	out := cmd.OutOrStdout()

	if result.Value != "" {
		fmt.Fprintln(out, strconv.Quote(result.Value))
	}

	if !result.Valid {
		return fmt.Errorf("rejected: %s", result.Message)
	}

	fmt.Fprintln(out, "✓ ok")
	return nil
}

func checkKindNames() []string {
	names := make([]string, 0, len(checkKinds))
	for name := range checkKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
