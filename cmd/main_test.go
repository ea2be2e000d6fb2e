package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talentlink/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// writeWebConfig points the CLI at a plain sqlite store in a temp directory
func writeWebConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "platform: web\n" +
		"log_level: error\n" +
		"secure_store:\n" +
		"  web_backend: sqlite\n" +
		"  database_path: " + filepath.Join(dir, "store.db") + "\n"

	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "email", " A@B.com ")
	require.NoError(t, err)
	assert.Equal(t, "\"a@b.com\"\n✓ ok\n", out)

	_, err = execute(t, "check", "password", "short1A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 8 characters long")

	_, err = execute(t, "check", "url", "javascript:alert(1)")
	assert.Error(t, err)

	out, err = execute(t, "check", "html", "<b>")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;")

	out, err = execute(t, "check", "--max", "3", "text", "<abcdef>")
	require.NoError(t, err)
	assert.Contains(t, out, "\"ab\"")

	out, err = execute(t, "check", "phone", "+1 (555) 010-0100")
	require.NoError(t, err)
	assert.Contains(t, out, "\"+1 (555) 010-0100\"")

	_, err = execute(t, "check", "phone", "x 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid phone number")

	_, err = execute(t, "check", "zipcode", "12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestCheckKindsCoverEveryGuard(t *testing.T) {
	for _, kind := range []string{"text", "email", "password", "html", "phone", "url", "sql", "alnum", "richtext"} {
		assert.Contains(t, checkKinds, kind)
	}
}

func TestSessionCommands(t *testing.T) {
	cfgPath := writeWebConfig(t)

	_, err := execute(t, "--config", cfgPath, "store", "set", "theme", "dark")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "store", "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, err = execute(t, "--config", cfgPath, "store", "get", "missing")
	assert.Error(t, err)

	out, err = execute(t, "--config", cfgPath, "login",
		"--email", " Ada@Example.com ",
		"--password", "pw",
		"--access-token", "tok",
		"--refresh-token", "ref",
		"--user-id", "u-1",
		"--name", "Ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com")
	assert.Contains(t, out, "does not encrypt")

	out, err = execute(t, "--config", cfgPath, "status", "--json")
	require.NoError(t, err)

	var status session.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Authenticated)
	assert.True(t, status.HasRefresh)
	assert.Equal(t, "sqlite", status.Backend)
	require.NotNil(t, status.User)
	assert.Equal(t, "u-1", status.User.ID)

	out, err = execute(t, "--config", cfgPath, "logout", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = execute(t, "--config", cfgPath, "store", "get", "auth_token")
	assert.Error(t, err)

	out, err = execute(t, "--config", cfgPath, "store", "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, err = execute(t, "--config", cfgPath, "logout", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	cfgPath := writeWebConfig(t)

	_, err := execute(t, "--config", cfgPath, "login",
		"--email", "not-an-email",
		"--password", "pw",
		"--access-token", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please enter a valid email address")
}
