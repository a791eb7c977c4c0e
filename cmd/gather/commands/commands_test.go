package commands

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gather/internal/config"
	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/pkg/store"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the commands at a fresh miniredis and captures output.
func setupCLI(t *testing.T) (*miniredis.Miniredis, *bytes.Buffer) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(config.EnvRedisURL, "redis://"+mr.Addr())
	t.Setenv(config.EnvNamespace, "cli")
	t.Setenv(config.EnvJWTSecret, "0123456789abcdef0123")

	var stdout, stderr bytes.Buffer
	noColor := color.NoColor
	color.NoColor = true
	printer.SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		color.NoColor = noColor
		printer.SetOutput(os.Stdout, os.Stderr)
	})

	return mr, &stdout
}

// resetFlags restores every flag to its default. Cobra keeps parsed values
// between Execute calls on the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, stdout *bytes.Buffer, args ...string) (string, error) {
	stdout.Reset()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), err
}

func TestRootCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "events", "join", "leave", "chat", "presence", "profile", "suggest", "rankings", "categories", "token"} {
		assert.True(t, names[want], want)
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	assert.Equal(t, "1.2.3 (commit: abc, built: today)", rootCmd.Version)
}

func TestCLIWorkflow(t *testing.T) {
	mr, stdout := setupCLI(t)
	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "cli")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	out, err := run(t, stdout, "profile", "set", "--user", "alice", "--name", "Alice", "--home", "41.90,2.80", "--radius", "150", "--category", "music")
	require.NoError(t, err)
	assert.Contains(t, out, "saved profile alice")

	_, err = run(t, stdout, "profile", "set", "--user", "bob", "--organizer")
	require.NoError(t, err)

	out, err = run(t, stdout, "events", "create", "--user", "bob", "--title", "Jazz night", "--category", "music",
		"--at", "41.00,2.00", "--start", "+1h", "--duration", "2h")
	require.NoError(t, err)
	match := regexp.MustCompile(`created event ([0-9a-f-]{36})`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)
	eventID := match[1]

	out, err = run(t, stdout, "events", "nearby", "--user", "alice", "-o", "jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, eventID)

	out, err = run(t, stdout, "events", "nearby", "--user", "alice", "--at", "41.90,2.80", "--radius", "50", "-o", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "No events found")

	t.Run("writing requires joining", func(t *testing.T) {
		_, err := run(t, stdout, "chat", "send", eventID, "hello", "--user", "alice")
		assert.EqualError(t, err, "not subscribed")
	})

	_, err = run(t, stdout, "join", eventID, "--user", "alice")
	require.NoError(t, err)

	_, err = run(t, stdout, "chat", "send", eventID, "hello", "there", "--user", "alice")
	require.NoError(t, err)

	out, err = run(t, stdout, "chat", "log", eventID)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "System: Chat created")
	assert.Contains(t, lines[1], "Alice: hello there")

	out, err = run(t, stdout, "chat", "log", eventID[:8], "--no-system", "--from", "ali*")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "Alice: hello there")

	t.Run("mark-read ignores output filters", func(t *testing.T) {
		out, err := run(t, stdout, "chat", "log", eventID, "--from", "system", "--mark-read", "--user", "alice")
		require.NoError(t, err)
		assert.Contains(t, out, "System: Chat created")
		assert.NotContains(t, out, "hello there")

		messages, err := client.ListMessages(context.Background(), eventID)
		require.NoError(t, err)
		cursor, err := client.GetReadCursor(context.Background(), "alice", eventID)
		require.NoError(t, err)
		assert.Equal(t, messages[len(messages)-1].ID, cursor.LastReadMessageID)
	})

	out, err = run(t, stdout, "presence", eventID, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Subscribers: 2")
	assert.Contains(t, out, "Online (last 2m0s): 1")

	out, err = run(t, stdout, "events", "mine", "--user", "alice", "--scope", "upcoming", "-o", "jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, eventID)

	out, err = run(t, stdout, "events", "show", eventID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Jazz night"`)

	_, err = run(t, stdout, "events", "show", eventID[:4])
	assert.Error(t, err)

	_, err = run(t, stdout, "events", "delete", eventID, "--user", "alice")
	assert.EqualError(t, err, "failed to delete event")

	_, err = run(t, stdout, "events", "delete", eventID, "--user", "bob")
	require.NoError(t, err)

	_, err = run(t, stdout, "events", "show", eventID)
	assert.Error(t, err)
}

func TestCLISuggestions(t *testing.T) {
	_, stdout := setupCLI(t)

	catalog := "categories:\n  - id: music\n    color: \"#E91E63\"\n    translations: {en: Music, es: Música}\n"
	require.NoError(t, os.WriteFile("catalog.yml", []byte(catalog), 0o644))

	out, err := run(t, stdout, "categories", "seed", "catalog.yml")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 categories")

	out, err = run(t, stdout, "categories", "list", "--lang", "es")
	require.NoError(t, err)
	assert.Contains(t, out, "Música")

	_, err = run(t, stdout, "suggest", "Yoga", "--user", "alice")
	require.NoError(t, err)
	_, err = run(t, stdout, "suggest", "yoga", "--user", "bob")
	require.NoError(t, err)

	_, err = run(t, stdout, "suggest", "?!", "--user", "bob")
	assert.Error(t, err)

	out, err = run(t, stdout, "rankings", "-o", "jsonl")
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"Yoga\",\"votes\":1}\n{\"name\":\"yoga\",\"votes\":1}\n", out)
}

func TestCLIRedisUnreachable(t *testing.T) {
	mr, stdout := setupCLI(t)
	mr.Close()

	_, err := run(t, stdout, "rankings")
	assert.EqualError(t, err, "Redis unreachable")
}

func TestTokenCommand(t *testing.T) {
	_, stdout := setupCLI(t)

	out, err := run(t, stdout, "token", "--user", "alice")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
