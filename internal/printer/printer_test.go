package printer

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	noColor := color.NoColor
	color.NoColor = true
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		color.NoColor = noColor
		SetOutput(os.Stdout, os.Stderr)
	})
	return &stdout, &stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", stderr.String())
	})

	t.Run("single suggestion", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	err := ErrorWithContext("Redis unreachable", "", map[string]string{
		"Namespace": "prod",
		"Addr":      "localhost:6379",
	}, nil)
	require.Equal(t, "Redis unreachable", err.Error())
	assert.Equal(t, "Redis unreachable\n\n\n  Addr: localhost:6379\n  Namespace: prod\n", stderr.String())
}

func TestMessages(t *testing.T) {
	stdout, _ := capture(t)

	Success("joined %s\n", "e1")
	Success("✓ already prefixed\n")
	Warning("degraded\n")
	Step("seeding\n")
	Info("plain %d\n", 1)

	assert.Equal(t, "✓ joined e1\n✓ already prefixed\n⚠️  degraded\n→ seeding\nplain 1\n", stdout.String())
}
