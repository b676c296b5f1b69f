package command

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchRunsCommand(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "touched")

	d := New(silentLogger(), 100, 10)
	d.Dispatch("touch " + marker)

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestDispatchFailureDoesNotPanic(t *testing.T) {
	d := New(silentLogger(), 100, 10)
	require.NotPanics(t, func() {
		d.Dispatch("")
		time.Sleep(10 * time.Millisecond)
	})
}

func TestDispatchRejectsInvalidCommand(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "touched")

	d := New(silentLogger(), 100, 10)
	d.Dispatch("touch " + marker + "\x00; rm -rf /")
	time.Sleep(20 * time.Millisecond)

	_, err := os.Stat(marker)
	require.True(t, os.IsNotExist(err))
}

func TestDispatchRateLimited(t *testing.T) {
	dir := t.TempDir()
	d := New(silentLogger(), 0.001, 1)

	for i := 0; i < 5; i++ {
		d.Dispatch("touch " + filepath.Join(dir, "f"))
	}
	time.Sleep(50 * time.Millisecond)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.LessOrEqual(t, len(entries), 1)
}
