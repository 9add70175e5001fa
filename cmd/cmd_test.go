package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

func TestFragmentPrinter(t *testing.T) {
	var buf bytes.Buffer
	sink := fragmentPrinter(&buf, false)
	ctx := context.Background()
	for _, f := range []stream.Fragment{
		stream.Thinking("Looking up parts"),
		stream.AnswerText("Replace the "),
		stream.AnswerText("drain pump."),
		stream.Parts([]catalog.Part{{PartNumber: "PS11746591", Name: "Drain Pump", Price: 59.5, InStock: true}}),
		stream.Done(42 * time.Millisecond),
	} {
		require.NoError(t, sink.Emit(ctx, f))
	}

	out := buf.String()
	assert.Contains(t, out, "... Looking up parts\n")
	assert.Contains(t, out, "Replace the drain pump.")
	assert.Contains(t, out, "PS11746591  Drain Pump  $59.50  in stock")
	assert.Contains(t, out, "(done in 42ms)")
}

func TestFragmentPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := fragmentPrinter(&buf, true)
	require.NoError(t, sink.Emit(context.Background(), stream.Failed("service temporarily unavailable")))

	var f stream.Fragment
	require.NoError(t, json.Unmarshal(buf.Bytes(), &f))
	assert.Equal(t, stream.KindFailed, f.Kind)
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "partsdesk.yml")
	cfg := strings.Join([]string{
		"provider: none",
		"embedding_provider: local",
		"data_dir: " + filepath.Join(dir, "data"),
		"cache:",
		"  backend: memory",
		"log:",
		"  level: error",
		"  format: console",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestCommandsEndToEnd(t *testing.T) {
	t.Setenv("CI", "true")
	path := writeConfig(t)

	out := run(t, "--config", path, "seed")
	assert.Contains(t, out, "Seeded")

	out = run(t, "--config", path, "index")
	assert.Contains(t, out, "0 failed")

	out = run(t, "--config", path, "ask", "Is PS11739035 compatible with WDT780SAEM1?")
	assert.Contains(t, out, "incompatible")
	assert.Contains(t, out, "tier=fast_path")

	out = run(t, "--config", path, "version")
	assert.Equal(t, "partsdesk dev\n", out)
}
