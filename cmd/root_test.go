package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camextract/internal/extract"
)

// isolate keeps defaults files and variables of the host out of the run.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(ConfigEnv, "")
	t.Chdir(dir)
	return dir
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 3))))
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Help(t *testing.T) {
	isolate(t)
	code, stdout, _ := runCmd("-help")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "usage: camextract"))
}

func TestRun_UsageErrors(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{},
		{"-bogus", "a.x3f"},
		{"-color", "CMYK", "a.x3f"},
		{"-o"},
	} {
		code, stdout, stderr := runCmd(args...)
		assert.Equal(t, 1, code, "args %q", args)
		assert.Empty(t, stdout, "args %q", args)
		assert.Contains(t, stderr, "usage: camextract", "args %q", args)
	}
}

func TestRun_Extracts(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	in := filepath.Join(dir, "shot.png")
	writePNG(t, in)

	code, stdout, stderr := runCmd("-ppm", "-unprocessed", "-o", out, in)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Read "+in)
	assert.Contains(t, stdout, "Files processed: 1\terrors: 0")

	data, err := os.ReadFile(filepath.Join(out, "shot.png.ppm"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("P6\n4 3\n65535\n")))
	_, err = os.Stat(filepath.Join(out, "shot.png.ppm.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ContinuesPastMissingFile(t *testing.T) {
	dir := isolate(t)
	a := filepath.Join(dir, "a.png")
	c := filepath.Join(dir, "c.png")
	writePNG(t, a)
	writePNG(t, c)

	code, stdout, stderr := runCmd("-ppm", "-unprocessed", "-progress", a, filepath.Join(dir, "missing.png"), c)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Files processed: 3\terrors: 1")
	assert.Contains(t, stderr, "missing.png")
	assert.Contains(t, stderr, "progress view needs a terminal")

	assert.FileExists(t, a+".ppm")
	assert.FileExists(t, c+".ppm")
}

func TestRun_Interrupted(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "a.png")
	writePNG(t, in)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-ppm", in}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Files processed: 0\terrors: 0")
	assert.NoFileExists(t, in+".ppm")
}

func TestRun_DefaultsFile(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "fromconfig")
	require.NoError(t, os.Mkdir(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "camextract.yaml"),
		[]byte("output: "+out+"\ncolor: none\n"), 0o644))
	in := filepath.Join(dir, "a.png")
	writePNG(t, in)

	code, _, stderr := runCmd("-ppm", in)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.FileExists(t, filepath.Join(out, "a.png.ppm"))
}

func TestWatchProgress_DrainsAfterViewFails(t *testing.T) {
	updates := make(chan extract.ProgressUpdate, 4)
	done := watchProgress(func() error { return errors.New("no terminal") }, updates, slog.New(slog.DiscardHandler))

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 0; i < 100; i++ {
			updates <- extract.ProgressUpdate{FilesDelta: 1}
		}
		close(updates)
	}()

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("sender blocked on a progress channel nobody reads")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not finish after updates closed")
	}
}
