package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camextract/internal/config"
	"camextract/internal/container"
)

// fakeBackend opens any file whose content does not start with "corrupt".
// Dumps write the file content followed by the output label.
type fakeBackend struct {
	failLoad map[container.Selector]bool
	failDump map[string]bool

	gpuCalls []bool
	loads    []container.Selector
	released int
}

func (b *fakeBackend) SetGPUAcceleration(enabled bool) {
	b.gpuCalls = append(b.gpuCalls, enabled)
}

func (b *fakeBackend) Open(src container.Source, name string) (container.Container, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("corrupt")) {
		return nil, errors.New("bad header")
	}
	return &fakeContainer{backend: b, data: data}, nil
}

type fakeContainer struct {
	backend *fakeBackend
	data    []byte
}

func (c *fakeContainer) Load(sel container.Selector) error {
	c.backend.loads = append(c.backend.loads, sel)
	if c.backend.failLoad[sel] {
		return errors.New("load refused")
	}
	return nil
}

func (c *fakeContainer) write(path, label string) error {
	if c.backend.failDump[label] {
		// Leave a partial file behind like a real encoder would.
		_ = os.WriteFile(path, []byte("partial"), 0o644)
		return errors.New("encoder failed")
	}
	return os.WriteFile(path, append(append([]byte{}, c.data...), label...), 0o644)
}

func (c *fakeContainer) DumpJPEG(path string) error { return c.write(path, "jpeg") }
func (c *fakeContainer) DumpMeta(path string, _ int) error { return c.write(path, "meta") }
func (c *fakeContainer) DumpRaw(path string) error { return c.write(path, "raw") }
func (c *fakeContainer) DumpTIFF(path string, _ container.Render) error {
	return c.write(path, "tiff")
}
func (c *fakeContainer) DumpDNG(path string, _ container.Render) error {
	return c.write(path, "dng")
}
func (c *fakeContainer) DumpPPM(path string, _ container.Render, _ bool) error {
	return c.write(path, "ppm")
}
func (c *fakeContainer) DumpHistogram(path string, _ container.Render, _ bool) error {
	return c.write(path, "histogram")
}
func (c *fakeContainer) Release() error {
	c.backend.released++
	return nil
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parse(t *testing.T, args ...string) config.Config {
	t.Helper()
	cfg, _, err := config.Parse(append(args, "placeholder"), config.Default())
	require.NoError(t, err)
	return cfg
}

func assertPublished(t *testing.T, final, want string) {
	t.Helper()
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
	assert.NoFileExists(t, final+".tmp")
}

func TestRun_ContinuesPastMissingFile(t *testing.T) {
	dir := t.TempDir()
	first := writeInput(t, dir, "one.x3f", "1")
	missing := filepath.Join(dir, "two.x3f")
	third := writeInput(t, dir, "three.x3f", "3")

	backend := &fakeBackend{}
	var stdout bytes.Buffer
	d := NewDriver(backend, parse(t), &stdout, nil)

	summary, err := d.Run(context.Background(), []string{first, missing, third})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 2, summary.Published)
	assert.Equal(t, 1, summary.ExitCode())

	assertPublished(t, first+".dng", "1dng")
	assertPublished(t, third+".dng", "3dng")
	assert.NoFileExists(t, missing+".dng")
	assert.Equal(t, 2, backend.released)
	assert.Contains(t, stdout.String(), "Dump RAW as DNG to "+third+".dng")
}

func TestRun_PreviewAndRawPublishIndependently(t *testing.T) {
	tests := []struct {
		name        string
		backend     *fakeBackend
		wantJPEG    bool
		wantRaw     bool
		wantErrStep error
	}{
		{
			name:     "both succeed",
			backend:  &fakeBackend{},
			wantJPEG: true,
			wantRaw:  true,
		},
		{
			name:        "preview dump fails",
			backend:     &fakeBackend{failDump: map[string]bool{"jpeg": true}},
			wantRaw:     true,
			wantErrStep: ErrDump,
		},
		{
			name:        "sensor load fails",
			backend:     &fakeBackend{failLoad: map[container.Selector]bool{container.SelectSensorDecoded: true}},
			wantJPEG:    true,
			wantErrStep: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := writeInput(t, dir, "c.x3f", "c")

			d := NewDriver(tt.backend, parse(t, "-jpg", "-tiff"), io.Discard, nil)
			summary, err := d.Run(context.Background(), []string{in})
			require.NoError(t, err)

			if tt.wantJPEG {
				assertPublished(t, in+".jpg", "cjpeg")
			} else {
				assert.NoFileExists(t, in+".jpg")
				assert.NoFileExists(t, in+".jpg.tmp")
			}
			if tt.wantRaw {
				assertPublished(t, in+".tif", "ctiff")
			} else {
				assert.NoFileExists(t, in+".tif")
			}

			wantErrors := 0
			if tt.wantErrStep != nil {
				wantErrors = 1
			}
			assert.Equal(t, 1, summary.Files)
			assert.Equal(t, wantErrors, summary.Errors)
			assert.Equal(t, wantErrors, summary.ExitCode())
		})
	}
}

func TestProcessFile_Errors(t *testing.T) {
	dir := t.TempDir()
	corrupt := writeInput(t, dir, "bad.x3f", "corrupt data")

	d := NewDriver(&fakeBackend{}, parse(t, "-jpg", "-meta", "-dng"), io.Discard, nil)
	res := d.processFile(context.Background(), corrupt)
	require.Len(t, res.Errs, 1, "a header failure abandons every output of the file")
	assert.ErrorIs(t, res.Errs[0], ErrDecode)
	assert.Empty(t, res.Published)

	res = d.processFile(context.Background(), filepath.Join(dir, "absent.x3f"))
	require.Len(t, res.Errs, 1)
	assert.ErrorIs(t, res.Errs[0], ErrOpen)
	assert.ErrorIs(t, res.Errs[0], os.ErrNotExist)
}

func TestProcessFile_SharedLoadFailureCountsPerOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "c.x3f", "c")

	backend := &fakeBackend{failLoad: map[container.Selector]bool{container.SelectProperties: true}}
	d := NewDriver(backend, parse(t, "-jpg", "-meta", "-ppm"), io.Discard, nil)
	res := d.processFile(context.Background(), in)

	assert.Len(t, res.Errs, 2)
	assert.Equal(t, []string{in + ".jpg"}, res.Published)

	// Properties were attempted once and not retried for the raw output.
	var propLoads int
	for _, sel := range backend.loads {
		if sel == container.SelectProperties {
			propLoads++
		}
	}
	assert.Equal(t, 1, propLoads)
	assert.NotContains(t, backend.loads, container.SelectSensorDecoded)
}

func TestProcessFile_LoadsOnDemand(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "c.x3f", "c")

	backend := &fakeBackend{}
	d := NewDriver(backend, parse(t, "-raw"), io.Discard, nil)
	res := d.processFile(context.Background(), in)
	require.Empty(t, res.Errs)

	assert.Equal(t, []container.Selector{
		container.SelectProperties,
		container.SelectCalibration,
		container.SelectSensorBlock,
	}, backend.loads)
}

func TestProcessFile_PublishFailureKeepsTemp(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "c.x3f", "c")
	// A directory at the final name makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(in+".dng", "occupied"), 0o755))

	d := NewDriver(&fakeBackend{}, parse(t), io.Discard, nil)
	res := d.processFile(context.Background(), in)

	require.Len(t, res.Errs, 1)
	assert.ErrorIs(t, res.Errs[0], ErrPublish)
	data, err := os.ReadFile(in + ".dng.tmp")
	require.NoError(t, err)
	assert.Equal(t, "cdng", string(data))
}

func TestProcessFile_PathTooLong(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "c.x3f", "c")

	cfg := parse(t)
	cfg.OutputDir = strings.Repeat("d", 1001)
	d := NewDriver(&fakeBackend{}, cfg, io.Discard, nil)
	res := d.processFile(context.Background(), in)

	require.Len(t, res.Errs, 1)
	assert.ErrorIs(t, res.Errs[0], ErrPathTooLong)
}

func TestRun_OutputDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	in := writeInput(t, dir, "c.x3f", "c")

	d := NewDriver(&fakeBackend{}, parse(t, "-o", out, "-meta", "-histogram"), io.Discard, nil)
	summary, err := d.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExitCode())

	assertPublished(t, filepath.Join(out, "c.x3f.meta"), "cmeta")
	assertPublished(t, filepath.Join(out, "c.x3f.csv"), "chistogram")
	assert.NoFileExists(t, in+".csv")
}

func TestRun_GPUAndProgress(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.x3f", "a")
	b := writeInput(t, dir, "b.x3f", "corrupt")

	backend := &fakeBackend{}
	updates := make(chan ProgressUpdate, 8)
	d := NewDriver(backend, parse(t, "-ocl"), io.Discard, updates)
	_, err := d.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	close(updates)

	assert.Equal(t, []bool{true}, backend.gpuCalls)

	var total ProgressUpdate
	for u := range updates {
		total.TotalDelta += u.TotalDelta
		total.FilesDelta += u.FilesDelta
		total.ErrorDelta += u.ErrorDelta
		total.PublishedDelta += u.PublishedDelta
	}
	assert.Equal(t, ProgressUpdate{TotalDelta: 2, FilesDelta: 2, ErrorDelta: 1, PublishedDelta: 1}, total)
}

func TestRun_CancelledBetweenFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(&fakeBackend{}, parse(t), io.Discard, nil)
	summary, err := d.Run(ctx, []string{"never-opened.x3f"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Files)
}

func TestFail_LogsWrappedStageError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d := NewDriver(&fakeBackend{}, parse(t), io.Discard, nil)

	err := fmt.Errorf("retrying: %w", &StageError{Stage: StageDump, File: "a.x3f", Output: "JPEG", Err: assert.AnError})
	assert.Equal(t, err, d.fail(logger, &Job{Path: "a.x3f"}, err))
	assert.Contains(t, logs.String(), "stage=dump")
	assert.Contains(t, logs.String(), "output=JPEG")
}
