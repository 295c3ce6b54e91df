package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/benchmark"
	"github.com/chaos-io/eraser-bench/config"
	"github.com/chaos-io/eraser-bench/mockserver"
	"github.com/chaos-io/eraser-bench/store"
	"github.com/chaos-io/eraser-bench/util"
	nhttp "github.com/chaos-io/eraser-bench/util/http"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// testConfig points a config at a fresh mock server and benchmark folder.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(mockserver.New(mockserver.Config{Token: "TOKEN"}, nil).Handler())
	t.Cleanup(server.Close)

	root := t.TempDir()
	c := config.Default()
	c.APIURL = server.URL + mockserver.ErasePath
	c.APIToken = "TOKEN"
	c.BenchmarkFolder = filepath.Join(root, "bench")
	c.OutputFolder = filepath.Join(root, "out")

	writePNG(t, filepath.Join(c.BenchmarkFolder, "scene", "scene_.png"), 30, 20, color.NRGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(c.BenchmarkFolder, "scene", "mask1.png"), 30, 20, color.White)
	writePNG(t, filepath.Join(c.BenchmarkFolder, "empty", "notes.png_"), 1, 1, color.White)
	return c
}

func TestRunBenchmark(t *testing.T) {
	c := testConfig(t)
	jsonPath := filepath.Join(t.TempDir(), "summary.json")

	var out bytes.Buffer
	err := runBenchmark(context.Background(), c, benchmarkOptions{SummaryJSON: jsonPath, NoProgress: true}, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "mask1.png")
	assert.Contains(t, out.String(), "1 ok, 0 partial, 0 failed, 1 skipped groups")
	assert.FileExists(t, filepath.Join(c.OutputFolder, "mask1.png"))
	assert.FileExists(t, filepath.Join(c.OutputFolder, "mask1_demo.png"))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var summary benchmark.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, benchmark.StatusOK, summary.Results[0].Status())
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "empty", summary.Skipped[0].Group)
}

func TestRunBenchmark_WrongToken(t *testing.T) {
	c := testConfig(t)
	c.APIToken = "wrong"

	var out bytes.Buffer
	err := runBenchmark(context.Background(), c, benchmarkOptions{NoProgress: true}, zap.NewNop(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "0 ok, 0 partial, 1 failed")
	assert.NoFileExists(t, filepath.Join(c.OutputFolder, "mask1.png"))
}

func TestRunBenchmark_MissingFolder(t *testing.T) {
	c := testConfig(t)
	c.BenchmarkFolder = filepath.Join(t.TempDir(), "missing")

	err := runBenchmark(context.Background(), c, benchmarkOptions{NoProgress: true}, zap.NewNop(), &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunErase(t *testing.T) {
	c := testConfig(t)
	dir := filepath.Join(c.BenchmarkFolder, "scene")
	opts := eraseOptions{
		Image:  filepath.Join(dir, "scene_.png"),
		Mask:   filepath.Join(dir, "mask1.png"),
		Output: filepath.Join(t.TempDir(), "nested", "result.png"),
	}
	opts.Demo = filepath.Join(filepath.Dir(opts.Output), "demo.png")

	require.NoError(t, runErase(context.Background(), c, opts, zap.NewNop()))

	img, err := util.OpenImage(opts.Demo)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 90, 20), img.Bounds())

	opts.Mask = filepath.Join(dir, "missing.png")
	err = runErase(context.Background(), c, opts, zap.NewNop())
	var pe *benchmark.PairError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, benchmark.StageEncode, pe.Stage)
}

func TestRunScheduled(t *testing.T) {
	err := runScheduled(context.Background(), "not a cron expression", func() error { return nil }, zap.NewNop())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- runScheduled(ctx, "@every 1h", func() error {
			calls.Add(1)
			return nil
		}, zap.NewNop())
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop")
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRuns(&buf, nil))
	assert.Equal(t, "No runs recorded.\n", buf.String())

	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	buf.Reset()
	require.NoError(t, writeRuns(&buf, []store.RunRecord{{
		ID: "run1", StartedAt: start, FinishedAt: start.Add(2 * time.Second),
		Succeeded: 3, Partial: 1, Failed: 2, SkippedGroups: 1, OutputFolder: "benchmark_res",
	}}))
	assert.Contains(t, buf.String(), "RUN")
	assert.Contains(t, buf.String(), "run1")
	assert.Contains(t, buf.String(), "2s")
	assert.Contains(t, buf.String(), "benchmark_res")
}

func TestConfigFlags(t *testing.T) {
	require.NoError(t, rootCmd.PersistentFlags().Set("api-token", "from-flag"))
	t.Cleanup(func() {
		f := rootCmd.PersistentFlags().Lookup("api-token")
		_ = f.Value.Set("")
		f.Changed = false
	})

	c, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", c.APIToken)
	assert.Equal(t, config.DefaultOutputFolder, c.OutputFolder)
	assert.Equal(t, 30*time.Second, c.APITimeout)
}

func TestNewHTTPClientTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "default", timeout: 30 * time.Second},
		{name: "custom", timeout: 5 * time.Second},
		{name: "zero disables", timeout: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			c.APITimeout = tt.timeout

			hc, ok := newHTTPClient(c).(*nhttp.HTTPClient)
			require.True(t, ok)
			assert.Equal(t, tt.timeout, hc.Timeout())
		})
	}
}
