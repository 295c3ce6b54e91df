package benchmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEraser answers every request with the same result bytes.
type fakeEraser struct {
	mu        sync.Mutex
	calls     int
	eraseErr  error
	fetchErr  error
	result    []byte
	lastImage string
	lastMask  string
	// onErase runs inside every Erase call
	onErase func()
}

func (f *fakeEraser) Erase(ctx context.Context, imageB64, maskB64 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastImage, f.lastMask = imageB64, maskB64
	if f.onErase != nil {
		f.onErase()
	}
	if f.eraseErr != nil {
		return "", f.eraseErr
	}
	return "https://results.test/out.png", nil
}

func (f *fakeEraser) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.result, nil
}

func TestPipeline_EraseToFile(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "scene_.png")
	maskPath := filepath.Join(dir, "mask.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("img"), 0o644))
	require.NoError(t, os.WriteFile(maskPath, []byte("mask"), 0o644))

	f := &fakeEraser{result: []byte("erased bytes")}
	savePath := filepath.Join(dir, "out.png")
	require.NoError(t, NewPipeline(f, nil).EraseToFile(context.Background(), imagePath, maskPath, savePath))

	assert.Equal(t, "aW1n", f.lastImage)
	assert.Equal(t, "bWFzaw==", f.lastMask)
	got, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("erased bytes"), got)
}

func TestPipeline_EraseToFileStages(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "scene_.png")
	maskPath := filepath.Join(dir, "mask.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("img"), 0o644))
	require.NoError(t, os.WriteFile(maskPath, []byte("mask"), 0o644))

	tests := []struct {
		name      string
		eraser    *fakeEraser
		imagePath string
		savePath  string
		want      Stage
		wantCalls int
	}{
		{
			name:      "missing image",
			eraser:    &fakeEraser{},
			imagePath: filepath.Join(dir, "nope_.png"),
			savePath:  filepath.Join(dir, "out.png"),
			want:      StageEncode,
		},
		{
			name:      "request error",
			eraser:    &fakeEraser{eraseErr: errors.New("500")},
			imagePath: imagePath,
			savePath:  filepath.Join(dir, "out.png"),
			want:      StageRequest,
			wantCalls: 1,
		},
		{
			name:      "fetch error",
			eraser:    &fakeEraser{fetchErr: errors.New("404")},
			imagePath: imagePath,
			savePath:  filepath.Join(dir, "out.png"),
			want:      StageFetch,
			wantCalls: 1,
		},
		{
			name:      "save error",
			eraser:    &fakeEraser{result: []byte("x")},
			imagePath: imagePath,
			savePath:  filepath.Join(dir, "missing", "out.png"),
			want:      StageSave,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipeline(tt.eraser, nil).EraseToFile(context.Background(), tt.imagePath, maskPath, tt.savePath)
			var pe *PairError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Stage)
			assert.Equal(t, maskPath, pe.Mask)
			assert.Equal(t, tt.wantCalls, tt.eraser.calls)
			assert.NoFileExists(t, tt.savePath)
		})
	}
}

func TestDemoName(t *testing.T) {
	assert.Equal(t, "mask1_demo.png", DemoName("/b/scene/mask1.png"))
	assert.Equal(t, "a.b_demo.png", DemoName("a.b.png"))
}
