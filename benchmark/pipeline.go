package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/util"
)

// Eraser is the remote API as seen by the pipeline. *eraser.Client
// satisfies it.
type Eraser interface {
	Erase(ctx context.Context, imageB64, maskB64 string) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pipeline runs the encode → request → fetch → save steps for one pair.
type Pipeline struct {
	eraser Eraser
	logger *zap.Logger
}

func NewPipeline(eraser Eraser, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{eraser: eraser, logger: logger}
}

// EraseToFile sends imagePath and maskPath to the eraser and writes the
// returned image to savePath. Errors are *PairError.
func (p *Pipeline) EraseToFile(ctx context.Context, imagePath, maskPath, savePath string) error {
	imageB64, err := util.EncodeFileBase64(imagePath)
	if err != nil {
		return newPairError(StageEncode, maskPath, err)
	}
	maskB64, err := util.EncodeFileBase64(maskPath)
	if err != nil {
		return newPairError(StageEncode, maskPath, err)
	}

	resultURL, err := p.eraser.Erase(ctx, imageB64, maskB64)
	if err != nil {
		return newPairError(StageRequest, maskPath, err)
	}
	p.logger.Debug("request accepted",
		zap.String("image", imagePath),
		zap.String("mask", maskPath),
		zap.String("result_url", resultURL))

	data, err := p.eraser.Fetch(ctx, resultURL)
	if err != nil {
		return newPairError(StageFetch, maskPath, err)
	}

	if err := os.WriteFile(savePath, data, 0o644); err != nil {
		return newPairError(StageSave, maskPath, err)
	}
	p.logger.Info("image saved", zap.String("path", savePath), zap.Int("bytes", len(data)))
	return nil
}

// DemoName returns the demo file name for a mask: "<stem>_demo.png".
func DemoName(mask string) string {
	base := filepath.Base(mask)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_demo.png"
}
