// Package composite builds the side-by-side demo image: original, mask and
// result, left to right, each W×H.
package composite

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/chaos-io/eraser-bench/util"
)

// Panels is the number of images placed side by side.
const Panels = 3

var background = color.NRGBA{A: 255}

// Compose 把 mask 和 result 缩放到原图尺寸后横向拼接，输出宽 3W、高 H 的不透明图像
func Compose(original, mask, result image.Image) *image.NRGBA {
	w, h := original.Bounds().Dx(), original.Bounds().Dy()

	canvas := imaging.New(w*Panels, h, background)
	canvas = imaging.Overlay(canvas, original, image.Pt(0, 0), 1.0)
	canvas = imaging.Overlay(canvas, fit(mask, w, h), image.Pt(w, 0), 1.0)
	canvas = imaging.Overlay(canvas, fit(result, w, h), image.Pt(2*w, 0), 1.0)
	return canvas
}

// fit resizes img to exactly w×h unless it already has that size.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.Bicubic)
}

// ComposeFiles decodes the three inputs, composes them and saves the demo to
// savePath. The output format follows the savePath extension.
func ComposeFiles(imagePath, maskPath, resultPath, savePath string) error {
	original, err := util.OpenImage(imagePath)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	if original.Bounds().Empty() {
		return errors.New("original image has no pixels")
	}

	mask, err := util.OpenImage(maskPath)
	if err != nil {
		return fmt.Errorf("open mask: %w", err)
	}

	result, err := util.OpenImage(resultPath)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	if mask.Bounds().Empty() || result.Bounds().Empty() {
		return errors.New("mask or result image has no pixels")
	}

	if err := imaging.Save(Compose(original, mask, result), savePath); err != nil {
		return fmt.Errorf("save demo: %w", err)
	}
	return nil
}
