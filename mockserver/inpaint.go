package mockserver

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// maskThreshold 亮度大于等于该值的 mask 像素视为需要擦除
const maskThreshold = 128

// Inpaint fills every masked pixel of img with the mean color of the pixels
// that are not masked. The mask is stretched to the image size first. It is a
// stand-in for the real model, good enough to make results visibly differ
// from the input.
func Inpaint(img, mask image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	if w == 0 || h == 0 {
		return dst
	}

	m := mask
	if mb := mask.Bounds(); mb.Dx() != w || mb.Dy() != h {
		m = resize.Resize(uint(w), uint(h), mask, resize.NearestNeighbor)
	}
	mb := m.Bounds()

	masked := make([]bool, w*h)
	var sumR, sumG, sumB, n uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if color.GrayModel.Convert(m.At(mb.Min.X+x, mb.Min.Y+y)).(color.Gray).Y >= maskThreshold {
				masked[y*w+x] = true
				continue
			}
			i := y*dst.Stride + x*4
			sumR += uint64(dst.Pix[i])
			sumG += uint64(dst.Pix[i+1])
			sumB += uint64(dst.Pix[i+2])
			n++
		}
	}

	fill := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	if n > 0 {
		fill = color.NRGBA{R: uint8(sumR / n), G: uint8(sumG / n), B: uint8(sumB / n), A: 255}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !masked[y*w+x] {
				continue
			}
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = fill.R, fill.G, fill.B, fill.A
		}
	}
	return dst
}
