package fray

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// CaptureImage returns the most recent display pass output as an RGBA
// image at the current canvas pixel size: fully tone-mapped, top row
// first. Run at least one tick (or an export) before capturing.
func (r *Renderer) CaptureImage() (*image.RGBA, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	return r.captureImage()
}

func (r *Renderer) captureImage() (*image.RGBA, error) {
	pix, w, h, err := r.dev.ReadDisplay()
	if err != nil {
		return nil, fmt.Errorf("fray: read display: %w", err)
	}
	if len(pix) != w*h*4 {
		return nil, fmt.Errorf("fray: display readback size mismatch: got %d bytes for %dx%d", len(pix), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pix)
	return img, nil
}

// EncodePNG writes the captured display image as PNG.
func (r *Renderer) EncodePNG(w io.Writer) error {
	img, err := r.CaptureImage()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("fray: encode png: %w", err)
	}
	return nil
}

// scaleImage resamples src to width x height with a Catmull-Rom kernel.
// Used to fold supersampled exports down to the requested size.
func scaleImage(src *image.RGBA, width, height int) *image.RGBA {
	if b := src.Bounds(); b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
