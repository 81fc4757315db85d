package media

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

var (
	placeholderOnce sync.Once
	placeholderData []byte
)

// placeholderImage returns the fixed asset served for keys that resolve to
// nothing: a solid light-gray frame at thumbnail geometry. Generated once in
// process instead of shipping a binary fixture.
func placeholderImage() []byte {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, thumbWidth, thumbHeight))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}), image.Point{}, draw.Src)

		var buf bytes.Buffer
		// Encoding an in-memory RGBA cannot fail; ignore the error to keep the
		// placeholder path total.
		_ = png.Encode(&buf, img)
		placeholderData = buf.Bytes()
	})
	return placeholderData
}
