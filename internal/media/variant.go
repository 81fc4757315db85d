package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Variant identifies a resized/re-encoded derivative of an upload.
type Variant string

const (
	VariantOriginal  Variant = "original"
	VariantThumbnail Variant = "thumbnail"
	VariantMedium    Variant = "medium"
	VariantLarge     Variant = "large"
)

// Fixed variant geometry. Thumbnail and medium are cover-fit (cropped to the
// exact aspect), large is inside-fit and never upscales.
const (
	thumbWidth, thumbHeight   = 300, 200
	mediumWidth, mediumHeight = 800, 600
	largeWidth, largeHeight   = 1600, 1200

	// defaultQuality is the JPEG re-encode target for derived variants.
	defaultQuality = 85
)

// VariantData is one encoded variant ready for a backend write.
type VariantData struct {
	Data        []byte
	ContentType string
}

// Size returns the encoded byte length.
func (v *VariantData) Size() int64 { return int64(len(v.Data)) }

// VariantSet holds every variant generated for one upload. Original is always
// present; the derived variants are nil when generation was short-circuited
// by PreserveOriginal, and Large is additionally nil when the source already
// fits inside the large bounds (inside-fit without upscaling would duplicate
// the original).
type VariantSet struct {
	Original  VariantData
	Thumbnail *VariantData
	Medium    *VariantData
	Large     *VariantData
}

// GenerateOptions control variant generation for one file.
type GenerateOptions struct {
	// PreserveOriginal passes the upload bytes through unchanged and disables
	// resizing and thumbnailing. Used for editorial content where re-encoding
	// is unacceptable.
	PreserveOriginal bool

	// Quality overrides the JPEG re-encode quality; zero means the default.
	Quality int
}

// Generate decodes data and derives the fixed variant set. Undecodable input
// fails the whole file with ErrInvalidImageData; no partial variants are
// returned.
func Generate(data []byte, contentType string, opts GenerateOptions) (*VariantSet, error) {
	if opts.PreserveOriginal {
		return &VariantSet{Original: VariantData{Data: data, ContentType: contentType}}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = defaultQuality
	}

	original, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode original: %v", ErrInvalidImageData, err)
	}
	thumb, err := encodeJPEG(imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos), quality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode thumbnail: %v", ErrInvalidImageData, err)
	}
	medium, err := encodeJPEG(imaging.Fill(img, mediumWidth, mediumHeight, imaging.Center, imaging.Lanczos), quality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode medium: %v", ErrInvalidImageData, err)
	}

	set := &VariantSet{Original: original, Thumbnail: &thumb, Medium: &medium}

	bounds := img.Bounds()
	if bounds.Dx() > largeWidth || bounds.Dy() > largeHeight {
		large, err := encodeJPEG(imaging.Fit(img, largeWidth, largeHeight, imaging.Lanczos), quality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode large: %v", ErrInvalidImageData, err)
		}
		set.Large = &large
	}
	return set, nil
}

func encodeJPEG(img image.Image, quality int) (VariantData, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return VariantData{}, err
	}
	return VariantData{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
}
