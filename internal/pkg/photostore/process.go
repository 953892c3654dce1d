package photostore

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	// decoders for formats imaging does not register itself
	_ "golang.org/x/image/webp"
)

const (
	MaxDimension = 2048
	PreviewWidth = 640
	WebPQuality  = 80
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Processed is the normalized photo ready for storage.
type Processed struct {
	Original    []byte
	Ext         string
	ContentType string
	Preview     []byte
	Latitude    *float64
	Longitude   *float64
	Width       int
	Height      int
}

// Process decodes the upload, downscales it to MaxDimension, renders a WebP
// preview and extracts GPS coordinates from EXIF when present.
func Process(data []byte, mime string) (*Processed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	out := &Processed{}
	out.Ext, out.ContentType = outputFormat(mime)
	format := imaging.JPEG
	if out.Ext == ".png" {
		format = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	out.Original = buf.Bytes()
	out.Width, out.Height = img.Bounds().Dx(), img.Bounds().Dy()

	preview := img
	if img.Bounds().Dx() > PreviewWidth {
		preview = imaging.Resize(img, PreviewWidth, 0, imaging.Lanczos)
	}
	if out.Preview, err = encodeWebP(preview); err != nil {
		log.Warnf("[PhotoStore] Could not render WebP preview: %v", err)
		out.Preview = nil
	}

	out.Latitude, out.Longitude = gpsFromExif(bytes.NewReader(data))
	return out, nil
}

// outputFormat keeps PNG for lossless sources and stores everything else as JPEG.
func outputFormat(mime string) (string, string) {
	if mime == "image/png" || mime == "image/gif" || mime == "image/bmp" {
		return ".png", "image/png"
	}
	return ".jpg", "image/jpeg"
}

func encodeWebP(img image.Image) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetPhoto, WebPQuality)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}
	return buf.Bytes(), nil
}

// gpsFromExif returns nil coordinates when the photo carries no GPS tags.
func gpsFromExif(r io.Reader) (*float64, *float64) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, nil
	}
	lat, long, err := x.LatLong()
	if err != nil {
		return nil, nil
	}
	return &lat, &long
}
