package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes bounds uploaded captures.
const MaxImageBytes = 15 << 20

var (
	// ErrEmptyImage is returned for a zero-length upload.
	ErrEmptyImage = errors.New("empty image")
	// ErrUnsupportedImage is returned when the bytes are not a known format.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when an upload exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image too large")
)

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Format   string `json:"format"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Inspect reads the header of an encoded image.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return Info{}, fmt.Errorf("%d bytes: %w", len(data), ErrImageTooLarge)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return Info{
		Format:   format,
		MIMEType: mimeTypes[format],
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// DecodeMat decodes an encoded image into a BGR Mat. OpenCV is tried first;
// formats it was built without go through the Go decoders.
// The caller is responsible for closing the returned Mat.
func DecodeMat(data []byte) (gocv.Mat, error) {
	if _, err := Inspect(data); err != nil {
		return gocv.NewMat(), err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return gocv.ImageToMatRGB(img)
}

// EncodeJPEG encodes a Mat as JPEG bytes.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
