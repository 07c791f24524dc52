package llm

import (
	"context"
	"encoding/base64"
	"errors"
)

// ErrImageUnsupported is returned when a provider cannot generate images.
var ErrImageUnsupported = errors.New("provider does not support image generation")

// Image is one generated image.
type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the image bytes base64-encoded.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the image as a data: URI.
func (i *Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + i.Base64()
}

// ImageGenerator turns one text prompt into one image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// AsImageGenerator returns p as an ImageGenerator if it implements it.
func AsImageGenerator(p Provider) (ImageGenerator, error) {
	if ig, ok := p.(ImageGenerator); ok {
		return ig, nil
	}
	return nil, ErrImageUnsupported
}
