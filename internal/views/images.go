package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/isdelr/blog-client/internal/apiclient"
)

// MaxImageSize is the largest file accepted for upload.
const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageFile is a file picked in an upload form.
type ImageFile struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	AltText     string
	Description string
}

// ValidateImage checks type and size before anything is sent.
func ValidateImage(f ImageFile) error {
	if f.Body == nil || f.Size == 0 {
		return apiclient.Validation("Please select an image to upload")
	}
	contentType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !allowedImageTypes[contentType] {
		return apiclient.Validation("Please select a valid image file (JPEG, PNG, GIF, or WebP)")
	}
	if f.Size > MaxImageSize {
		return apiclient.Validation(fmt.Sprintf("File size must be less than %dMB", MaxImageSize>>20))
	}
	return nil
}

func (f ImageFile) upload() apiclient.ImageUpload {
	return apiclient.ImageUpload{
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Body:        f.Body,
		AltText:     strings.TrimSpace(f.AltText),
		Description: strings.TrimSpace(f.Description),
	}
}
