package models

// ImageType is the upload category of an image.
type ImageType string

const (
	ImageFeatured       ImageType = "FEATURED_IMAGE"
	ImageProfilePicture ImageType = "PROFILE_PICTURE"
)

// Image describes an uploaded image. Images are never mutated, only replaced.
type Image struct {
	ID          int64      `json:"id"`
	FileName    string     `json:"fileName"`
	FilePath    string     `json:"filePath,omitempty"`
	URL         string     `json:"url,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	FileSize    int64      `json:"fileSize,omitempty"`
	ImageType   ImageType  `json:"imageType"`
	AltText     string     `json:"altText,omitempty"`
	Description string     `json:"description,omitempty"`
	UploaderID  int64      `json:"uploaderId,omitempty"`
	CreatedAt   *Timestamp `json:"createdAt,omitempty"`
}

// Location is the reference a post or profile should store for this image.
func (i Image) Location() string {
	if i.FilePath != "" {
		return i.FilePath
	}
	return i.URL
}
