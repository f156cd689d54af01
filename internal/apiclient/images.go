package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/isdelr/blog-client/internal/models"
)

// ImageUpload is a file to send as multipart form data.
type ImageUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Type        models.ImageType // ignored for profile pictures
	AltText     string
	Description string
}

// ImageFile is the binary content of an image.
type ImageFile struct {
	ContentType string
	Data        []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (u ImageUpload) encode(withType bool) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(u.FileName)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, u.Body); err != nil {
		return nil, "", err
	}

	if withType {
		if err := mw.WriteField("imageType", string(u.Type)); err != nil {
			return nil, "", err
		}
	}
	if u.AltText != "" {
		if err := mw.WriteField("altText", u.AltText); err != nil {
			return nil, "", err
		}
	}
	if u.Description != "" {
		if err := mw.WriteField("description", u.Description); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// UploadImage uploads a post image.
func (c *Client) UploadImage(ctx context.Context, u ImageUpload) (models.Image, error) {
	if u.Type == "" {
		u.Type = models.ImageFeatured
	}
	return c.upload(ctx, "upload image", "/images/upload", u, true)
}

// UploadProfilePicture uploads and replaces the user's profile picture.
func (c *Client) UploadProfilePicture(ctx context.Context, u ImageUpload) (models.Image, error) {
	return c.upload(ctx, "upload profile picture", "/images/profile-picture", u, false)
}

func (c *Client) upload(ctx context.Context, op, path string, u ImageUpload, withType bool) (models.Image, error) {
	if u.Body == nil {
		return models.Image{}, Validation("no file selected")
	}
	body, contentType, err := u.encode(withType)
	if err != nil {
		return models.Image{}, fmt.Errorf("%s: encode form: %w", op, err)
	}
	var img models.Image
	err = c.doJSON(ctx, call{op: op, method: http.MethodPost, path: path, body: body, contentType: contentType}, &img)
	return img, err
}

func imagePath(id int64) string {
	return "/images/" + strconv.FormatInt(id, 10)
}

// GetImage fetches image metadata.
func (c *Client) GetImage(ctx context.Context, id int64) (models.Image, error) {
	var img models.Image
	err := c.doJSON(ctx, call{op: "fetch image", method: http.MethodGet, path: imagePath(id)}, &img)
	return img, err
}

// GetImageFile fetches the image binary.
func (c *Client) GetImageFile(ctx context.Context, id int64) (ImageFile, error) {
	const op = "fetch image file"
	resp, err := c.send(ctx, call{op: op, method: http.MethodGet, path: imagePath(id) + "/file"})
	if err != nil {
		return ImageFile{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImageFile{}, &Error{Kind: KindNetwork, Status: resp.StatusCode, Op: op, Message: "could not read image", Err: err}
	}
	return ImageFile{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// GetUserProfilePicture fetches the profile picture metadata of a user.
func (c *Client) GetUserProfilePicture(ctx context.Context, userID int64) (models.Image, error) {
	var img models.Image
	err := c.doJSON(ctx, call{
		op:     "fetch profile picture",
		method: http.MethodGet,
		path:   "/images/profile/" + strconv.FormatInt(userID, 10),
	}, &img)
	return img, err
}
