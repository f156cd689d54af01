package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/isdelr/blog-client/internal/auth"
	"github.com/isdelr/blog-client/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (b *Backend) requireViewer(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	v := b.viewer(r)
	if v == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return v, true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		writeText(w, http.StatusBadRequest, "Email is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userByEmailLocked(payload.Email) == nil {
		writeText(w, http.StatusBadRequest, "User not found with email: "+payload.Email)
		return
	}
	token := uuid.New().String()
	b.magicLinks[token] = strings.ToLower(payload.Email)
	b.lastLink[strings.ToLower(payload.Email)] = token
	writeText(w, http.StatusOK, "Magic link sent to your email. Please check your inbox and click the link to sign in.")
}

func (b *Backend) verifyMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	b.mu.Lock()
	email, ok := b.magicLinks[token]
	if ok {
		delete(b.magicLinks, token)
	}
	var user *models.User
	if ok {
		user = b.userByEmailLocked(email)
	}
	b.mu.Unlock()

	if user == nil {
		writeText(w, http.StatusBadRequest, "Invalid or expired magic link")
		return
	}
	jwtToken, err := auth.Sign(b.secret, auth.Claims{UserID: user.ID, Email: user.Email, Role: string(user.Role)}, time.Hour)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Magic link verification failed")
		return
	}
	writeText(w, http.StatusOK, jwtToken)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeText(w, http.StatusBadRequest, "Email is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userByEmailLocked(in.Email) != nil {
		writeText(w, http.StatusBadRequest, "Email is already registered")
		return
	}
	u := b.addUserLocked(models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleUser,
	})
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	v, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (b *Backend) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	viewer := b.viewer(r)

	b.mu.Lock()
	posts := b.visiblePostsLocked(viewer, q.Get("search"))
	b.mu.Unlock()

	total := len(posts)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, models.PostPage{
		Content:       posts[start:end],
		Number:        page,
		Size:          size,
		TotalElements: int64(total),
		TotalPages:    (total + size - 1) / size,
	})
}

func (b *Backend) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid post id")
		return
	}
	viewer := b.viewer(r)

	b.mu.Lock()
	p, found := b.posts[id]
	var post models.Post
	if found {
		post = *p
	}
	b.mu.Unlock()

	if !found {
		writeMessage(w, http.StatusNotFound, "Post not found with ID: "+strconv.FormatInt(id, 10))
		return
	}
	if !post.VisibleTo(viewer) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func decodePostInput(w http.ResponseWriter, r *http.Request) (models.PostInput, bool) {
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return in, false
	}
	switch {
	case strings.TrimSpace(in.Title) == "":
		writeMessage(w, http.StatusBadRequest, "title: must not be blank")
		return in, false
	case strings.TrimSpace(in.Content) == "":
		writeMessage(w, http.StatusBadRequest, "content: must not be blank")
		return in, false
	case !in.Status.Valid():
		writeMessage(w, http.StatusBadRequest, "status: must not be null")
		return in, false
	}
	return in, true
}

func applyPostInput(p *models.Post, in models.PostInput) {
	p.Title = in.Title
	p.Content = in.Content
	p.ImageURL = in.ImageURL
	p.ImageID = in.ImageID
	if in.Status == models.StatusPublished && p.Status != models.StatusPublished {
		p.PublishedAt = &models.Timestamp{Time: time.Now().UTC()}
	}
	if in.Status == models.StatusDraft {
		p.PublishedAt = nil
	}
	p.Status = in.Status
	p.UpdatedAt = &models.Timestamp{Time: time.Now().UTC()}
}

func (b *Backend) createPost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	in, ok := decodePostInput(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	b.nextPostID++
	now := &models.Timestamp{Time: time.Now().UTC()}
	p := &models.Post{ID: b.nextPostID, AuthorID: viewer.ID, AuthorName: viewer.DisplayName(), CreatedAt: now}
	applyPostInput(p, in)
	b.posts[p.ID] = p
	post := *p
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, post)
}

// editablePost loads the post named in the URL and checks viewer may change it.
func (b *Backend) editablePost(w http.ResponseWriter, r *http.Request, viewer *models.User) (*models.Post, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid post id")
		return nil, false
	}
	p, found := b.posts[id]
	if !found {
		writeMessage(w, http.StatusNotFound, "Post not found with ID: "+strconv.FormatInt(id, 10))
		return nil, false
	}
	if !p.EditableBy(viewer) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return p, true
}

func (b *Backend) updatePost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	in, ok := decodePostInput(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.editablePost(w, r, viewer)
	if !ok {
		return
	}
	applyPostInput(p, in)
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) deletePost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.editablePost(w, r, viewer)
	if !ok {
		return
	}
	delete(b.posts, p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) clapPost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, found := b.posts[id]
	if !found || !p.VisibleTo(viewer) {
		writeMessage(w, http.StatusNotFound, "Post not found with ID: "+strconv.FormatInt(id, 10))
		return
	}
	p.ClapsCount++
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) storeUpload(w http.ResponseWriter, r *http.Request, viewer *models.User, imageType models.ImageType) (models.Image, bool) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return models.Image{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "File is required")
		return models.Image{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Could not read file")
		return models.Image{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextImageID++
	id := strconv.FormatInt(b.nextImageID, 10)
	img := models.Image{
		ID:          b.nextImageID,
		FileName:    header.Filename,
		FilePath:    "/uploads/" + strings.ToLower(string(imageType)) + "/" + id + "-" + header.Filename,
		URL:         "/api/v1/images/" + id + "/file",
		ContentType: header.Header.Get("Content-Type"),
		FileSize:    int64(len(data)),
		ImageType:   imageType,
		AltText:     r.FormValue("altText"),
		Description: r.FormValue("description"),
		UploaderID:  viewer.ID,
		CreatedAt:   &models.Timestamp{Time: time.Now().UTC()},
	}
	b.images[img.ID] = &storedImage{meta: img, data: data}
	return img, true
}

func (b *Backend) uploadImage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	imageType := models.ImageType(r.FormValue("imageType"))
	if imageType != models.ImageFeatured && imageType != models.ImageProfilePicture {
		writeMessage(w, http.StatusBadRequest, "Image type is required")
		return
	}
	img, ok := b.storeUpload(w, r, viewer, imageType)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (b *Backend) uploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	img, ok := b.storeUpload(w, r, viewer, models.ImageProfilePicture)
	if !ok {
		return
	}
	b.mu.Lock()
	if u, found := b.users[viewer.ID]; found {
		u.ProfilePictureURL = img.URL
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, img)
}

func (b *Backend) lookupImage(w http.ResponseWriter, r *http.Request) (*storedImage, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid image id")
		return nil, false
	}
	b.mu.Lock()
	img, found := b.images[id]
	b.mu.Unlock()
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	if img.meta.ImageType != models.ImageFeatured {
		writeMessage(w, http.StatusForbidden, "Access denied. Only featured images are publicly accessible.")
		return nil, false
	}
	return img, true
}

func (b *Backend) getImage(w http.ResponseWriter, r *http.Request) {
	img, ok := b.lookupImage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, img.meta)
}

func (b *Backend) getImageFile(w http.ResponseWriter, r *http.Request) {
	img, ok := b.lookupImage(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", img.meta.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+img.meta.FileName+`"`)
	w.Write(img.data)
}

func (b *Backend) profilePicture(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	userID, ok := idParam(r, "userId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if viewer.Role != models.RoleAdmin && viewer.ID != userID {
		writeMessage(w, http.StatusForbidden, "Access denied. Users can only view their own profile pictures.")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var latest *storedImage
	for _, img := range b.images {
		if img.meta.UploaderID == userID && img.meta.ImageType == models.ImageProfilePicture {
			if latest == nil || img.meta.ID > latest.meta.ID {
				latest = img
			}
		}
	}
	if latest == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest.meta)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}
	// Absent bio/website keep their value; present ones, even empty, replace it.
	var in struct {
		models.ProfileInput
		Bio     *string `json:"bio"`
		Website *string `json:"website"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[viewer.ID]
	if in.Email != "" && !strings.EqualFold(in.Email, u.Email) {
		if other := b.userByEmailLocked(in.Email); other != nil {
			writeMessage(w, http.StatusBadRequest, "Email is already taken by another user.")
			return
		}
		u.Email = in.Email
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Website != nil {
		u.Website = *in.Website
	}
	writeJSON(w, http.StatusOK, u)
}
