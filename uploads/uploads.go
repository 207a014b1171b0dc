// Package uploads handles binary picture assets. Files land under
// static/uploads with a generated name and a fixed-width thumbnail; the
// public URL is served from the static file routes.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"forkful/auth"
	"forkful/utils"
)

const (
	uploadDir = "./static/uploads"
	thumbDir  = "./static/uploads/thumbs"
	thumbSize = 320
)

var extByType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
}

// SaveImage writes an uploaded image under dir with the given base name,
// rejecting anything that is not PNG or JPEG. It returns the stored filename.
func SaveImage(file multipart.File, header *multipart.FileHeader, dir, baseName string) (string, error) {
	ext, ok := extByType[header.Header.Get("Content-Type")]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", header.Header.Get("Content-Type"))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := baseName + "." + ext
	out, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return filename, nil
}

// UploadRecipePicture stores a recipe image and responds with its name and
// public URL. Thumbnail generation is best effort.
func UploadRecipePicture(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	name, err := SaveImage(file, header, uploadDir, uuid.New().String())
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Wrong filetype")
		return
	}

	if err := writeThumb(name); err != nil {
		log.Warn().Err(err).Str("image", name).Msg("thumbnail generation failed")
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"name": name,
		"url":  "/static/uploads/" + name,
	})
}

// DeleteRecipePicture removes a previously uploaded image and its thumbnail.
func DeleteRecipePicture(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	// Strip any path components so names cannot escape the upload dir.
	name := filepath.Base(ps.ByName("imageName"))
	if name == "." || strings.HasPrefix(name, "..") {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid image name")
		return
	}

	if err := os.Remove(filepath.Join(uploadDir, name)); err != nil {
		if os.IsNotExist(err) {
			utils.RespondWithError(w, http.StatusNotFound, "Image not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}
	_ = os.Remove(filepath.Join(thumbDir, name))

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Image deleted"})
}

func writeThumb(name string) error {
	img, err := imaging.Open(filepath.Join(uploadDir, name))
	if err != nil {
		return err
	}
	thumb := imaging.Resize(img, thumbSize, 0, imaging.Lanczos)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return err
	}
	return imaging.Save(thumb, filepath.Join(thumbDir, name))
}
