package rest

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfryer1193/postimport/api"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const assetCacheControl = "public, max-age=3600"

var assetContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

func (h *Handlers) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fileHeader, err = c.FormFile("file[]")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, api.UploadResponse{Msg: "No file found", Code: 1})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Str("file", fileHeader.Filename).Msg("Failed to open upload")
		c.JSON(http.StatusInternalServerError, api.UploadResponse{Msg: "Server Error", Code: 1})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("file", fileHeader.Filename).Msg("Failed to read upload")
		c.JSON(http.StatusInternalServerError, api.UploadResponse{Msg: "Server Error", Code: 1})
		return
	}

	_, publicURL, err := h.uploads.Save(c.Request.Context(), fileHeader.Filename, content)
	if err != nil {
		log.Error().Err(err).Str("file", fileHeader.Filename).Msg("Failed to store upload")
		c.JSON(http.StatusInternalServerError, api.UploadResponse{Msg: "Server Error", Code: 1})
		return
	}

	c.JSON(http.StatusOK, api.UploadResponse{
		Msg:  "Success",
		Code: 0,
		Data: &api.UploadData{
			ErrFiles: []string{},
			SuccMap:  map[string]string{fileHeader.Filename: publicURL},
		},
	})
}

// LocalImage serves a file from the assets root. Paths resolving outside the
// root are refused.
func (h *Handlers) LocalImage(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if rel == "" {
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	fullPath, ok := resolveAssetPath(h.assetsDir, rel)
	if !ok {
		log.Warn().Str("path", rel).Msg("Refused asset path outside the assets root")
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("path", fullPath).Msg("Failed to stat asset")
		}
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		log.Error().Err(err).Str("path", fullPath).Msg("Failed to read asset")
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	c.Header("Cache-Control", assetCacheControl)
	c.Data(http.StatusOK, contentTypeFor(fullPath), content)
}

// resolveAssetPath joins rel onto root and reports whether the result stays
// inside root.
func resolveAssetPath(root, rel string) (string, bool) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}

	fullPath := filepath.Join(rootAbs, filepath.FromSlash(rel))
	if fullPath != rootAbs && !strings.HasPrefix(fullPath, rootAbs+string(filepath.Separator)) {
		return "", false
	}
	return fullPath, true
}

func contentTypeFor(name string) string {
	if ct, ok := assetContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
