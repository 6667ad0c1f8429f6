package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/postimport/api"
	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const internalServerError = "Internal Server Error"

func (h *Handlers) SavePost(c *gin.Context) {
	req := &api.SavePostRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Invalid request body"})
		return
	}

	if req.Slug == "" || req.Content == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Missing required fields"})
		return
	}

	path, err := h.drafts.Save(c.Request.Context(), application.DraftInput{
		Slug:        req.Slug,
		Title:       req.Title,
		Content:     req.Content,
		Description: req.Description,
		PubDate:     req.PubDate,
		Tags:        req.Tags,
		HeroImage:   req.HeroImage,
	})
	if errors.Is(err, application.ErrInvalidDraft) {
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Invalid slug"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("slug", req.Slug).Msg("Failed to save post")
		c.JSON(http.StatusInternalServerError, api.MessageResponse{Message: internalServerError})
		return
	}

	c.JSON(http.StatusOK, api.SavePostResponse{Message: "Saved successfully", Path: path})
}

func (h *Handlers) ImportPost(c *gin.Context) {
	req := &api.ImportRequest{}
	if err := c.ShouldBindJSON(req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Missing required fields"})
		return
	}

	result, err := h.importer.Import(c.Request.Context(), req.URL)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Invalid URL"})
		return
	case errors.Is(err, application.ErrNoArticle):
		log.Warn().Err(err).Str("url", req.URL).Msg("No article found")
		c.JSON(http.StatusUnprocessableEntity, api.MessageResponse{Message: "Could not parse article content"})
		return
	case errors.Is(err, application.ErrFetchPage):
		log.Warn().Err(err).Str("url", req.URL).Msg("Source page unreachable")
		c.JSON(http.StatusBadGateway, api.MessageResponse{Message: "Could not fetch page"})
		return
	default:
		log.Error().Err(err).Str("url", req.URL).Msg("Failed to import post")
		c.JSON(http.StatusInternalServerError, api.MessageResponse{Message: internalServerError})
		return
	}

	c.JSON(http.StatusOK, api.ImportResponse{
		Message:     "Imported successfully",
		Slug:        result.Slug,
		Path:        result.PostPath,
		Images:      result.Images,
		Localized:   result.Localized,
		StaleAssets: result.StaleAssets,
	})
}

func (h *Handlers) SearchIndex(c *gin.Context) {
	entries, err := h.posts.SearchIndex(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build search index")
		c.JSON(http.StatusInternalServerError, api.MessageResponse{Message: internalServerError})
		return
	}

	resp := make([]api.SearchEntry, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, api.SearchEntry{
			Slug:        e.Slug,
			Title:       e.Title,
			Description: e.Description,
			PubDate:     e.PubDate,
			Tags:        e.Tags,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) PreviewPost(c *gin.Context) {
	slug := c.Param("slug")

	_, html, err := h.posts.Preview(c.Request.Context(), slug)
	if errors.Is(err, domain.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, api.MessageResponse{Message: "Post not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("Failed to render preview")
		c.JSON(http.StatusInternalServerError, api.MessageResponse{Message: internalServerError})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
