package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/service"
)

// multipartOverhead is the request body allowance on top of the file size limit
// for multipart boundaries and part headers.
const multipartOverhead = 64 << 10

// MemeHandler handles meme-related endpoints.
type MemeHandler struct {
	errorResponder
	uploads  *service.UploadService
	memes    *service.MemeService
	baseURL  string
	maxBytes int64
}

// NewMemeHandler creates a new meme handler.
// Parameters:
//   - uploads: upload pipeline.
//   - memes: read and delete operations.
//   - baseURL: prefix for fullImageUrl.
//   - maxBytes: upload size limit.
//   - showDetails: include error details in responses.
// Returns:
//   - *MemeHandler: initialized handler.
func NewMemeHandler(uploads *service.UploadService, memes *service.MemeService, baseURL string, maxBytes int64, showDetails bool) *MemeHandler {
	return &MemeHandler{
		errorResponder: errorResponder{showDetails: showDetails},
		uploads:        uploads,
		memes:          memes,
		baseURL:        baseURL,
		maxBytes:       maxBytes,
	}
}

// UploadMeme handles POST /api/memes/upload with the image in form field "image".
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MemeHandler) UploadMeme(c *gin.Context) {
	bodyLimit := h.maxBytes + multipartOverhead
	if c.Request.ContentLength > bodyLimit {
		h.failWith(c, http.StatusBadRequest, msgFileTooLarge, domain.ErrFileTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.failWith(c, http.StatusBadRequest, msgFileTooLarge, fmt.Errorf("%w: %v", domain.ErrFileTooLarge, err))
			return
		}
		// missing field and malformed multipart bodies alike
		h.failWith(c, http.StatusBadRequest, msgNoFile, domain.NewValidationError(err.Error()))
		return
	}

	file, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	meme, err := h.uploads.Upload(c.Request.Context(), service.UploadRequest{
		File:        file,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"meme":    domain.NewMemeView(meme, h.baseURL),
	})
}

// ListMemes handles GET /api/memes?page=&limit=.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MemeHandler) ListMemes(c *gin.Context) {
	// unparsable values fall back to the defaults
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.memes.List(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	views := make([]domain.MemeView, 0, len(result.Memes))
	for i := range result.Memes {
		views = append(views, domain.NewMemeView(&result.Memes[i], h.baseURL))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"memes":   views,
		"pagination": gin.H{
			"total": result.Total,
			"page":  result.Page,
			"pages": result.Pages(),
			"limit": result.Limit,
		},
	})
}

// GetMeme handles GET /api/memes/:id.
func (h *MemeHandler) GetMeme(c *gin.Context) {
	meme, err := h.memes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"meme":    domain.NewMemeView(meme, h.baseURL),
	})
}

// DeleteMeme handles DELETE /api/memes/:id.
func (h *MemeHandler) DeleteMeme(c *gin.Context) {
	meme, err := h.memes.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Meme deleted successfully",
		"deletedMeme": meme,
	})
}
