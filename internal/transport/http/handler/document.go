package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatplatform/internal/app"
	"chatplatform/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload accepts a multipart form with a single "file" part, extracts its
// text and stores it under the course in the path.
func (h *DocumentHandler) Upload(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file upload")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unreadable file upload")
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		AdminID:     adminID,
		CourseID:    courseID,
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload document failed")
		}
		return
	}

	response.OK(c, gin.H{
		"id":           doc.ID,
		"course_id":    doc.CourseID,
		"name":         doc.Name,
		"content_type": doc.ContentType,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	docs, err := h.documentService.List(adminID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		}
		return
	}

	items := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		items = append(items, gin.H{
			"id":           doc.ID,
			"name":         doc.Name,
			"content_type": doc.ContentType,
			"created_at":   doc.CreatedAt,
		})
	}
	response.OK(c, gin.H{"documents": items})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	documentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), adminID, documentID); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted": documentID})
}
