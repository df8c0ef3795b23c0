package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatplatform/internal/app"
	"chatplatform/internal/transport/http/response"
)

type TranscriptHandler struct {
	transcriptService *app.TranscriptService
}

func NewTranscriptHandler(transcriptService *app.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcriptService: transcriptService}
}

// History lists the archived channel messages of a course, oldest first.
func (h *TranscriptHandler) History(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	messages, err := h.transcriptService.History(adminID, courseID, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch transcript failed")
		}
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		items = append(items, gin.H{
			"sender":    msg.Sender,
			"message":   msg.Message,
			"timestamp": msg.Timestamp,
		})
	}
	response.OK(c, gin.H{"messages": items})
}
