package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatplatform/internal/app"
	"chatplatform/internal/transport/http/response"
)

type PresetHandler struct {
	presetService *app.PresetService
}

type PresetRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=128"`
	Model       string  `json:"model" binding:"required"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	CourseID    uint    `json:"course_id" binding:"required"`
}

func NewPresetHandler(presetService *app.PresetService) *PresetHandler {
	return &PresetHandler{presetService: presetService}
}

func (h *PresetHandler) Create(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}

	var req PresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	preset, err := h.presetService.Create(app.PresetInput{
		AdminID:     adminID,
		Name:        req.Name,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		CourseID:    req.CourseID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPresetModelUnknown):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedModel, err.Error())
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create preset failed")
		}
		return
	}
	response.OK(c, preset)
}

func (h *PresetHandler) List(c *gin.Context) {
	presets, err := h.presetService.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list presets failed")
		return
	}
	response.OK(c, gin.H{"presets": presets})
}

func (h *PresetHandler) Get(c *gin.Context) {
	presetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	preset, err := h.presetService.Get(presetID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPresetNotFound):
			response.Error(c, http.StatusNotFound, response.CodePresetNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch preset failed")
		}
		return
	}
	response.OK(c, preset)
}

func (h *PresetHandler) Update(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	presetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req PresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	preset, err := h.presetService.Update(presetID, app.PresetInput{
		AdminID:     adminID,
		Name:        req.Name,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		CourseID:    req.CourseID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPresetNotFound):
			response.Error(c, http.StatusNotFound, response.CodePresetNotFound, err.Error())
		case errors.Is(err, app.ErrPresetModelUnknown):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedModel, err.Error())
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update preset failed")
		}
		return
	}
	response.OK(c, preset)
}

func (h *PresetHandler) Delete(c *gin.Context) {
	presetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.presetService.Delete(presetID); err != nil {
		switch {
		case errors.Is(err, app.ErrPresetNotFound):
			response.Error(c, http.StatusNotFound, response.CodePresetNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete preset failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted": presetID})
}

// Models exposes the supported model catalog so admin UIs can populate the
// preset form without hardcoding names.
func (h *PresetHandler) Models(c *gin.Context) {
	specs := h.presetService.Models()
	items := make([]gin.H, 0, len(specs))
	for _, spec := range specs {
		items = append(items, gin.H{
			"name":       spec.Name,
			"max_tokens": spec.MaxTokens,
			"chat":       spec.Chat,
		})
	}
	response.OK(c, gin.H{"models": items})
}
