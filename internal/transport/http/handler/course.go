package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatplatform/internal/app"
	"chatplatform/internal/model"
	"chatplatform/internal/transport/http/middleware"
	"chatplatform/internal/transport/http/response"
)

type CourseHandler struct {
	courseService *app.CourseService
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=256"`
	Description string `json:"description" binding:"max=4096"`
}

func NewCourseHandler(courseService *app.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

func (h *CourseHandler) Create(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}

	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	course, err := h.courseService.Create(app.CourseInput{
		AdminID:     adminID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create course failed")
		}
		return
	}
	response.OK(c, courseJSON(course))
}

func (h *CourseHandler) List(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}

	courses, err := h.courseService.List(adminID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list courses failed")
		return
	}

	items := make([]gin.H, 0, len(courses))
	for i := range courses {
		items = append(items, courseJSON(&courses[i]))
	}
	response.OK(c, gin.H{"courses": items})
}

func (h *CourseHandler) Get(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.Get(courseID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch course failed")
		}
		return
	}
	response.OK(c, courseJSON(course))
}

func (h *CourseHandler) Update(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	course, err := h.courseService.Update(courseID, app.CourseInput{
		AdminID:     adminID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update course failed")
		}
		return
	}
	response.OK(c, courseJSON(course))
}

func (h *CourseHandler) Delete(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.courseService.Delete(courseID, adminID); err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete course failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted": courseID})
}

// Members lists the external user ids recorded against the course channel.
func (h *CourseHandler) Members(c *gin.Context) {
	adminID, ok := adminIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ids, err := h.courseService.MemberIDs(courseID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCourseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeCourseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list course members failed")
		}
		return
	}
	response.OK(c, gin.H{"member_ids": ids, "count": len(ids)})
}

func courseJSON(course *model.Course) gin.H {
	return gin.H{
		"id":          course.ID,
		"title":       course.Title,
		"description": course.Description,
		"channel":     course.ChannelName(),
		"created_at":  course.CreatedAt,
	}
}

func adminIDFrom(c *gin.Context) (uint, bool) {
	idAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return 0, false
	}
	id, ok := idAny.(uint)
	if !ok || id == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(parsed), true
}
