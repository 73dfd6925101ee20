package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/scorm"
	"github.com/amar635/esaksham-rev/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
	uploadFolder  string
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, uploadFolder string) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
		uploadFolder:  uploadFolder,
	}
}

// Upload accepts a multipart SCORM zip (fields: file, course_title,
// description), stores the archive, and hands it to the course service.
func (h *CourseHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".zip") {
		RespondError(c, http.StatusBadRequest, "bad_file_type", errors.New("please upload a ZIP file"))
		return
	}
	title := c.PostForm("course_title")
	description := c.PostForm("description")

	archivePath := filepath.Join(h.uploadFolder, uuid.New().String()+".zip")
	if err := c.SaveUploadedFile(file, archivePath); err != nil {
		RespondError(c, http.StatusInternalServerError, "save_failed", err)
		return
	}

	course, err := h.courseService.UploadPackage(c.Request.Context(), nil, archivePath, title, description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicatePackage):
			RespondError(c, http.StatusConflict, "duplicate_package", err)
		case errors.Is(err, scorm.ErrManifestMissing), errors.Is(err, scorm.ErrManifestMalformed):
			RespondError(c, http.StatusBadRequest, "invalid_package", err)
		default:
			RespondError(c, http.StatusBadRequest, "upload_failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseService.ListCourses(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
	id, err := parseCourseID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_course_id", err)
		return
	}
	course, err := h.courseService.GetCourse(c.Request.Context(), nil, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) Launch(c *gin.Context) {
	id, err := parseCourseID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_course_id", err)
		return
	}
	info, err := h.courseService.GetLaunchInfo(c.Request.Context(), nil, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "launch_failed", err)
		return
	}
	RespondOK(c, info)
}

func parseCourseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errors.New("course id must be numeric")
	}
	return uint(id), nil
}
