package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/services"
)

// ScormHandler is the runtime bridge consumed by in-browser player content.
// Every response is HTTP 200 with {result, errorCode}; the player protocol
// carries failures in the numeric code, never in the HTTP status. This is
// the only layer that translates typed service errors into SCORM codes.
type ScormHandler struct {
	log            *logger.Logger
	runtimeService services.RuntimeService
}

func NewScormHandler(log *logger.Logger, runtimeService services.RuntimeService) *ScormHandler {
	return &ScormHandler{
		log:            log.With("handler", "ScormHandler"),
		runtimeService: runtimeService,
	}
}

type scormResponse struct {
	Result    string `json:"result"`
	ErrorCode string `json:"errorCode"`
}

func scormOK(c *gin.Context) {
	c.JSON(http.StatusOK, scormResponse{Result: "true", ErrorCode: services.ScormErrNone})
}

func scormFail(c *gin.Context, code string) {
	c.JSON(http.StatusOK, scormResponse{Result: "false", ErrorCode: code})
}

// scormCode degrades any unexpected error to the general-exception code so
// player content never sees a raw failure.
func scormCode(err error) string {
	switch {
	case errors.Is(err, services.ErrNotInitialized):
		return services.ScormErrNotInitialized
	case errors.Is(err, services.ErrInvalidArgument):
		return services.ScormErrInvalidArg
	default:
		return services.ScormErrGeneral
	}
}

func scormCourseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("course_id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (h *ScormHandler) Initialize(c *gin.Context) {
	courseID, ok := scormCourseID(c)
	if !ok {
		scormFail(c, services.ScormErrGeneral)
		return
	}
	if err := h.runtimeService.Initialize(c.Request.Context(), nil, courseID); err != nil {
		scormFail(c, scormCode(err))
		return
	}
	scormOK(c)
}

func (h *ScormHandler) GetValue(c *gin.Context) {
	courseID, ok := scormCourseID(c)
	if !ok {
		c.JSON(http.StatusOK, scormResponse{Result: "", ErrorCode: services.ScormErrGeneral})
		return
	}
	var body struct {
		Element string `json:"element"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusOK, scormResponse{Result: "", ErrorCode: services.ScormErrGeneral})
		return
	}
	value, err := h.runtimeService.GetValue(c.Request.Context(), nil, courseID, body.Element)
	if err != nil {
		// Misses and failures alike surface as empty value + general code.
		c.JSON(http.StatusOK, scormResponse{Result: "", ErrorCode: services.ScormErrGeneral})
		return
	}
	c.JSON(http.StatusOK, scormResponse{Result: value, ErrorCode: services.ScormErrNone})
}

func (h *ScormHandler) SetValue(c *gin.Context) {
	courseID, ok := scormCourseID(c)
	if !ok {
		scormFail(c, services.ScormErrGeneral)
		return
	}
	var body struct {
		Element string `json:"element"`
		Value   string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		scormFail(c, services.ScormErrGeneral)
		return
	}
	if err := h.runtimeService.SetValue(c.Request.Context(), nil, courseID, body.Element, body.Value); err != nil {
		scormFail(c, scormCode(err))
		return
	}
	scormOK(c)
}

func (h *ScormHandler) Commit(c *gin.Context) {
	courseID, ok := scormCourseID(c)
	if !ok {
		scormFail(c, services.ScormErrGeneral)
		return
	}
	if err := h.runtimeService.Commit(c.Request.Context(), courseID); err != nil {
		scormFail(c, scormCode(err))
		return
	}
	scormOK(c)
}

func (h *ScormHandler) Finish(c *gin.Context) {
	courseID, ok := scormCourseID(c)
	if !ok {
		scormFail(c, services.ScormErrGeneral)
		return
	}
	if err := h.runtimeService.Finish(c.Request.Context(), courseID); err != nil {
		scormFail(c, scormCode(err))
		return
	}
	scormOK(c)
}

func (h *ScormHandler) GetLastError(c *gin.Context) {
	c.JSON(http.StatusOK, scormResponse{
		Result:    h.runtimeService.LastError(c.Request.Context()),
		ErrorCode: services.ScormErrNone,
	})
}

func (h *ScormHandler) GetErrorString(c *gin.Context) {
	var body struct {
		ErrorCode string `json:"errorCode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ErrorCode == "" {
		body.ErrorCode = services.ScormErrNone
	}
	c.JSON(http.StatusOK, scormResponse{
		Result:    h.runtimeService.ErrorString(body.ErrorCode),
		ErrorCode: services.ScormErrNone,
	})
}

func (h *ScormHandler) GetDiagnostic(c *gin.Context) {
	c.JSON(http.StatusOK, scormResponse{
		Result:    h.runtimeService.Diagnostic(c.Request.Context()),
		ErrorCode: services.ScormErrNone,
	})
}
