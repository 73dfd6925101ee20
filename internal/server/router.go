package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/amar635/esaksham-rev/internal/handlers"
	"github.com/amar635/esaksham-rev/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	CourseHandler  *handlers.CourseHandler
	ScormHandler   *handlers.ScormHandler
	LRSHandler     *handlers.LRSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Wildcard CORS: the LRS and SCORM bridge are called cross-origin from
	// embedded player content. Preflights answer with an empty 200.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Authorization", "Content-Type", "X-Experience-API-Version"},
		OptionsResponseStatusCode: http.StatusOK,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// LMS: course registry and the SCORM runtime bridge, learner-scoped.
	lms := router.Group("/api/lms")
	lms.Use(cfg.AuthMiddleware.RequireLearner())
	{
		lms.POST("/courses", cfg.CourseHandler.Upload)
		lms.GET("/courses", cfg.CourseHandler.List)
		lms.GET("/courses/:id", cfg.CourseHandler.Get)
		lms.GET("/courses/:id/launch", cfg.CourseHandler.Launch)

		scorm := lms.Group("/scorm/:course_id")
		scorm.POST("/initialize", cfg.ScormHandler.Initialize)
		scorm.POST("/get_value", cfg.ScormHandler.GetValue)
		scorm.POST("/set_value", cfg.ScormHandler.SetValue)
		scorm.POST("/commit", cfg.ScormHandler.Commit)
		scorm.POST("/finish", cfg.ScormHandler.Finish)
		scorm.POST("/get_last_error", cfg.ScormHandler.GetLastError)
		scorm.POST("/get_error_string", cfg.ScormHandler.GetErrorString)
		scorm.POST("/get_diagnostic", cfg.ScormHandler.GetDiagnostic)
	}

	// LRS: xAPI statement surface, basic-authenticated.
	lrs := router.Group("/api/lrs")
	lrs.GET("/about", cfg.LRSHandler.About)
	authed := lrs.Group("")
	authed.Use(cfg.AuthMiddleware.RequireLRSAuth())
	{
		authed.PUT("/statements", cfg.LRSHandler.PutStatement)
		authed.GET("/statements", cfg.LRSHandler.GetStatements)
		authed.GET("/statements/:id", cfg.LRSHandler.GetStatement)
		authed.GET("/activities/*id", cfg.LRSHandler.GetActivity)
		authed.GET("/stats", cfg.LRSHandler.Stats)
	}

	return router
}
