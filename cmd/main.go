package main

import (
	"fmt"
	"os"

	"github.com/amar635/esaksham-rev/internal/db"
	"github.com/amar635/esaksham-rev/internal/handlers"
	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/middleware"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/server"
	"github.com/amar635/esaksham-rev/internal/services"
	"github.com/amar635/esaksham-rev/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	uploadFolder := utils.GetEnv("UPLOAD_FOLDER", "uploads", log)
	scormFolder := utils.GetEnv("SCORM_FOLDER", "scorm_packages", log)

	for _, dir := range []string{uploadFolder, scormFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Could not create storage folder", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	cmiEntryRepo := repos.NewCMIEntryRepo(thePG, log)
	statementRepo := repos.NewStatementRepo(thePG, log)
	activityRepo := repos.NewActivityRepo(thePG, log)
	agentRepo := repos.NewAgentRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	sessionStore := services.NewSessionStore()
	courseService := services.NewCourseService(thePG, log, courseRepo, scormFolder)
	runtimeService := services.NewRuntimeService(thePG, log, sessionStore, cmiEntryRepo)
	statementService := services.NewStatementService(thePG, log, statementRepo, activityRepo, agentRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	courseHandler := handlers.NewCourseHandler(log, courseService, uploadFolder)
	scormHandler := handlers.NewScormHandler(log, runtimeService)
	lrsHandler := handlers.NewLRSHandler(log, statementService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		CourseHandler:  courseHandler,
		ScormHandler:   scormHandler,
		LRSHandler:     lrsHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
