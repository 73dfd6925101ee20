package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/scorm"
	"github.com/amar635/esaksham-rev/internal/types"
)

// LaunchInfo is what the player page needs to start a course.
type LaunchInfo struct {
	CourseID  uint   `json:"course_id"`
	Title     string `json:"title"`
	PackageID string `json:"package_id"`
	LaunchURL string `json:"launch_url"`
}

type CourseService interface {
	// UploadPackage extracts and parses the archive, rejects duplicates by
	// manifest identifier (the extracted files are removed, no row is
	// written), and registers the course otherwise. The uploaded archive is
	// deleted after a successful registration.
	UploadPackage(ctx context.Context, tx *gorm.DB, archivePath, title, description string) (*types.Course, error)
	GetCourse(ctx context.Context, tx *gorm.DB, id uint) (*types.Course, error)
	ListCourses(ctx context.Context, tx *gorm.DB) ([]*types.Course, error)
	GetLaunchInfo(ctx context.Context, tx *gorm.DB, id uint) (*LaunchInfo, error)
}

type courseService struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	scormFolder string
}

func NewCourseService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, scormFolder string) CourseService {
	return &courseService{
		db:          db,
		log:         baseLog.With("service", "CourseService"),
		courseRepo:  courseRepo,
		scormFolder: scormFolder,
	}
}

func (s *courseService) UploadPackage(ctx context.Context, tx *gorm.DB, archivePath, title, description string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	packageID := uuid.New().String()
	extractPath := filepath.Join(s.scormFolder, packageID)

	manifest, err := scorm.ParsePackage(archivePath, extractPath, packageID, title, description)
	if err != nil {
		os.RemoveAll(extractPath)
		if errors.Is(err, scorm.ErrManifestMissing) || errors.Is(err, scorm.ErrManifestMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("parse package: %w", err)
	}

	if manifest.ManifestIdentifier != "" {
		existing, err := s.courseRepo.GetByManifestIdentifier(ctx, transaction, manifest.ManifestIdentifier)
		if err != nil {
			os.RemoveAll(extractPath)
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}
		if existing != nil {
			os.RemoveAll(extractPath)
			s.log.Info("duplicate package upload rejected",
				"manifest_identifier", manifest.ManifestIdentifier,
				"course_id", existing.ID)
			return nil, ErrDuplicatePackage
		}
	}

	course := &types.Course{
		Name:          manifest.Title,
		Description:   manifest.Description,
		ScormVersion:  manifest.ScormVersion,
		PackagePath:   manifest.PackagePath,
		ManifestPath:  manifest.ManifestPath,
		ManifestTitle: manifest.ManifestTitle,
		PackageID:     manifest.PackageID,
		LaunchURL:     manifest.LaunchURL,
		CreatedAt:     time.Now().UTC(),
	}
	if manifest.ManifestIdentifier != "" {
		course.ManifestIdentifier = &manifest.ManifestIdentifier
	}

	created, err := s.courseRepo.Create(ctx, transaction, course)
	if err != nil {
		os.RemoveAll(extractPath)
		return nil, fmt.Errorf("register course: %w", err)
	}

	if err := os.Remove(archivePath); err != nil {
		s.log.Warn("could not remove uploaded archive", "path", archivePath, "error", err)
	}

	s.log.Info("scorm package registered",
		"course_id", created.ID,
		"package_id", created.PackageID,
		"scorm_version", created.ScormVersion)
	return created, nil
}

func (s *courseService) GetCourse(ctx context.Context, tx *gorm.DB, id uint) (*types.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrNotFound
	}
	return course, nil
}

func (s *courseService) ListCourses(ctx context.Context, tx *gorm.DB) ([]*types.Course, error) {
	return s.courseRepo.GetAll(ctx, tx)
}

func (s *courseService) GetLaunchInfo(ctx context.Context, tx *gorm.DB, id uint) (*LaunchInfo, error) {
	course, err := s.GetCourse(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return &LaunchInfo{
		CourseID:  course.ID,
		Title:     course.Name,
		PackageID: course.PackageID,
		LaunchURL: course.LaunchURL,
	}, nil
}
