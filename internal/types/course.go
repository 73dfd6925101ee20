package types

import (
	"time"
)

// Course is one uploaded SCORM package. ManifestIdentifier is the
// organization item identifierref declared inside imsmanifest.xml and is the
// dedup key for repeat uploads; PackageID names the extraction directory.
type Course struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Description        string    `gorm:"type:text" json:"description"`
	ScormVersion       string    `json:"scorm_version"`
	PackagePath        string    `gorm:"not null" json:"package_path"`
	ManifestPath       string    `gorm:"not null" json:"manifest_path"`
	ManifestIdentifier *string   `gorm:"uniqueIndex" json:"manifest_identifier,omitempty"`
	ManifestTitle      string    `json:"manifest_title"`
	PackageID          string    `gorm:"not null" json:"package_id"`
	LaunchURL          string    `gorm:"not null" json:"launch_url"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}

func (Course) TableName() string { return "courses" }
