package types

import (
	"time"
)

// CMIEntry is one element of the SCORM CMI data model for a learner on a
// course. Keys are opaque dot-paths ("cmi.core.lesson_status"); the store
// does not validate them. One row per (learner, course, key), updated in
// place, no history.
type CMIEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uq_user_course_cmi;index:idx_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:uq_user_course_cmi;index:idx_user_course" json:"course_id"`
	CMIKey    string    `gorm:"column:cmi_key;not null;uniqueIndex:uq_user_course_cmi" json:"cmi_key"`
	CMIValue  string    `gorm:"column:cmi_value;type:text" json:"cmi_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CMIEntry) TableName() string { return "scorm_data" }
