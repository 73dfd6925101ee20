package types

import (
	"time"
)

// Activity is keyed by the external activity IRI, not a surrogate id. The
// first statement referencing an unseen id inserts the row; later statements
// never update it (first-seen-wins).
type Activity struct {
	ID          string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	Name        string    `json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Type        string    `gorm:"column:type" json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Activity) TableName() string { return "activities" }
