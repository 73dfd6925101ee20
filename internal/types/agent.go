package types

import (
	"time"
)

// Agent is the deduplicated actor directory, unique on mailbox.
// First-seen-wins, same as Activity.
type Agent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Mbox      string    `gorm:"uniqueIndex;not null" json:"mbox"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Agent) TableName() string { return "agents" }
