package types

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Statement is one immutable xAPI record, flattened into columns for
// querying. Timestamp is the event time the client reported; Stored is
// always the server time at ingestion and is the ordering key for reads.
// Raw keeps the submitted payload verbatim for audit and replay. Rows are
// never updated after insert; voiding is the only reserved transition.
type Statement struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ActorMbox         string         `gorm:"index" json:"actor_mbox"`
	ActorName         string         `json:"actor_name"`
	VerbID            string         `gorm:"not null;index" json:"verb_id"`
	VerbDisplay       string         `json:"verb_display"`
	ObjectID          string         `gorm:"not null;index" json:"object_id"`
	ObjectDefinition  datatypes.JSON `json:"object_definition,omitempty"`
	ResultCompletion  *bool          `json:"result_completion,omitempty"`
	ResultSuccess     *bool          `json:"result_success,omitempty"`
	ResultScoreRaw    *float64       `json:"result_score_raw,omitempty"`
	ResultScoreMin    *float64       `json:"result_score_min,omitempty"`
	ResultScoreMax    *float64       `json:"result_score_max,omitempty"`
	ResultScoreScaled *float64       `json:"result_score_scaled,omitempty"`
	ContextInstructor string         `json:"context_instructor,omitempty"`
	ContextTeam       string         `json:"context_team,omitempty"`
	Timestamp         time.Time      `gorm:"not null;index" json:"timestamp"`
	Stored            time.Time      `gorm:"not null;index" json:"stored"`
	Authority         string         `json:"authority"`
	Version           string         `gorm:"type:varchar(10)" json:"version"`
	Voided            bool           `gorm:"not null;default:false;index" json:"voided"`
	Raw               datatypes.JSON `gorm:"column:raw_statement" json:"-"`
}

func (Statement) TableName() string { return "statements" }

// ToXAPI rehydrates the flat columns back into the nested xAPI wire shape.
func (s *Statement) ToXAPI() map[string]any {
	out := map[string]any{
		"id": s.ID,
		"actor": map[string]any{
			"mbox": s.ActorMbox,
			"name": s.ActorName,
		},
		"verb": map[string]any{
			"id":      s.VerbID,
			"display": map[string]any{"en-US": s.VerbDisplay},
		},
		"timestamp": s.Timestamp.UTC().Format(time.RFC3339),
		"stored":    s.Stored.UTC().Format(time.RFC3339),
		"authority": s.Authority,
		"version":   s.Version,
		"voided":    s.Voided,
	}

	object := map[string]any{"id": s.ObjectID}
	if len(s.ObjectDefinition) > 0 {
		var def any
		if err := json.Unmarshal(s.ObjectDefinition, &def); err == nil {
			object["definition"] = def
		}
	}
	out["object"] = object

	if s.ResultCompletion != nil || s.ResultSuccess != nil ||
		s.ResultScoreRaw != nil || s.ResultScoreMin != nil ||
		s.ResultScoreMax != nil || s.ResultScoreScaled != nil {
		result := map[string]any{}
		if s.ResultCompletion != nil {
			result["completion"] = *s.ResultCompletion
		}
		if s.ResultSuccess != nil {
			result["success"] = *s.ResultSuccess
		}
		if s.ResultScoreRaw != nil || s.ResultScoreMin != nil ||
			s.ResultScoreMax != nil || s.ResultScoreScaled != nil {
			score := map[string]any{}
			if s.ResultScoreRaw != nil {
				score["raw"] = *s.ResultScoreRaw
			}
			if s.ResultScoreMin != nil {
				score["min"] = *s.ResultScoreMin
			}
			if s.ResultScoreMax != nil {
				score["max"] = *s.ResultScoreMax
			}
			if s.ResultScoreScaled != nil {
				score["scaled"] = *s.ResultScoreScaled
			}
			result["score"] = score
		}
		out["result"] = result
	}

	if s.ContextInstructor != "" || s.ContextTeam != "" {
		context := map[string]any{}
		if s.ContextInstructor != "" {
			context["instructor"] = s.ContextInstructor
		}
		if s.ContextTeam != "" {
			context["team"] = s.ContextTeam
		}
		out["context"] = context
	}

	return out
}
