package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/requestdata"
	"github.com/amar635/esaksham-rev/internal/types"
)

const xapiVersion = "1.0.3"

// LRSStats backs the read-side summary endpoint.
type LRSStats struct {
	TotalStatements  int64            `json:"total_statements"`
	TotalActivities  int64            `json:"total_activities"`
	TotalAgents      int64            `json:"total_agents"`
	RecentStatements []map[string]any `json:"recent_statements"`
	Activities       []map[string]any `json:"activities"`
	Agents           []map[string]any `json:"agents"`
}

type StatementService interface {
	// Ingest validates and flattens one xAPI statement and persists it
	// together with the first-seen activity and agent rows in a single
	// transaction. statementID, when non-empty, is honored as the stored id;
	// otherwise one is generated. Returns the persisted id.
	Ingest(ctx context.Context, tx *gorm.DB, statementID string, raw []byte) (string, error)
	Query(ctx context.Context, tx *gorm.DB, filter repos.StatementFilter) ([]map[string]any, bool, error)
	GetStatement(ctx context.Context, tx *gorm.DB, id string) (map[string]any, error)
	GetActivity(ctx context.Context, tx *gorm.DB, id string) (map[string]any, error)
	Stats(ctx context.Context, tx *gorm.DB) (*LRSStats, error)
}

type statementService struct {
	db            *gorm.DB
	log           *logger.Logger
	statementRepo repos.StatementRepo
	activityRepo  repos.ActivityRepo
	agentRepo     repos.AgentRepo
}

func NewStatementService(
	db *gorm.DB,
	baseLog *logger.Logger,
	statementRepo repos.StatementRepo,
	activityRepo repos.ActivityRepo,
	agentRepo repos.AgentRepo,
) StatementService {
	return &statementService{
		db:            db,
		log:           baseLog.With("service", "StatementService"),
		statementRepo: statementRepo,
		activityRepo:  activityRepo,
		agentRepo:     agentRepo,
	}
}

type statementInput struct {
	Actor *struct {
		Mbox string `json:"mbox"`
		Name string `json:"name"`
	} `json:"actor"`
	Verb *struct {
		ID      string            `json:"id"`
		Display map[string]string `json:"display"`
	} `json:"verb"`
	Object *struct {
		ID         string         `json:"id"`
		Definition map[string]any `json:"definition"`
	} `json:"object"`
	Result *struct {
		Completion *bool `json:"completion"`
		Success    *bool `json:"success"`
		Score      *struct {
			Raw    *float64 `json:"raw"`
			Min    *float64 `json:"min"`
			Max    *float64 `json:"max"`
			Scaled *float64 `json:"scaled"`
		} `json:"score"`
	} `json:"result"`
	Context *struct {
		Instructor json.RawMessage `json:"instructor"`
		Team       json.RawMessage `json:"team"`
	} `json:"context"`
	Timestamp string `json:"timestamp"`
}

func (s *statementService) Ingest(ctx context.Context, tx *gorm.DB, statementID string, raw []byte) (string, error) {
	var input statementInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if input.Actor == nil || input.Verb == nil || input.Object == nil {
		return "", fmt.Errorf("%w: actor, verb and object are required", ErrInvalidPayload)
	}
	if input.Verb.ID == "" || input.Object.ID == "" {
		return "", fmt.Errorf("%w: verb.id and object.id are required", ErrInvalidPayload)
	}

	now := time.Now().UTC()
	eventTime := now
	if input.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			return "", fmt.Errorf("%w: bad timestamp %q", ErrInvalidPayload, input.Timestamp)
		}
		eventTime = parsed.UTC()
	}

	id := strings.TrimSpace(statementID)
	if id == "" {
		id = uuid.New().String()
	}

	authority := ""
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		authority = rd.Authority
	}

	statement := &types.Statement{
		ID:          id,
		ActorMbox:   input.Actor.Mbox,
		ActorName:   input.Actor.Name,
		VerbID:      input.Verb.ID,
		VerbDisplay: input.Verb.Display["en-US"],
		ObjectID:    input.Object.ID,
		Timestamp:   eventTime,
		Stored:      now,
		Authority:   authority,
		Version:     xapiVersion,
		Voided:      false,
		Raw:         datatypes.JSON(raw),
	}
	if input.Object.Definition != nil {
		def, err := json.Marshal(input.Object.Definition)
		if err != nil {
			return "", fmt.Errorf("%w: object definition", ErrInvalidPayload)
		}
		statement.ObjectDefinition = datatypes.JSON(def)
	}
	if input.Result != nil {
		statement.ResultCompletion = input.Result.Completion
		statement.ResultSuccess = input.Result.Success
		if input.Result.Score != nil {
			statement.ResultScoreRaw = input.Result.Score.Raw
			statement.ResultScoreMin = input.Result.Score.Min
			statement.ResultScoreMax = input.Result.Score.Max
			statement.ResultScoreScaled = input.Result.Score.Scaled
		}
	}
	if input.Context != nil {
		statement.ContextInstructor = rawToString(input.Context.Instructor)
		statement.ContextTeam = rawToString(input.Context.Team)
	}

	database := tx
	if database == nil {
		database = s.db
	}

	// Statement, activity and agent land together or not at all.
	err := database.Transaction(func(txn *gorm.DB) error {
		if _, err := s.statementRepo.Create(ctx, txn, statement); err != nil {
			return err
		}

		activity := &types.Activity{
			ID:        input.Object.ID,
			CreatedAt: now,
		}
		if input.Object.Definition != nil {
			activity.Name = definitionLangString(input.Object.Definition, "name")
			activity.Description = definitionLangString(input.Object.Definition, "description")
			if t, ok := input.Object.Definition["type"].(string); ok {
				activity.Type = t
			}
		}
		if err := s.activityRepo.CreateIfAbsent(ctx, txn, activity); err != nil {
			return err
		}

		if input.Actor.Mbox != "" {
			agent := &types.Agent{
				Mbox:      input.Actor.Mbox,
				Name:      input.Actor.Name,
				CreatedAt: now,
			}
			if err := s.agentRepo.CreateIfAbsent(ctx, txn, agent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("statement ingest failed", "statement_id", id, "error", err)
		return "", err
	}

	s.log.Debug("statement stored",
		"statement_id", id,
		"verb_id", statement.VerbID,
		"object_id", statement.ObjectID)
	return id, nil
}

func (s *statementService) Query(ctx context.Context, tx *gorm.DB, filter repos.StatementFilter) ([]map[string]any, bool, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	statements, err := s.statementRepo.Query(ctx, tx, filter)
	if err != nil {
		return nil, false, err
	}
	out := make([]map[string]any, 0, len(statements))
	for _, statement := range statements {
		out = append(out, statement.ToXAPI())
	}
	// Coarse heuristic: a full page means more results may exist. A page
	// that is exactly the cap reports more=true even when nothing follows.
	more := len(statements) == filter.Limit
	return out, more, nil
}

func (s *statementService) GetStatement(ctx context.Context, tx *gorm.DB, id string) (map[string]any, error) {
	statement, err := s.statementRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if statement == nil {
		return nil, ErrNotFound
	}
	return statement.ToXAPI(), nil
}

func (s *statementService) GetActivity(ctx context.Context, tx *gorm.DB, id string) (map[string]any, error) {
	activity, err := s.activityRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrNotFound
	}
	return map[string]any{
		"id": activity.ID,
		"definition": map[string]any{
			"name":        map[string]any{"en-US": activity.Name},
			"description": map[string]any{"en-US": activity.Description},
			"type":        activity.Type,
		},
	}, nil
}

func (s *statementService) Stats(ctx context.Context, tx *gorm.DB) (*LRSStats, error) {
	totalStatements, err := s.statementRepo.Count(ctx, tx)
	if err != nil {
		return nil, err
	}
	totalActivities, err := s.activityRepo.Count(ctx, tx)
	if err != nil {
		return nil, err
	}
	totalAgents, err := s.agentRepo.Count(ctx, tx)
	if err != nil {
		return nil, err
	}
	recent, err := s.statementRepo.Query(ctx, tx, repos.StatementFilter{Limit: 10})
	if err != nil {
		return nil, err
	}
	recentOut := make([]map[string]any, 0, len(recent))
	for _, statement := range recent {
		recentOut = append(recentOut, statement.ToXAPI())
	}

	activities, err := s.activityRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	activityOut := make([]map[string]any, 0, len(activities))
	for _, activity := range activities {
		activityOut = append(activityOut, map[string]any{
			"id":   activity.ID,
			"name": activity.Name,
			"type": activity.Type,
		})
	}

	agents, err := s.agentRepo.GetAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	agentOut := make([]map[string]any, 0, len(agents))
	for _, agent := range agents {
		agentOut = append(agentOut, map[string]any{
			"mbox": agent.Mbox,
			"name": agent.Name,
		})
	}

	return &LRSStats{
		TotalStatements:  totalStatements,
		TotalActivities:  totalActivities,
		TotalAgents:      totalAgents,
		RecentStatements: recentOut,
		Activities:       activityOut,
		Agents:           agentOut,
	}, nil
}

// definitionLangString pulls definition.<field>.en-US when present.
func definitionLangString(definition map[string]any, field string) string {
	langMap, ok := definition[field].(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := langMap["en-US"].(string); ok {
		return v
	}
	return ""
}

// rawToString keeps loosely-typed context members as flat text: JSON strings
// are unquoted, anything else is stored as its compact JSON form.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
