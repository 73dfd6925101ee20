package services

import (
	"context"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/requestdata"
	"github.com/amar635/esaksham-rev/internal/types"
)

// SCORM RTE error codes. These exact values are the wire contract with
// player content and must not change.
const (
	ScormErrNone           = "0"
	ScormErrGeneral        = "101"
	ScormErrNotInitialized = "132"
	ScormErrInvalidArg     = "201"
)

var scormErrorStrings = map[string]string{
	ScormErrNone:           "No Error",
	ScormErrGeneral:        "General Exception",
	ScormErrNotInitialized: "LMS Not Initialized",
	ScormErrInvalidArg:     "Invalid Argument Error",
}

type SessionState int

const (
	SessionUninitialized SessionState = iota
	SessionActive
)

type sessionKey struct {
	LearnerID uint
	CourseID  uint
}

// SessionStore tracks which (learner, course) pairs have an active SCORM
// session. It is in-process state scoped to the server lifetime; finish (or
// a restart) drops the marker and a fresh initialize is required to resume.
// Concurrent tabs for the same learner/course can race initialize/finish;
// that window is accepted, not locked away.
type SessionStore struct {
	mu     sync.RWMutex
	active map[sessionKey]SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{active: make(map[sessionKey]SessionState)}
}

func (s *SessionStore) State(learnerID, courseID uint) SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[sessionKey{LearnerID: learnerID, CourseID: courseID}]
}

func (s *SessionStore) Activate(learnerID, courseID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sessionKey{LearnerID: learnerID, CourseID: courseID}] = SessionActive
}

func (s *SessionStore) Clear(learnerID, courseID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionKey{LearnerID: learnerID, CourseID: courseID})
}

// RuntimeService is the SCORM runtime bridge: the initialize → read/write →
// commit → terminate lifecycle over the CMI key/value store. Callers thread
// the learner identity through the request context; there is no ambient
// session lookup.
type RuntimeService interface {
	Initialize(ctx context.Context, tx *gorm.DB, courseID uint) error
	// GetValue deliberately does not require an active session; observed
	// player content calls it around initialize and the looser contract is
	// preserved.
	GetValue(ctx context.Context, tx *gorm.DB, courseID uint, element string) (string, error)
	SetValue(ctx context.Context, tx *gorm.DB, courseID uint, element, value string) error
	// Commit acknowledges an active session. Writes persist immediately in
	// SetValue, so there is nothing to flush.
	Commit(ctx context.Context, courseID uint) error
	Finish(ctx context.Context, courseID uint) error
	LastError(ctx context.Context) string
	ErrorString(code string) string
	Diagnostic(ctx context.Context) string
}

type runtimeService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions *SessionStore
	cmiRepo  repos.CMIEntryRepo
}

func NewRuntimeService(db *gorm.DB, baseLog *logger.Logger, sessions *SessionStore, cmiRepo repos.CMIEntryRepo) RuntimeService {
	return &runtimeService{
		db:       db,
		log:      baseLog.With("service", "RuntimeService"),
		sessions: sessions,
		cmiRepo:  cmiRepo,
	}
}

func (s *runtimeService) learner(ctx context.Context) (uint, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.LearnerID == 0 {
		return 0, ErrNoLearnerSession
	}
	return rd.LearnerID, nil
}

func (s *runtimeService) Initialize(ctx context.Context, tx *gorm.DB, courseID uint) error {
	learnerID, err := s.learner(ctx)
	if err != nil {
		return err
	}
	s.sessions.Activate(learnerID, courseID)
	s.log.Debug("scorm session initialized", "learner_id", learnerID, "course_id", courseID)
	return nil
}

func (s *runtimeService) GetValue(ctx context.Context, tx *gorm.DB, courseID uint, element string) (string, error) {
	learnerID, err := s.learner(ctx)
	if err != nil {
		return "", err
	}
	entry, err := s.cmiRepo.GetByKey(ctx, tx, learnerID, courseID, element)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", ErrNotFound
	}
	return entry.CMIValue, nil
}

func (s *runtimeService) SetValue(ctx context.Context, tx *gorm.DB, courseID uint, element, value string) error {
	learnerID, err := s.learner(ctx)
	if err != nil {
		return err
	}
	if s.sessions.State(learnerID, courseID) != SessionActive {
		return ErrNotInitialized
	}
	if strings.TrimSpace(element) == "" {
		return ErrInvalidArgument
	}
	entry := &types.CMIEntry{
		UserID:   learnerID,
		CourseID: courseID,
		CMIKey:   element,
		CMIValue: value,
	}
	return s.cmiRepo.Upsert(ctx, tx, entry)
}

func (s *runtimeService) Commit(ctx context.Context, courseID uint) error {
	learnerID, err := s.learner(ctx)
	if err != nil {
		return err
	}
	if s.sessions.State(learnerID, courseID) != SessionActive {
		return ErrNotInitialized
	}
	return nil
}

func (s *runtimeService) Finish(ctx context.Context, courseID uint) error {
	learnerID, err := s.learner(ctx)
	if err != nil {
		return err
	}
	if s.sessions.State(learnerID, courseID) != SessionActive {
		return ErrNotInitialized
	}
	s.sessions.Clear(learnerID, courseID)
	s.log.Debug("scorm session finished", "learner_id", learnerID, "course_id", courseID)
	return nil
}

// LastError always reports "no error". Stateful last-error tracking is a
// documented simplification of the bridge.
func (s *runtimeService) LastError(ctx context.Context) string {
	return ScormErrNone
}

func (s *runtimeService) ErrorString(code string) string {
	if msg, ok := scormErrorStrings[code]; ok {
		return msg
	}
	return "Unknown Error"
}

func (s *runtimeService) Diagnostic(ctx context.Context) string {
	return ""
}
