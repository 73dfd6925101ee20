package services

import "errors"

var (
	// ErrNoLearnerSession: a bridge call arrived without an authenticated
	// learner identity.
	ErrNoLearnerSession = errors.New("no learner session")
	// ErrNotInitialized: set_value/commit/finish before initialize.
	ErrNotInitialized = errors.New("scorm session not initialized")
	// ErrInvalidArgument: empty or unusable element key.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound: keyed lookup missed (CMI element, statement, activity,
	// course).
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePackage: upload whose manifest identifier matches an
	// existing course. The upload is rejected and its files discarded.
	ErrDuplicatePackage = errors.New("package with manifest identifier already exists")
	// ErrInvalidPayload: malformed statement body.
	ErrInvalidPayload = errors.New("invalid statement payload")
)
