package event

import "errors"

var (
	// ErrInvalidEvent is returned when a raw record cannot be converted into an Event.
	ErrInvalidEvent = errors.New("event: invalid event")
	// ErrInvalidRole is returned when a vocabulary role name is unknown.
	ErrInvalidRole = errors.New("event: invalid role")
	// ErrIncompleteVocabulary is returned when a vocabulary lacks an open or close code.
	ErrIncompleteVocabulary = errors.New("event: vocabulary needs open and close codes")
)
