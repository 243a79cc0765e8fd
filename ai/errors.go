package ai

import "errors"

var (
	// ErrNoRoute is returned when a task type has no routing table entry.
	ErrNoRoute = errors.New("no route for task type")

	// ErrUnknownProvider is returned when a route names a provider with no
	// registered backend.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrBackendRequired is returned when a router is built without any
	// backends.
	ErrBackendRequired = errors.New("at least one backend required")

	// ErrEmptyMessages is returned when a completion is requested with no
	// messages.
	ErrEmptyMessages = errors.New("messages cannot be empty")
)
