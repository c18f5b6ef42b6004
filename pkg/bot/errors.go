package bot

import "errors"

// Lifecycle and registry errors surfaced by the public API.
var (
	// ErrNotInitialized means an operation ran before Initialize.
	ErrNotInitialized = errors.New("bot is not initialized; call Initialize first")

	// ErrAlreadyInitialized means Initialize ran twice without Shutdown.
	ErrAlreadyInitialized = errors.New("bot is already initialized")

	// ErrShuttingDown means the bot is tearing down and the operation
	// was cancelled.
	ErrShuttingDown = errors.New("bot is shutting down")

	// ErrHandlerExists means a handler with that name is already
	// registered in the same category.
	ErrHandlerExists = errors.New("handler already registered")

	// ErrHandlerNotFound means no handler with that name is registered.
	// Removal of an absent handler is an error, not a no-op.
	ErrHandlerNotFound = errors.New("handler not found")
)
