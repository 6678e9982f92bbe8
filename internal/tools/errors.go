package tools

import "errors"

// Registration errors.
var (
	ErrToolNameEmpty         = errors.New("tool has no name")
	ErrToolExecuteNil        = errors.New("tool has no execute function")
	ErrToolAlreadyRegistered = errors.New("tool name already registered")
)

// Call errors. The MCP server maps ErrToolNotFound, ErrMissingRequiredArg and
// ErrInvalidArgType to invalid-params responses; anything else is reported
// in-band as a failed tool result.
var (
	ErrToolNotFound       = errors.New("unknown tool")
	ErrMissingRequiredArg = errors.New("missing required argument")
	ErrInvalidArgType     = errors.New("argument has the wrong type")

	// ErrUnavailable is returned when the collaborator behind a tool (searcher,
	// memory, workspace) is not configured.
	ErrUnavailable = errors.New("tool collaborator not configured")
)
