package errors

import "errors"

var (
	ErrInvalid      = errors.New("invalid")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// ErrUpstream marks failures of the embedding or chat-completion service:
	// unreachable, timed out, non-success status or an unusable payload.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrData marks a malformed or inconsistent corpus. It is fatal at startup.
	ErrData = errors.New("corpus data error")
	// ErrLocalIO marks an unreadable local file referenced by a request.
	ErrLocalIO = errors.New("local io error")
)

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

func IsData(err error) bool {
	return errors.Is(err, ErrData)
}
