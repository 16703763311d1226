package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Not found
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrChatNotFound    = fmt.Errorf("chat not found")
	ErrMessageNotFound = fmt.Errorf("message not found")

	// Membership
	ErrNotMember = fmt.Errorf("user is not a member of the chat")

	// Conflicts
	ErrUsernameTaken = fmt.Errorf("username already taken")
	ErrAlreadyMember = fmt.Errorf("membership already exists")

	// Input
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrInvalidPassword = fmt.Errorf("invalid credentials")
	ErrInvalidToken    = fmt.Errorf("invalid or expired token")

	// Transient, retryable by the caller
	ErrStoreUnavailable = fmt.Errorf("storage temporarily unavailable")
)
