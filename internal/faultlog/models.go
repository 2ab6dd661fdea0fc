package faultlog

import "time"

// Entry is an append-only record of an unhandled failure.
//
// Invariants:
// - Entries are never updated or deleted through the API.
// - Writing an entry is best-effort; a failed write never changes the response.
//
// Storage (Postgres): table fault_logs, indexed on created_at for the "latest" query.
type Entry struct {
	ID    string `json:"id" db:"id"`
	Level Level  `json:"level" db:"level"`

	// Message is a short description for operators.
	Message string `json:"message" db:"message"`
	// ExceptionMessage is the recovered panic value or error text.
	ExceptionMessage string `json:"exceptionMessage,omitempty" db:"exception_message"`
	StackTrace       string `json:"stackTrace,omitempty" db:"stack_trace"`

	RequestID string    `json:"requestId,omitempty" db:"request_id"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

type Level string

const (
	LevelError Level = "Error"
	LevelFatal Level = "Fatal"
)
