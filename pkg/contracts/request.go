package contracts

import (
	"time"

	"github.com/google/uuid"
)

// CommandSource identifies where a command came from.
type CommandSource string

// Command source constants.
const (
	SourceText  CommandSource = "text"
	SourceVoice CommandSource = "voice"
)

// CommandRequest is one raw command as received from the user.
// Created once per command and never mutated.
type CommandRequest struct {
	ID        string        `json:"id"`
	RawText   string        `json:"raw_text"`
	Timestamp time.Time     `json:"timestamp"`
	Source    CommandSource `json:"source"`
}

// NewCommandRequest builds a request with a fresh id and timestamp.
func NewCommandRequest(text string, source CommandSource) CommandRequest {
	return CommandRequest{
		ID:        uuid.NewString(),
		RawText:   text,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}
