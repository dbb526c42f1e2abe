package core

import "github.com/google/uuid"

// NewSessionID returns a unique identifier for one engine run, used to tag
// log output and captures.
func NewSessionID() string {
	return uuid.NewString()
}
