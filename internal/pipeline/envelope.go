package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the one response shape every feature produces, regardless of
// author. The pipeline is its sole writer; handlers never construct it.
type Envelope struct {
	Success   bool     `json:"success"`
	Data      any      `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
	Message   string   `json:"message,omitempty"`
	Intent    string   `json:"intent,omitempty"`
	Actions   []Action `json:"actions,omitempty"`
	FeatureID string   `json:"featureId"`
	Version   string   `json:"version"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata carries per-invocation envelope metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

func newMetadata() Metadata {
	return Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: uuid.NewString(),
	}
}
