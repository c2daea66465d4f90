package queue

import (
	"encoding/json"
	"errors"
)

// MessageVersion is the current message schema version.
const MessageVersion = 1

// Message announces a completed submission to downstream consumers.
type Message struct {
	SubmissionID string `json:"submissionId"`
	ContextID    string `json:"contextId"`
	RequestID    string `json:"requestId,omitempty"`
	Status       string `json:"status"`
	EnqueuedAt   string `json:"enqueuedAt"`
	Version      int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.SubmissionID == "" {
		return nil, errors.New("submissionId is required")
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
