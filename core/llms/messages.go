package llms

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is wrapped by [StatusError].
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrEmptyResponse    = errors.New("empty completion")
)

// Response is a single completion from an LLM.
type Response struct {
	Content string
	Model   string
}

// Turn is a finished exchange that can be replayed as context.
type Turn struct {
	Prompt   string
	Response string
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// StatusError reports a non-OK answer from the endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-OK HTTP status: %s", e.Status)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }
