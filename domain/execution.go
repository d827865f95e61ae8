package domain

import "time"

type ExecutionResult struct {
	Output     string        `json:"output"`
	ExitStatus int           `json:"exit_status"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

type ExecutionStartedPayload struct {
	Language    string `json:"language"`
	Revision    uint64 `json:"revision"`
	RequestedBy string `json:"requested_by"`
}
