package tachi

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// envelope is the shape of every Tachi API response.
type envelope struct {
	Success     bool            `json:"success"`
	Description string          `json:"description"`
	Body        json.RawMessage `json:"body"`
}

// ImportDocument is the finished import as reported by the server.
type ImportDocument struct {
	ImportID string            `json:"importID,omitempty"`
	ScoreIDs []string          `json:"scoreIDs"`
	Errors   []json.RawMessage `json:"errors"`
}

// submitBody covers both protocols: async servers fill URL, sync servers
// return the import document fields inline.
type submitBody struct {
	URL string `json:"url"`
	ImportDocument
}

type pollProgress struct {
	Description string `json:"description"`
}

type pollBody struct {
	ImportStatus string          `json:"importStatus"`
	Progress     *pollProgress   `json:"progress"`
	Import       *ImportDocument `json:"import"`
}

const (
	importOngoing   = "ongoing"
	importCompleted = "completed"
)

func decodeEnvelope(r io.Reader) (envelope, error) {
	var env envelope
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil {
		return env, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("invalid response from server: %w", err)
	}
	return env, nil
}

func decodeBody[T any](env envelope) (T, error) {
	var out T
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return out, fmt.Errorf("response has no body")
	}
	if err := json.Unmarshal(env.Body, &out); err != nil {
		return out, fmt.Errorf("invalid response body: %w", err)
	}
	return out, nil
}
