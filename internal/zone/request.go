package zone

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request is the inbound zone message: {"polygon": [{"x": 10, "y": 20}, ...]}.
// Entries stay raw so one malformed vertex does not reject the whole request.
type Request struct {
	Polygon []json.RawMessage `json:"polygon"`
}

// RequestError reports a message that is not a well formed zone request.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// ParseRequest decodes a zone request. A missing polygon decodes to an empty
// list and is rejected later by the validator.
func ParseRequest(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, &RequestError{Err: errors.New("empty message")}
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "polygon" {
			return nil, &RequestError{Err: fmt.Errorf("polygon must be an array, got %s", typeErr.Value)}
		}
		return nil, &RequestError{Err: err}
	}
	return &req, nil
}
