package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrInvalidSignature = errors.New("invalid_signature")

// APIError is a non-2xx answer from the Discord REST API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("discord api error (%d)", e.Status)
	}
	return fmt.Sprintf("discord api error (%d): %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	_ = json.Unmarshal(body, e)
	return e
}

// IsNotFound reports an Unknown Channel/Member/Message style 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
