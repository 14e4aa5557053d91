// Package httpx provides the JSON response envelope shared by the API.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a successful envelope. Data is always present, null included.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Data    any    `json:"data"`
	}{Success: true, Message: message, Data: data})
}

// Fail sends a failure envelope.
func Fail(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, Envelope{Success: false, Message: message, Error: detail})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(target)
}
