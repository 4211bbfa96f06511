package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Errorf builds an Error from a formatted message.
func Errorf(status int, code, format string, args ...any) *Error {
	return New(status, code, fmt.Errorf(format, args...))
}

// Body is the JSON error envelope. The frontend reads detail.
type Body struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// Respond writes err as a JSON error. Errors that are not *Error become a
// 500 with a generic message.
func Respond(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		WriteJSON(w, http.StatusInternalServerError, Body{Detail: "internal error", Code: "internal"})
		return
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, Body{Detail: ae.Error(), Code: ae.Code})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
