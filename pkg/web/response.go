// Package web defines common components for a web application.
package web

import "github.com/go-playground/validator/v10"

// JSONError provides type for explicit json encoded error response.
type JSONError struct {
	Error string `json:"error"`
}

// Error wraps a given err into json friendly struct.
func Error(err error) JSONError {
	return JSONError{Error: err.Error()}
}

// ErrorMsg wraps a given message into json friendly struct.
func ErrorMsg(msg string) JSONError {
	return JSONError{Error: msg}
}

// Response holds the common response type for all APIs.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error JSONError `json:"error,omitempty"`
}

// GetErrorMsg returns a human readable message for a failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "currency":
		return " is not supported"
	}

	return " is invalid"
}
