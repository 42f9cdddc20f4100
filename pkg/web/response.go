// Package web defines common components for a web application.
package web

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into the common response envelope.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg renders validator field errors into a readable message.
func GetErrorMsg(ve validator.ValidationErrors) string {
	msgs := make([]string, 0, len(ve))

	for _, fe := range ve {
		msgs = append(msgs, fe.Field()+getTagMsg(fe))
	}

	return strings.Join(msgs, "; ")
}

func getTagMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "email":
		return " must have an email format"
	case "min":
		return fmt.Sprintf(" must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf(" must be exactly %s characters", fe.Param())
	case "numeric":
		return " must contain digits only"
	case "uuid4":
		return " must be a valid id"
	}

	return " is invalid"
}
