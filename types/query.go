package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// QueryParams is the body of a query request.
type QueryParams struct {
	Question  string `json:"question" validate:"required"`
	SessionID int64  `json:"session_id"`
	K         int    `json:"k" validate:"gte=0,lte=20"`
	Stream    bool   `json:"stream"`
}

func (params *QueryParams) Validate() map[string]string {
	return validateStruct(params)
}

// ModeParams sets the orchestrator precision mode.
type ModeParams struct {
	Mode string `json:"mode" validate:"required,oneof=accurate interactive flexible"`
}

func (params *ModeParams) Validate() map[string]string {
	return validateStruct(params)
}

// SessionParams creates a chat session.
type SessionParams struct {
	Title string `json:"title"`
}

func (params *SessionParams) Validate() map[string]string {
	return nil
}

func validateStruct(s any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// QueryResponse is the non-streaming answer payload.
type QueryResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	SessionID int64     `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
