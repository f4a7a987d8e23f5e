package utils

import (
	"github.com/go-playground/validator/v10" // struct tag validation
	"github.com/labstack/echo/v4"            // echo.Validator interface
)

// RequestValidator plugs go-playground/validator into Echo so handlers
// can call c.Validate(&req) against the struct tags on request DTOs.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

var _ echo.Validator = (*RequestValidator)(nil)
