package auth

import (
	"chat-hub/errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// usernamePattern matches handles like "papa_ji" or "gaurav_sir".
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type RegisterRequest struct {
	Username    string `validate:"required,min=3,max=32"`
	DisplayName string `validate:"required,min=1,max=64"`
	Password    string `validate:"required,min=8,max=72"`
	Avatar      string `validate:"omitempty,url"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	if !usernamePattern.MatchString(req.Username) {
		return errors.ErrInvalidPayload
	}
	return nil
}

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
