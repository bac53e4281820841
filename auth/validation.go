package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Validation failures surfaced to the user before any network call is made.
var (
	ErrInvalidEmail    = errors.New("enter a valid email address")
	ErrPasswordTooWeak = errors.New("password must be at least 8 characters")
	ErrNameRequired    = errors.New("enter your name")
)

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

type registrationInput struct {
	Name     string `validate:"required,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// Validator checks credentials client-side so obviously malformed input
// never reaches the server.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateLogin checks login input, returning a user-displayable error.
func (v *Validator) ValidateLogin(email, password string) error {
	return v.mapError(v.validate.Struct(loginInput{Email: email, Password: password}))
}

// ValidateRegistration checks registration input, returning a
// user-displayable error.
func (v *Validator) ValidateRegistration(name, email, password string) error {
	return v.mapError(v.validate.Struct(registrationInput{Name: name, Email: email, Password: password}))
}

func (v *Validator) mapError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	switch fieldErrs[0].Field() {
	case "Email":
		return ErrInvalidEmail
	case "Password":
		return ErrPasswordTooWeak
	case "Name":
		return ErrNameRequired
	default:
		return err
	}
}
