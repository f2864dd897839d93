// internal/auth/validator.go
package auth

import (
	"fmt"

	"github.com/erilali/messenger/internal/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("handle", isHandle); err != nil {
		panic(err)
	}
	return v
}

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// RegisterRequest carries the fields checked before any password hashing.
// The max tag counts characters; ValidateRegister also caps the byte length.
type RegisterRequest struct {
	Username string `validate:"required,min=3,max=20,handle"`
	Password string `validate:"required,min=6,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if len(req.Password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", errors.ErrInvalidInput, MaxPasswordBytes)
	}
	return nil
}

// ValidateHandle checks a username: 3-20 characters, letters, digits and underscore.
func ValidateHandle(username string) error {
	if err := validate.Var(username, "required,min=3,max=20,handle"); err != nil {
		return fmt.Errorf("%w: username must be 3-20 characters, alphanumeric and underscore only", errors.ErrInvalidInput)
	}
	return nil
}

func isHandle(fl validator.FieldLevel) bool {
	for _, char := range fl.Field().String() {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}
