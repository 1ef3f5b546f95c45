package authflow

import (
	"regexp"
	"strings"
)

// FieldError scopes a validation failure to the form field that caused
// it.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors aggregates every failing field; validation always
// resolves before any remote call is attempted.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 8

func validateSignIn(email, password string) ValidationErrors {
	var errs ValidationErrors

	switch {
	case email == "":
		errs = append(errs, FieldError{"email", "Email is required"})
	case !emailPattern.MatchString(email):
		errs = append(errs, FieldError{"email", "Please enter a valid email address"})
	}

	if password == "" {
		errs = append(errs, FieldError{"password", "Password is required"})
	}

	return errs
}

func validateSignUp(fullName, email, password, confirmPassword string) ValidationErrors {
	var errs ValidationErrors

	if len(fullName) < 2 {
		errs = append(errs, FieldError{"fullName", "Please enter your full name"})
	}

	switch {
	case email == "":
		errs = append(errs, FieldError{"email", "Email is required"})
	case !emailPattern.MatchString(email):
		errs = append(errs, FieldError{"email", "Please enter a valid email address"})
	}

	switch {
	case password == "":
		errs = append(errs, FieldError{"password", "Password is required"})
	case len(password) < minPasswordLen:
		errs = append(errs, FieldError{"password", "Password must be at least 8 characters long"})
	}

	if password != confirmPassword {
		errs = append(errs, FieldError{"confirmPassword", "Passwords do not match"})
	}

	return errs
}
