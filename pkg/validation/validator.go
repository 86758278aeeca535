package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxAreasPerRouting = 250
	MaxAreaCodeLength  = 50
	MaxPredecessors    = 50
	MaxModelIDLength   = 64

	// Regular expressions
	areaCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	modelIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

func init() {
	validate = validator.New()
}

// StepRequest is one area entry in a routing replace request
type StepRequest struct {
	AreaCode     string   `json:"areaCode" validate:"required,min=1,max=50"`
	Predecessors []string `json:"predecessors" validate:"omitempty,max=50,dive,min=1,max=50"`
}

// RoutingRequest is the body of a full routing replace
type RoutingRequest struct {
	Steps []StepRequest `json:"steps" validate:"omitempty,max=250,dive"`
}

// PredecessorsRequest is the body of a single-area predecessor update
type PredecessorsRequest struct {
	Predecessors []string `json:"predecessors" validate:"omitempty,max=50,dive,min=1,max=50"`
}

// LoginRequest is the body of an authentication attempt
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// ValidateRoutingRequest validates a routing replace request. The graph
// itself decides duplicates and dangling references; this only enforces
// the API surface rules: shape, lengths and the area code charset.
func ValidateRoutingRequest(req *RoutingRequest) error {
	if req == nil {
		return errors.New("routing request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	for i, step := range req.Steps {
		if !areaCodePattern.MatchString(step.AreaCode) {
			return fmt.Errorf("Steps: area code %q at index %d contains invalid characters", step.AreaCode, i)
		}
		for _, pred := range step.Predecessors {
			if !areaCodePattern.MatchString(pred) {
				return fmt.Errorf("Steps: predecessor %q of area %q contains invalid characters", pred, step.AreaCode)
			}
		}
	}

	return nil
}

// ValidatePredecessorsRequest validates a predecessor update request
func ValidatePredecessorsRequest(req *PredecessorsRequest) error {
	if req == nil {
		return errors.New("predecessors request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	for _, pred := range req.Predecessors {
		if !areaCodePattern.MatchString(pred) {
			return fmt.Errorf("Predecessors: %q contains invalid characters", pred)
		}
	}

	return nil
}

// ValidateLoginRequest validates an authentication attempt
func ValidateLoginRequest(req *LoginRequest) error {
	if req == nil {
		return errors.New("login request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateModelID validates a model identifier from the URL path
func ValidateModelID(id string) error {
	if id == "" {
		return errors.New("model id cannot be empty")
	}
	if len(id) > MaxModelIDLength {
		return fmt.Errorf("model id '%s' exceeds maximum length of %d characters", id, MaxModelIDLength)
	}
	if !modelIDPattern.MatchString(id) {
		return fmt.Errorf("model id '%s' is invalid (must start with alphanumeric, followed by alphanumeric, dot, underscore or hyphen)", id)
	}
	return nil
}

// ValidateAreaCode validates an area code from the URL path
func ValidateAreaCode(code string) error {
	if code == "" {
		return errors.New("area code cannot be empty")
	}
	if len(code) > MaxAreaCodeLength {
		return fmt.Errorf("area code '%s' exceeds maximum length of %d characters", code, MaxAreaCodeLength)
	}
	if !areaCodePattern.MatchString(code) {
		return fmt.Errorf("area code '%s' is invalid (must start with alphanumeric, followed by alphanumeric, dot, underscore or hyphen)", code)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
