package attendance

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidEmbedding is returned for vectors of the wrong dimension or with unusable values.
	ErrInvalidEmbedding = errors.New("invalid embedding")
	// ErrNoFace is returned when no face was detected in an image.
	ErrNoFace = errors.New("no face detected")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("invalid input")
	// ErrEmbedderUnavailable is returned by image operations when no embedding service is configured.
	ErrEmbedderUnavailable = errors.New("face embedding service is not configured")
)

// ValidationError lists the fields that failed validation with the rule they broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of req and converts failures to a ValidationError.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate request: %w", err)
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// checkEmbedding verifies the vector length against dim (when dim > 0) and rejects NaN and Inf.
func checkEmbedding(v []float32, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: got %d values, expected %d", ErrInvalidEmbedding, len(v), dim)
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: value %d is not finite", ErrInvalidEmbedding, i)
		}
	}
	return nil
}

// checkUsableEmbedding additionally rejects zero-magnitude vectors, which have no direction to compare.
func checkUsableEmbedding(v []float32, dim int) error {
	if err := checkEmbedding(v, dim); err != nil {
		return err
	}
	for _, x := range v {
		if x != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: zero vector", ErrInvalidEmbedding)
}
