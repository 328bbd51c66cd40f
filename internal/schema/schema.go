// Package schema wraps JSON Schema validation for response contract checks.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kensahq/kensa/internal/logging"
)

// Violation is a single schema rule the document broke.
type Violation struct {
	// Location is the path of the offending field within the document.
	Location string `json:"location"`

	// Rule is the schema keyword that failed (required, type, ...).
	Rule string `json:"rule"`

	// Description is the human-readable explanation from the validator.
	Description string `json:"description"`
}

// ValidationError reports a document that does not conform to its schema.
// It always carries at least one Violation.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Location, v.Description)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Validator validates JSON documents against schemas. The zero value is not
// usable; construct with New.
type Validator struct {
	logger logging.Logger
}

// New creates a Validator.
func New(logger logging.Logger) *Validator {
	return &Validator{
		logger: logger.With(logging.Field{Key: "component", Value: "schema"}),
	}
}

// Validate checks doc against schema and returns true when it conforms.
// On mismatch it returns a *ValidationError carrying every violated rule;
// it never reports a mismatch as (false, nil), so callers cannot silently
// treat a broken contract as data.
//
// doc may be raw JSON bytes or any Go value serializable to JSON; schema is
// a JSON Schema document in the same forms.
func (v *Validator) Validate(doc, schema any) (bool, error) {
	res, err := gojsonschema.Validate(asLoader(schema), asLoader(doc))
	if err != nil {
		return false, fmt.Errorf("running schema validation: %w", err)
	}

	if res.Valid() {
		return true, nil
	}

	verr := &ValidationError{}
	for _, desc := range res.Errors() {
		verr.Violations = append(verr.Violations, Violation{
			Location:    desc.Field(),
			Rule:        desc.Type(),
			Description: desc.Description(),
		})
	}

	v.logger.Error("schema validation failed",
		logging.Field{Key: "violations", Value: verr.Violations})

	return false, verr
}

func asLoader(doc any) gojsonschema.JSONLoader {
	switch t := doc.(type) {
	case []byte:
		return gojsonschema.NewBytesLoader(t)
	case string:
		return gojsonschema.NewStringLoader(t)
	default:
		return gojsonschema.NewGoLoader(t)
	}
}
