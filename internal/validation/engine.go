// Package validation implements the form validation state machine shared by
// the dashboard's configuration dialogs. A Form is an ordered set of fields,
// each with ordered checks; Reduce is a pure transition over immutable State.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Status is the validation state of a form
type Status int

const (
	Pristine Status = iota
	Dirty
	Valid
	Invalid
)

func (s Status) String() string {
	switch s {
	case Pristine:
		return "pristine"
	case Dirty:
		return "dirty"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Pristine, Dirty, Valid, Invalid} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("validation: unknown status %q", text)
}

// Check inspects one raw value and returns a message when it fails
type Check func(label, raw string) (message string, ok bool)

// Field is a named input and the checks run against it, in order.
// Only the first failing check of a field is reported.
type Field struct {
	Name   string
	Label  string
	Checks []Check
}

// Form is an ordered field schema
type Form struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewForm creates a form from fields in declaration order
func NewForm(name string, fields ...Field) *Form {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Form{name: name, fields: fields, index: index}
}

// Name returns the form name
func (f *Form) Name() string { return f.name }

// HasField reports whether the form declares the named field
func (f *Form) HasField(name string) bool {
	_, ok := f.index[name]
	return ok
}

// FieldNames returns the field names in declaration order
func (f *Form) FieldNames() []string {
	names := make([]string, 0, len(f.fields))
	for _, fld := range f.fields {
		names = append(names, fld.Name)
	}
	return names
}

// ErrNotValid is returned when converting a state that has not passed validation
var ErrNotValid = errors.New("validation: form state is not valid")

// State is an immutable snapshot of a form's inputs and errors
type State struct {
	status Status
	values map[string]string
	errors []string
}

// Status returns the validation status
func (s State) Status() Status { return s.status }

// OKEnabled reports whether the submit action is available
func (s State) OKEnabled() bool { return s.status != Invalid }

// Value returns the raw input of a field
func (s State) Value(name string) string { return s.values[name] }

// Values returns a copy of all raw inputs
func (s State) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the error messages in field order
func (s State) Errors() []string {
	return append([]string(nil), s.errors...)
}

// Float parses a field's raw input as a finite number
func (s State) Float(name string) (float64, bool) {
	return parseNumber(s.values[name])
}

// Action is an event applied to a form state
type Action interface {
	isAction()
}

// Open resets the form, seeding it with initial values
type Open struct {
	Seed map[string]string
}

// FieldChanged replaces the raw input of one field
type FieldChanged struct {
	Field string
	Value string
}

// Submit requests full validation
type Submit struct{}

func (Open) isAction()         {}
func (FieldChanged) isAction() {}
func (Submit) isAction()       {}

// Reduce returns the state that follows s after a. It never mutates s.
func (f *Form) Reduce(s State, a Action) State {
	switch act := a.(type) {
	case Open:
		values := make(map[string]string, len(f.fields))
		for _, fld := range f.fields {
			values[fld.Name] = act.Seed[fld.Name]
		}
		return State{status: Pristine, values: values}

	case FieldChanged:
		if !f.HasField(act.Field) {
			return s
		}
		values := s.Values()
		values[act.Field] = act.Value
		if s.status == Invalid {
			return f.validate(values)
		}
		return State{status: Dirty, values: values}

	case Submit:
		return f.validate(s.Values())
	}
	return s
}

// Validate runs full validation over a set of raw values
func (f *Form) Validate(values map[string]string) State {
	return f.Reduce(f.Reduce(State{}, Open{Seed: values}), Submit{})
}

func (f *Form) validate(values map[string]string) State {
	var errs []string
	for _, fld := range f.fields {
		raw := values[fld.Name]
		for _, check := range fld.Checks {
			if msg, ok := check(fld.Label, raw); !ok {
				errs = append(errs, msg)
				break
			}
		}
	}
	if len(errs) > 0 {
		return State{status: Invalid, values: values, errors: errs}
	}
	return State{status: Valid, values: values}
}

// Required fails on blank input
func Required() Check {
	return func(label, raw string) (string, bool) {
		if strings.TrimSpace(raw) == "" {
			return fmt.Sprintf("%s is required", label), false
		}
		return "", true
	}
}

// Number fails unless the input parses as a finite number
func Number() Check {
	return func(label, raw string) (string, bool) {
		if _, ok := parseNumber(raw); !ok {
			return fmt.Sprintf("%s is not a valid number", label), false
		}
		return "", true
	}
}

// Between fails unless the input is a number in [min, max]
func Between(min, max float64) Check {
	return func(label, raw string) (string, bool) {
		v, ok := parseNumber(raw)
		if !ok || v < min || v > max {
			return fmt.Sprintf("%s should be between %s and %s", label, formatBound(min), formatBound(max)), false
		}
		return "", true
	}
}

// Matches fails unless the trimmed input matches re
func Matches(re *regexp.Regexp, message string) Check {
	return func(label, raw string) (string, bool) {
		if !re.MatchString(strings.TrimSpace(raw)) {
			return message, false
		}
		return "", true
	}
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
