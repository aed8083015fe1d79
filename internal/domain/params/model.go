// Package params provides the typed parameter catalog and its loaders.
// Parameters are business dictionaries (fabric types, spinning methods,
// statuses, policies) stored in the App DB and cached in-process.
package params

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
)

// Data types a parameter value can be coerced to.
const (
	TypeString     = "string"
	TypeInt        = "int"
	TypeFloat      = "float"
	TypeBool       = "bool"
	TypeDate       = "date"
	TypeDateTime   = "datetime"
	TypeListString = "list-string"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ParameterCategory groups parameters by business dictionary.
type ParameterCategory struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

// Parameter is a typed dictionary value.
type Parameter struct {
	ID         int    `db:"id"`
	CategoryID int    `db:"category_id"`
	Value      string `db:"value"`
	DataType   string `db:"data_type"`
	IsActive   bool   `db:"is_active"`
}

// AsString returns the raw value.
func (p Parameter) AsString() string { return p.Value }

// AsInt coerces the value to an integer.
func (p Parameter) AsInt() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, coercionError(p, TypeInt)
	}
	return n, nil
}

// AsFloat coerces the value to a decimal.
func (p Parameter) AsFloat() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(p.Value))
	if err != nil {
		return decimal.Zero, coercionError(p, TypeFloat)
	}
	return d, nil
}

// AsBool coerces the value to a boolean.
func (p Parameter) AsBool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(p.Value)) {
	case "true", "t", "1", "s", "si", "yes":
		return true, nil
	case "false", "f", "0", "n", "no":
		return false, nil
	}
	return false, coercionError(p, TypeBool)
}

// AsDate coerces the value to a calendar date.
func (p Parameter) AsDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(p.Value))
	if err != nil {
		return time.Time{}, coercionError(p, TypeDate)
	}
	return t, nil
}

// AsDateTime coerces the value to a timestamp.
func (p Parameter) AsDateTime() (time.Time, error) {
	t, err := time.Parse(dateTimeLayout, strings.TrimSpace(p.Value))
	if err != nil {
		return time.Time{}, coercionError(p, TypeDateTime)
	}
	return t, nil
}

// AsStringList splits a comma-separated value.
func (p Parameter) AsStringList() []string {
	if strings.TrimSpace(p.Value) == "" {
		return nil
	}
	parts := strings.Split(p.Value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

func coercionError(p Parameter, want string) error {
	return apperror.NewUnprocessable(apperror.CodeValidation,
		"parameter value cannot be coerced").
		WithDetail("parameter_id", p.ID).
		WithDetail("data_type", want)
}
