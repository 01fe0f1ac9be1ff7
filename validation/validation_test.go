package validation

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/kbukum/bulkflow/errors"
)

type endpointConfig struct {
	Endpoints []string `mapstructure:"endpoints" validate:"required,min=1,dive,hostname_port"`
	BatchSize int      `mapstructure:"batch_size" validate:"gte=1"`
	Mode      string   `mapstructure:"mode" validate:"omitempty,oneof=fast slow"`
	Internal  string   `mapstructure:"-"`
	Retries   int      `validate:"lte=3"`
}

func fieldsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok {
		t.Fatalf("expected fields detail, got %v", appErr.Details)
	}
	return fields
}

func TestStructValidateValid(t *testing.T) {
	cfg := endpointConfig{Endpoints: []string{"localhost:9200", "10.0.0.2:9201"}, BatchSize: 5, Mode: "fast"}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	err := Validate(endpointConfig{BatchSize: 0, Retries: 9})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, apperrors.New(apperrors.ErrCodeInvalidInput, "")) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	fields := fieldsOf(t, err)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Message
	}
	if got["endpoints"] != "is required" {
		t.Errorf("endpoints message = %q", got["endpoints"])
	}
	if got["batch_size"] != "must be at least 1" {
		t.Errorf("batch_size message = %q", got["batch_size"])
	}
	if got["retries"] != "must be at most 3" {
		t.Errorf("retries message = %q", got["retries"])
	}
}

func TestStructValidateDiveReportsIndex(t *testing.T) {
	err := Validate(endpointConfig{Endpoints: []string{"localhost:9200", "no-port"}, BatchSize: 1})
	fields := fieldsOf(t, err)
	if len(fields) != 1 {
		t.Fatalf("expected one field error, got %v", fields)
	}
	if fields[0].Field != "endpoints[1]" || fields[0].Message != "must be a host:port address" {
		t.Errorf("field error = %+v", fields[0])
	}
}

func TestStructValidateOneOf(t *testing.T) {
	err := Validate(endpointConfig{Endpoints: []string{"h:1"}, BatchSize: 1, Mode: "medium"})
	if err == nil || !strings.Contains(err.Error(), "mode: must be one of: fast slow") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatorNotEmptyAcceptsWhitespace(t *testing.T) {
	if New().NotEmpty("delimiter", "\t").HasErrors() {
		t.Error("whitespace delimiter should be accepted")
	}
	if !New().NotEmpty("delimiter", "").HasErrors() {
		t.Error("empty delimiter should be rejected")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("blank required value should be rejected")
	}
}

func TestValidatorOneOfAndCustom(t *testing.T) {
	v := New().
		OneOf("format", "xml", []string{"json", "console"}).
		OneOf("level", "", []string{"info"}).
		Custom(false, "separator", "must differ from delimiter").
		Custom(true, "other", "never")
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("expected nil for no errors, got %v", err)
	}
	err := New().Required("a", "").OneOf("b", "x", []string{"y"}).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "a: is required; b: must be one of: y") {
		t.Errorf("message = %q", err.Error())
	}
	if len(fieldsOf(t, err)) != 2 {
		t.Error("expected two fields in details")
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{"BatchSize": "batch_size", "Retries": "retries", "maxLen": "max_len"}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
