package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name   string   `json:"name" validate:"required,no_control"`
	Email  string   `json:"email" validate:"omitempty,email"`
	NIP    string   `json:"nip" validate:"omitempty,nip"`
	Date   string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Roles  []string `json:"roles" validate:"dive,oneof=admin employee"`
	Hidden string   `json:"-"`
}

func TestNewValidator_ReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{
		Email: "not-an-email",
		NIP:   "12345",
		Date:  "17/10/2026",
		Roles: []string{"admin", "pilot"},
	})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "this field is required", fields["name"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be an 18-digit NIP", fields["nip"])
	assert.Equal(t, "must be a date formatted as 2006-01-02", fields["date"])
	assert.Equal(t, "must be one of: admin, employee", fields["roles[1]"])
}

func TestNewValidator_AcceptsValidInput(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{
		Name:  "Siti Rahma",
		Email: "siti@example.go.id",
		NIP:   "198701012010012001",
		Date:  "2026-10-17",
		Roles: []string{"employee"},
	})
	assert.NoError(t, err)
}

func TestNoControl(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(sampleRequest{Name: "line one\nline two\ttab"}))

	err := v.Struct(sampleRequest{Name: "bell\x07"})
	require.Error(t, err)
	assert.Equal(t, "must not contain control characters", FieldErrors(err)["name"])
}

func TestFieldErrors_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
	assert.Nil(t, FieldErrors(nil))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc\ndef", SanitizeString("a\x00bc\ndef\x7f"))
}
