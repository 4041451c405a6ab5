package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name      string `json:"name" validate:"required,max=5"`
	Email     string `json:"email" validate:"required,email"`
	Date      string `json:"date" validate:"omitempty,isodate"`
	Time      string `json:"time" validate:"omitempty,hhmm"`
	LicenseNo string `json:"licenseNo" validate:"omitempty,licenseno"`
	Kind      string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestValidate_UsesJSONNames(t *testing.T) {
	errs, err := Validate(sample{Name: "too long name", Email: "nope", Date: "2024-13-01", Time: "25:00", LicenseNo: "!", Kind: "c"})
	require.NoError(t, err)
	require.NotNil(t, errs)

	assert.Equal(t, []string{"Must be at most 5 characters"}, errs["name"])
	assert.Equal(t, []string{"Invalid email format"}, errs["email"])
	assert.Equal(t, []string{"Must be a date in YYYY-MM-DD format"}, errs["date"])
	assert.Equal(t, []string{"Must be a time in HH:MM format"}, errs["time"])
	assert.Equal(t, []string{"Invalid license number format"}, errs["licenseNo"])
	assert.Equal(t, []string{"Value is not allowed"}, errs["kind"])
}

func TestValidate_OK(t *testing.T) {
	errs, err := Validate(sample{Name: "Ann", Email: "a@x.com", Date: "2024-02-29", Time: "09:30", LicenseNo: "BAR-123"})
	require.NoError(t, err)
	assert.Nil(t, errs)
}

func TestValidate_Required(t *testing.T) {
	errs, err := Validate(sample{})
	require.NoError(t, err)
	assert.Equal(t, []string{"This field is required"}, errs["name"])
	assert.Equal(t, []string{"This field is required"}, errs["email"])
	assert.NotContains(t, errs, "date")
}

func TestIsDate(t *testing.T) {
	assert.True(t, IsDate("2025-01-31"))
	assert.False(t, IsDate("2025-02-30"))
	assert.False(t, IsDate("31/01/2025"))
}

func TestAdd(t *testing.T) {
	errs := Add(nil, "endDate", "Must not be before startDate")
	errs = Add(errs, "endDate", "second")
	assert.Len(t, errs["endDate"], 2)
}
