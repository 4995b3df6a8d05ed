package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyStatusAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, PolicyExpired, PolicyStatusAt("2024-02-29", now))
	assert.Equal(t, PolicyExpiring, PolicyStatusAt("2024-03-01", now))
	assert.Equal(t, PolicyExpiring, PolicyStatusAt("2024-03-31", now))
	assert.Equal(t, PolicyActive, PolicyStatusAt("2024-04-01", now))
	assert.Equal(t, PolicyActive, PolicyStatusAt("not-a-date", now))
}

func TestDocumentTypeFromName(t *testing.T) {
	assert.Equal(t, DocumentPDF, DocumentTypeFromName("Lease Agreement.pdf"))
	assert.Equal(t, DocumentImage, DocumentTypeFromName("Vehicle Registration.JPG"))
	assert.Equal(t, DocumentSheet, DocumentTypeFromName("payroll.xlsx"))
	assert.Equal(t, DocumentPDF, DocumentTypeFromName("notes"))
}

func TestClassifyGosi(t *testing.T) {
	assert.Equal(t, GosiError, ClassifyGosi(7000, 7000))
	assert.Equal(t, GosiCorrect, ClassifyGosi(5000, 8000))
}

func TestValidationError(t *testing.T) {
	var verr ValidationError
	assert.NoError(t, verr.Err())

	verr.Require("name", "  ", "Name is required")
	verr.Add("name", "ignored")
	verr.Add("category", "Category is required")
	err := verr.Err()
	if assert.Error(t, err) {
		assert.Equal(t, "validation failed: category: Category is required; name: Name is required", err.Error())
	}
}

func TestDateHelpers(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.True(t, PastDue("2024-03-09", now))
	assert.False(t, PastDue("2024-03-10", now))
	assert.True(t, DueWithin("2024-03-20", now, ExpiringWindow))
	assert.False(t, DueWithin("2024-03-09", now, ExpiringWindow))
	assert.True(t, ValidDate("2024-02-29"))
	assert.False(t, ValidDate("2023-02-29"))
}
