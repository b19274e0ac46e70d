package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNormalizeNilGuess(t *testing.T) {
	got := Normalize(nil)

	assert.Equal(t, DefaultField, got.Name)
	assert.Equal(t, DefaultField, got.FatherName)
	assert.Equal(t, DefaultField, got.SchoolName)
	assert.Equal(t, DefaultField, got.Class)
	assert.Equal(t, DefaultField, got.Section)
	assert.Equal(t, DefaultField, got.RollNumber)
	assert.Equal(t, "", got.Gender)
}

func TestNormalizeFillsNullsIndependently(t *testing.T) {
	got := Normalize(&CardFields{
		Name:   strPtr("  Amina Yusuf "),
		Class:  strPtr("Three"),
		Gender: strPtr("girl"),
	})

	assert.Equal(t, "Amina Yusuf", got.Name)
	assert.Equal(t, "3", got.Class)
	assert.Equal(t, "Female", got.Gender)
	assert.Equal(t, DefaultField, got.FatherName)
	assert.Equal(t, DefaultField, got.RollNumber)
}

func TestNormalizeClass(t *testing.T) {
	cases := map[string]string{
		"one":     "1",
		"1st":     "1",
		"I":       "1",
		"  Two ":  "2",
		"VIII":    "8",
		"10th":    "10",
		"KG":      "KG",
		"nursery": "Nursery",
		"5":       "5",       // already canonical, passes through
		"Grade 5": "Grade 5", // unknown label, trimmed passthrough
		"":        DefaultField,
		"   ":     DefaultField,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeClass(in), "class %q", in)
	}
}

func TestNormalizeGender(t *testing.T) {
	cases := map[string]string{
		"female": "Female",
		"GIRL":   "Female",
		"g":      "Female",
		"F":      "Female",
		"male":   "Male",
		"Boy":    "Male",
		"b":      "Male",
		"M":      "Male",
		" boy ":  "Male",
		"":       "",
		"other":  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeGender(in), "gender %q", in)
	}
}
