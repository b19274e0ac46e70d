package ocr

import "strings"

// Student holds normalized registration fields ready for the roster.
type Student struct {
	Name       string
	FatherName string
	SchoolName string
	Class      string
	Section    string
	RollNumber string
	Gender     string
}

// DefaultField fills any card field the OCR guess left null.
const DefaultField = "Unknown"

// classTable canonicalizes the class names OCR tends to produce:
// spelled-out words, ordinals and roman numerals.
var classTable = map[string]string{
	"nursery": "Nursery",
	"kg":      "KG", "k.g": "KG", "k.g.": "KG",
	"one": "1", "1st": "1", "first": "1", "i": "1",
	"two": "2", "2nd": "2", "second": "2", "ii": "2",
	"three": "3", "3rd": "3", "third": "3", "iii": "3",
	"four": "4", "4th": "4", "fourth": "4", "iv": "4",
	"five": "5", "5th": "5", "fifth": "5", "v": "5",
	"six": "6", "6th": "6", "sixth": "6", "vi": "6",
	"seven": "7", "7th": "7", "seventh": "7", "vii": "7",
	"eight": "8", "8th": "8", "eighth": "8", "viii": "8",
	"nine": "9", "9th": "9", "ninth": "9", "ix": "9",
	"ten": "10", "10th": "10", "tenth": "10", "x": "10",
}

var genderTable = map[string]string{
	"female": "Female", "girl": "Female", "g": "Female", "f": "Female",
	"male": "Male", "boy": "Male", "b": "Male", "m": "Male",
}

// Normalize maps an OCR guess onto roster-ready fields. Pure and total:
// a nil or all-null guess yields defaults, never an error.
func Normalize(fields *CardFields) Student {
	if fields == nil {
		fields = &CardFields{}
	}
	return Student{
		Name:       textField(fields.Name),
		FatherName: textField(fields.FatherName),
		SchoolName: textField(fields.SchoolName),
		Class:      NormalizeClass(deref(fields.Class)),
		Section:    textField(fields.Section),
		RollNumber: textField(fields.RollNumber),
		Gender:     NormalizeGender(deref(fields.Gender)),
	}
}

// NormalizeClass canonicalizes a class label via the table; unknown
// labels pass through trimmed.
func NormalizeClass(class string) string {
	trimmed := strings.TrimSpace(class)
	if trimmed == "" {
		return DefaultField
	}
	if canon, ok := classTable[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return trimmed
}

// NormalizeGender canonicalizes to "Female"/"Male"; anything else,
// including empty, stays empty and is tallied as unclassified.
func NormalizeGender(gender string) string {
	if canon, ok := genderTable[strings.ToLower(strings.TrimSpace(gender))]; ok {
		return canon
	}
	return ""
}

func textField(val *string) string {
	if val == nil {
		return DefaultField
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return DefaultField
	}
	return trimmed
}

func deref(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
