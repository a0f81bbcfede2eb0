package models

// Query is a caller's search input. At least one field must be non-blank.
type Query struct {
	Name        string
	Nationality string
}

// Result is what a search returns to callers.
type Result struct {
	Records []Record
	// NationalityCode is the code actually matched, after resolving a country
	// name through the directory.
	NationalityCode string
	// Resolved is false when a nationality longer than two characters did not
	// name a known country and was matched raw.
	Resolved bool
}
