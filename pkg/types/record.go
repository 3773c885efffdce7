package types

import "strconv"

// Record is a single inventory entry. ID is assigned by the store on insert
// and never changes; Name is not unique.
type Record struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Quantity int64  `json:"quantity" yaml:"quantity"`
}

// ParseQuantity converts caller-supplied text into a quantity.
// Returns a *ValidationError if s is not a base-10 integer or is negative.
func ParseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewValidationError("quantity", s, "must be a non-negative integer")
	}
	if q < 0 {
		return 0, NewValidationError("quantity", s, "must not be negative")
	}
	return q, nil
}

// CloneRecords returns a copy of recs that shares no memory with the input.
// A nil input yields an empty, non-nil slice.
func CloneRecords(recs []Record) []Record {
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}
