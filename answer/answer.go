// Package answer defines the fixed JSON shape returned by natural-language
// search and the enforcer that converts model output into it.
package answer

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"

	IntentSearch = "search"

	TypeBook = "book"
)

// ErrMalformed is returned by ParseStrict when content does not match the FinalAnswer shape.
var ErrMalformed = errors.New("final answer is malformed")

// Entry is a read-only projection of one catalog record. It carries no identifier.
type Entry struct {
	Title         string  `json:"title"`
	AuthorName    string  `json:"authorName"`
	PublishedDate string  `json:"publishedDate"`
	Publisher     string  `json:"publisher"`
	Genre         string  `json:"genre"`
	Price         float64 `json:"price"`
	Overview      string  `json:"overview"`
	PosterURL     string  `json:"posterUrl"`
}

// FinalAnswer is the result object served to search callers.
type FinalAnswer struct {
	Status  string  `json:"status"`
	Intent  string  `json:"intent,omitempty"`
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	Results []Entry `json:"results"`
}

// FailSafe is the empty successful answer every malformed exchange degrades to.
func FailSafe() FinalAnswer {
	return FinalAnswer{
		Status:  StatusSuccess,
		Type:    TypeBook,
		Count:   0,
		Results: []Entry{},
	}
}

// Books builds a successful book answer whose count matches its results.
func Books(entries []Entry) FinalAnswer {
	results := make([]Entry, len(entries))
	copy(results, entries)
	return FinalAnswer{
		Status:  StatusSuccess,
		Type:    TypeBook,
		Count:   len(results),
		Results: results,
	}
}

// Validate checks the shape invariants of an answer.
func (a FinalAnswer) Validate() error {
	switch a.Status {
	case StatusSuccess, StatusFail:
	default:
		return fmt.Errorf("%w: field=status value=%q", ErrMalformed, a.Status)
	}
	if a.Type != TypeBook {
		return fmt.Errorf("%w: field=type value=%q want=%q", ErrMalformed, a.Type, TypeBook)
	}
	if a.Count < 0 {
		return fmt.Errorf("%w: field=count reason=negative value=%d", ErrMalformed, a.Count)
	}
	if a.Results == nil {
		return fmt.Errorf("%w: field=results reason=missing", ErrMalformed)
	}
	if a.Count != len(a.Results) {
		return fmt.Errorf("%w: field=count value=%d results=%d", ErrMalformed, a.Count, len(a.Results))
	}
	return nil
}

// Encode renders the answer as a single JSON object.
func (a FinalAnswer) Encode() (string, error) {
	if a.Results == nil {
		a.Results = []Entry{}
	}
	encoded, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode final answer: %w", err)
	}
	return string(encoded), nil
}
