package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type wireAnswer struct {
	Status  *string  `json:"status"`
	Intent  *string  `json:"intent"`
	Type    *string  `json:"type"`
	Count   *int     `json:"count"`
	Results *[]Entry `json:"results"`
}

// Parse converts the terminal message content into a FinalAnswer. Anything
// that is not exactly one JSON object of the expected shape yields FailSafe.
func Parse(content string) FinalAnswer {
	parsed, err := ParseStrict(content)
	if err != nil {
		return FailSafe()
	}
	return parsed
}

// ParseStrict is Parse with the rejection reason exposed for logging.
func ParseStrict(content string) (FinalAnswer, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return FinalAnswer{}, fmt.Errorf("%w: reason=empty", ErrMalformed)
	}

	decoder := json.NewDecoder(strings.NewReader(trimmed))
	var wire wireAnswer
	if err := decoder.Decode(&wire); err != nil {
		return FinalAnswer{}, fmt.Errorf("%w: reason=invalid_json: %v", ErrMalformed, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return FinalAnswer{}, fmt.Errorf("%w: reason=trailing_content", ErrMalformed)
	}

	switch {
	case wire.Status == nil:
		return FinalAnswer{}, fmt.Errorf("%w: field=status reason=missing", ErrMalformed)
	case wire.Type == nil:
		return FinalAnswer{}, fmt.Errorf("%w: field=type reason=missing", ErrMalformed)
	case wire.Count == nil:
		return FinalAnswer{}, fmt.Errorf("%w: field=count reason=missing", ErrMalformed)
	case wire.Results == nil || *wire.Results == nil:
		return FinalAnswer{}, fmt.Errorf("%w: field=results reason=missing", ErrMalformed)
	}

	out := FinalAnswer{
		Status:  *wire.Status,
		Type:    *wire.Type,
		Count:   *wire.Count,
		Results: *wire.Results,
	}
	if wire.Intent != nil {
		out.Intent = *wire.Intent
	}
	if err := out.Validate(); err != nil {
		return FinalAnswer{}, err
	}
	return out, nil
}
