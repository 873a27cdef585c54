// Package validation checks catalog write payloads before they reach the store.
//
// Payloads are decoded into map[string]any first so that type mismatches can be
// reported per field instead of failing the whole body. Unknown keys are ignored.
package validation

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

const (
	minISBNLength     = 10
	minOverviewLength = 10
)

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every rejected field of one payload.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fieldErr := range e {
		parts[i] = fieldErr.Field + ": " + fieldErr.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Book validates a create payload. Every required field must be present.
func Book(raw map[string]any) (catalog.Book, error) {
	var (
		book catalog.Book
		errs Errors
	)

	book.Title = requiredString(raw, "title", "Title is required", &errs)
	book.AuthorName = requiredString(raw, "authorName", "Author name is required", &errs)
	book.Publisher = requiredString(raw, "publisher", "Publisher is required", &errs)
	book.Genre = requiredString(raw, "genre", "Genre is required", &errs)

	if isbn, ok := optionalString(raw, "isbn", &errs); ok {
		checkISBN(isbn, &errs)
		book.ISBN = isbn
	}
	if published, ok := dateField(raw, "publishedDate", true, &errs); ok {
		book.PublishedDate = &published
	}
	if price, ok := numberField(raw, "price", true, &errs); ok {
		checkPrice(price, &errs)
		book.Price = price
	}
	if stock, ok := integerField(raw, "stockCount", true, &errs); ok {
		checkStock(stock, &errs)
		book.StockCount = stock
	}
	if overview, ok := stringField(raw, "overview", true, &errs); ok {
		checkOverview(overview, &errs)
		book.Overview = overview
	}
	if poster, ok := optionalString(raw, "posterUrl", &errs); ok {
		checkPoster(poster, &errs)
		book.PosterURL = poster
	}

	if len(errs) > 0 {
		return catalog.Book{}, errs
	}
	return book, nil
}

// Patch validates an update payload. Absent fields are left unchanged; present
// fields obey the same rules as Book.
func Patch(raw map[string]any) (catalog.Patch, error) {
	var (
		patch catalog.Patch
		errs  Errors
	)

	for _, field := range []struct {
		key     string
		message string
		target  **string
	}{
		{"title", "Title is required", &patch.Title},
		{"authorName", "Author name is required", &patch.AuthorName},
		{"publisher", "Publisher is required", &patch.Publisher},
		{"genre", "Genre is required", &patch.Genre},
	} {
		if value, ok := stringField(raw, field.key, false, &errs); ok {
			if value == "" {
				errs = append(errs, FieldError{Field: field.key, Message: field.message})
				continue
			}
			*field.target = &value
		}
	}

	if isbn, ok := stringField(raw, "isbn", false, &errs); ok {
		checkISBN(isbn, &errs)
		patch.ISBN = &isbn
	}
	if published, ok := dateField(raw, "publishedDate", false, &errs); ok {
		patch.PublishedDate = &published
	}
	if price, ok := numberField(raw, "price", false, &errs); ok {
		checkPrice(price, &errs)
		patch.Price = &price
	}
	if stock, ok := integerField(raw, "stockCount", false, &errs); ok {
		checkStock(stock, &errs)
		patch.StockCount = &stock
	}
	if overview, ok := stringField(raw, "overview", false, &errs); ok {
		checkOverview(overview, &errs)
		patch.Overview = &overview
	}
	if poster, ok := stringField(raw, "posterUrl", false, &errs); ok {
		checkPoster(poster, &errs)
		patch.PosterURL = &poster
	}

	if len(errs) > 0 {
		return catalog.Patch{}, errs
	}
	return patch, nil
}

func requiredString(raw map[string]any, key, message string, errs *Errors) string {
	value, ok := stringField(raw, key, true, errs)
	if !ok {
		return ""
	}
	if value == "" {
		*errs = append(*errs, FieldError{Field: key, Message: message})
	}
	return value
}

func optionalString(raw map[string]any, key string, errs *Errors) (string, bool) {
	return stringField(raw, key, false, errs)
}

// stringField reports ok=false when the key is absent or has the wrong type.
func stringField(raw map[string]any, key string, required bool, errs *Errors) (string, bool) {
	value, present := raw[key]
	if !present {
		if required {
			*errs = append(*errs, FieldError{Field: key, Message: "Required"})
		}
		return "", false
	}
	text, ok := value.(string)
	if !ok {
		*errs = append(*errs, FieldError{Field: key, Message: "Expected string, received " + typeName(value)})
		return "", false
	}
	return text, true
}

func numberField(raw map[string]any, key string, required bool, errs *Errors) (float64, bool) {
	value, present := raw[key]
	if !present {
		if required {
			*errs = append(*errs, FieldError{Field: key, Message: "Required"})
		}
		return 0, false
	}
	number, ok := value.(float64)
	if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
		*errs = append(*errs, FieldError{Field: key, Message: "Expected number, received " + typeName(value)})
		return 0, false
	}
	return number, true
}

func integerField(raw map[string]any, key string, required bool, errs *Errors) (int, bool) {
	number, ok := numberField(raw, key, required, errs)
	if !ok {
		return 0, false
	}
	if number != math.Trunc(number) || math.Abs(number) > math.MaxInt32 {
		*errs = append(*errs, FieldError{Field: key, Message: "Expected integer, received float"})
		return 0, false
	}
	return int(number), true
}

func dateField(raw map[string]any, key string, required bool, errs *Errors) (time.Time, bool) {
	text, ok := stringField(raw, key, required, errs)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := ParseDate(text)
	if err != nil {
		*errs = append(*errs, FieldError{Field: key, Message: "Invalid date"})
		return time.Time{}, false
	}
	return parsed, true
}

// ParseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates, returned in UTC.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", text)
}

func checkISBN(isbn string, errs *Errors) {
	if len(isbn) < minISBNLength {
		*errs = append(*errs, FieldError{Field: "isbn", Message: "ISBN must be at least 10 characters"})
	}
}

func checkPrice(price float64, errs *Errors) {
	if price < 0 {
		*errs = append(*errs, FieldError{Field: "price", Message: "Price must be positive"})
	}
}

func checkStock(stock int, errs *Errors) {
	if stock < 0 {
		*errs = append(*errs, FieldError{Field: "stockCount", Message: "Stock count must be a non-negative integer"})
	}
}

func checkOverview(overview string, errs *Errors) {
	if len([]rune(overview)) < minOverviewLength {
		*errs = append(*errs, FieldError{Field: "overview", Message: "Overview must be at least 10 characters"})
	}
}

func checkPoster(poster string, errs *Errors) {
	if poster == "" {
		return
	}
	parsed, err := url.Parse(poster)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		*errs = append(*errs, FieldError{Field: "posterUrl", Message: "Invalid URL"})
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
