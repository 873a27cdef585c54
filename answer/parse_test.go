package answer_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
)

func TestParse_ValidAnswer(t *testing.T) {
	t.Parallel()

	content := `{
		"status": "success",
		"intent": "search",
		"type": "book",
		"count": 1,
		"results": [{
			"title": "The Night Circus",
			"authorName": "Erin Morgenstern",
			"publishedDate": "2011-09-13T00:00:00Z",
			"publisher": "Doubleday",
			"genre": "Fiction",
			"price": 12.5,
			"overview": "A magical competition.",
			"posterUrl": "https://example.com/circus.jpg"
		}]
	}`

	got, err := answer.ParseStrict(content)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if got.Status != answer.StatusSuccess || got.Intent != answer.IntentSearch || got.Type != answer.TypeBook {
		t.Fatalf("unexpected header fields: %+v", got)
	}
	if got.Count != 1 || len(got.Results) != 1 {
		t.Fatalf("unexpected count/results: count=%d results=%d", got.Count, len(got.Results))
	}
	if got.Results[0].Title != "The Night Circus" || got.Results[0].Price != 12.5 {
		t.Fatalf("unexpected entry: %+v", got.Results[0])
	}
}

func TestParse_FailSafeOnMalformedContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "whitespace", content: "   \n"},
		{name: "prose", content: "Sure! Here are some books: [...]"},
		{name: "markdown fence", content: "```json\n{\"status\":\"success\",\"type\":\"book\",\"count\":0,\"results\":[]}\n```"},
		{name: "json null", content: "null"},
		{name: "json array", content: `[{"status":"success"}]`},
		{name: "json string", content: `"success"`},
		{name: "two objects", content: `{"status":"success","type":"book","count":0,"results":[]}{"status":"success","type":"book","count":0,"results":[]}`},
		{name: "trailing prose", content: `{"status":"success","type":"book","count":0,"results":[]} hope this helps`},
		{name: "missing status", content: `{"type":"book","count":0,"results":[]}`},
		{name: "unknown status", content: `{"status":"ok","type":"book","count":0,"results":[]}`},
		{name: "wrong type", content: `{"status":"success","type":"movie","count":0,"results":[]}`},
		{name: "missing count", content: `{"status":"success","type":"book","results":[]}`},
		{name: "fractional count", content: `{"status":"success","type":"book","count":0.5,"results":[]}`},
		{name: "negative count", content: `{"status":"success","type":"book","count":-1,"results":[]}`},
		{name: "missing results", content: `{"status":"success","type":"book","count":0}`},
		{name: "null results", content: `{"status":"success","type":"book","count":0,"results":null}`},
		{name: "results object", content: `{"status":"success","type":"book","count":0,"results":{}}`},
		{name: "count mismatch", content: `{"status":"success","type":"book","count":2,"results":[{"title":"x"}]}`},
		{name: "price as string", content: `{"status":"success","type":"book","count":1,"results":[{"title":"x","price":"9.99"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := answer.ParseStrict(tc.content); !errors.Is(err, answer.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			got := answer.Parse(tc.content)
			if !reflect.DeepEqual(got, answer.FailSafe()) {
				t.Fatalf("expected fail-safe answer, got %+v", got)
			}
		})
	}
}

func TestFailSafe_Shape(t *testing.T) {
	t.Parallel()

	got := answer.FailSafe()
	encoded, err := got.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"status":"success","type":"book","count":0,"results":[]}`
	if encoded != want {
		t.Fatalf("unexpected fail-safe encoding: got=%s want=%s", encoded, want)
	}
}

func TestParse_FailStatusIsAccepted(t *testing.T) {
	t.Parallel()

	got := answer.Parse(`{"status":"fail","intent":"search","type":"book","count":0,"results":[]}`)
	if got.Status != answer.StatusFail {
		t.Fatalf("unexpected status: got=%q want=%q", got.Status, answer.StatusFail)
	}
}

func TestBooks_CountMatchesResults(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7} {
		entries := make([]answer.Entry, n)
		got := answer.Books(entries)
		if got.Count != len(got.Results) || got.Count != n {
			t.Fatalf("count invariant broken: count=%d results=%d want=%d", got.Count, len(got.Results), n)
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}
}

func TestEncodeThenParse_RoundTripsToolShape(t *testing.T) {
	t.Parallel()

	original := answer.Books([]answer.Entry{{Title: "Dune", AuthorName: "Frank Herbert", Price: 9}})
	encoded, err := original.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := answer.Parse(encoded); !reflect.DeepEqual(got, original) {
		t.Fatalf("unexpected parse: got=%+v want=%+v", got, original)
	}
}
