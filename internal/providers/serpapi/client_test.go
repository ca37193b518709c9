package serpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAverageRent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "average rent for 3 bedroom home in 77002" {
			t.Errorf("unexpected query %q", got)
		}

		w.Write([]byte(`{"answer_box": {"snippet_highlighted_words": ["around", "$1,850", "per month"]}}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	rent, err := client.AverageRent(context.Background(), "77002", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rent != 1850 {
		t.Errorf("expected rent 1850, got %f", rent)
	}
}

func TestAverageRent_NoAnswerBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.AverageRent(context.Background(), "77002", 3)
	if !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("expected ErrNoEstimate, got %v", err)
	}
}

func TestAverageRent_NoNumericSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer_box": {"snippet_highlighted_words": ["rent", "varies"]}}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.AverageRent(context.Background(), "77002", 2)
	if !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("expected ErrNoEstimate, got %v", err)
	}
}

func TestParseRentFigure(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,850", 1850, true},
		{"2100/mo", 2100, true},
		{"about", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseRentFigure(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseRentFigure(%q) = (%f, %v), want (%f, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
