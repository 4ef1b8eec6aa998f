package concept

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// textResponse wraps text the way the messages API returns it.
func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(b)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	return srv, client
}

func TestGenerateEdgeLabel(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		fmt.Fprint(w, textResponse(`{"label": "enables", "directed": true}`))
	})

	got, err := client.GenerateEdgeLabel(context.Background(),
		Concept{Title: "Backpropagation"}, Concept{Title: "Deep Learning"})
	if err != nil {
		t.Fatalf("GenerateEdgeLabel: %v", err)
	}
	if got.Label != "enables" || !got.Directed {
		t.Errorf("got %+v, want {enables true}", got)
	}
}

func TestGenerateEdgeLabelStripsFences(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("```json\n{\"label\": \"is a type of\", \"directed\": true}\n```"))
	})

	got, err := client.GenerateEdgeLabel(context.Background(), Concept{Title: "a"}, Concept{Title: "b"})
	if err != nil {
		t.Fatalf("GenerateEdgeLabel: %v", err)
	}
	if got.Label != "is a type of" {
		t.Errorf("label = %q, want %q", got.Label, "is a type of")
	}
}

func TestMalformedJSONRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, textResponse("sorry, here is the label: enables"))
			return
		}
		fmt.Fprint(w, textResponse(`{"title": "Graphs", "description": "Node-link structures."}`))
	})

	got, err := client.SuggestMerge(context.Background(), Concept{Title: "a"}, Concept{Title: "b"})
	if err != nil {
		t.Fatalf("SuggestMerge: %v", err)
	}
	if got.Title != "Graphs" {
		t.Errorf("title = %q, want Graphs", got.Title)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestMalformedJSONTwiceFails(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, textResponse("not json at all"))
	})

	_, err := client.SuggestMerge(context.Background(), Concept{Title: "a"}, Concept{Title: "b"})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestClassifySimilarEmptyExisting(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	got, err := client.ClassifySimilar(context.Background(), Concept{Title: "new"}, nil)
	if err != nil {
		t.Fatalf("ClassifySimilar: %v", err)
	}
	if len(got.Duplicates) != 0 || len(got.Related) != 0 || len(got.Broader) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d, want 0 for empty existing list", n)
	}
}

func TestClassifySimilar(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse(`{"duplicates": ["n1"], "related": ["n2"], "broader": []}`))
	})

	got, err := client.ClassifySimilar(context.Background(), Concept{Title: "CNNs"}, []Concept{
		{ID: "n1", Title: "Convolutional networks"},
		{ID: "n2", Title: "Image classification"},
	})
	if err != nil {
		t.Fatalf("ClassifySimilar: %v", err)
	}
	if len(got.Duplicates) != 1 || got.Duplicates[0] != "n1" {
		t.Errorf("duplicates = %v, want [n1]", got.Duplicates)
	}
	if len(got.Related) != 1 || got.Related[0] != "n2" {
		t.Errorf("related = %v, want [n2]", got.Related)
	}
}

func TestChatExtract(t *testing.T) {
	answer := "Transformers use attention.\n\n<concepts>\n[{\"title\": \"Attention\", \"type\": \"primary\"}, {\"title\": \"BERT\", \"type\": \"secondary\"}]\n</concepts>"
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse(answer))
	})

	got, err := client.ChatExtract(context.Background(),
		[]ChatMessage{{Role: "user", Content: "What are transformers?"}}, nil)
	if err != nil {
		t.Fatalf("ChatExtract: %v", err)
	}
	if got.Text != "Transformers use attention." {
		t.Errorf("text = %q, concepts block should be stripped", got.Text)
	}
	if len(got.Concepts) != 2 {
		t.Fatalf("concepts = %d, want 2", len(got.Concepts))
	}
	if got.Concepts[0].Title != "Attention" || got.Concepts[0].Type != "primary" {
		t.Errorf("first concept = %+v", got.Concepts[0])
	}
}

func TestChatExtractMalformedBlock(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("Answer text.\n<concepts>{bad</concepts>"))
	})

	got, err := client.ChatExtract(context.Background(),
		[]ChatMessage{{Role: "user", Content: "q"}}, nil)
	if err != nil {
		t.Fatalf("ChatExtract: %v", err)
	}
	if got.Text != "Answer text." {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Concepts) != 0 {
		t.Errorf("concepts = %v, want none for malformed block", got.Concepts)
	}
}

func TestAuthError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ElaborateConcept(context.Background(), Concept{Title: "a"})
	if !errors.Is(err, ErrAuthError) {
		t.Fatalf("err = %v, want ErrAuthError", err)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("never reached"))
	})

	_, err := client.DescribeConcept(ctx, "anything", nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no lang", "```\n[1, 2]\n```", "[1, 2]"},
		{"whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSON(tt.in); got != tt.want {
				t.Errorf("cleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
