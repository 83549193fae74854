package storage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestFetchObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := New(Config{}, testLogger())

	data, err := c.FetchObject(context.Background(), srv.URL+"/proof.jpg")

	if err != nil {
		t.Fatalf("FetchObject error: %v", err)
	}

	if string(data) != "image-bytes" {
		t.Fatalf("unexpected body: %q", data)
	}

	_, err = c.FetchObject(context.Background(), srv.URL+"/gone.jpg")

	if err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestDeleteObjects(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotNames  []string
		gotMethod string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method

		var body struct {
			Prefixes []string `json:"prefixes"`
		}

		_ = json.NewDecoder(r.Body).Decode(&body)
		gotNames = body.Prefixes

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:    srv.URL,
		ServiceKey: "service-key",
		Bucket:     "registrations",
	}, testLogger())

	err := c.DeleteObjects(context.Background(), []string{"a.jpg", "b.jpg"})

	if err != nil {
		t.Fatalf("DeleteObjects error: %v", err)
	}

	if gotMethod != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", gotMethod)
	}

	if gotPath != "/storage/v1/object/registrations" {
		t.Fatalf("unexpected path: %s", gotPath)
	}

	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}

	if len(gotNames) != 2 || gotNames[0] != "a.jpg" {
		t.Fatalf("unexpected prefixes: %v", gotNames)
	}
}

func TestDeleteObjects_EmptyIsNoOp(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"}, testLogger())

	if err := c.DeleteObjects(context.Background(), nil); err != nil {
		t.Fatalf("empty delete should be a no-op: %v", err)
	}
}

func TestObjectNameFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://x.supabase.co/storage/v1/object/public/registrations/proof_123.jpg", "proof_123.jpg"},
		{"https://x.supabase.co/storage/v1/object/public/registrations/proof.jpg?token=abc", "proof.jpg"},
		{"proof.jpg", "proof.jpg"},
	}

	for _, tc := range cases {
		if got := ObjectNameFromURL(tc.in); got != tc.want {
			t.Fatalf("ObjectNameFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
