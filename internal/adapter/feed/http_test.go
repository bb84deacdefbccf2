package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("accept header=%q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"logs":[
			{"timestamp":100,"coordinates":"40.0,-73.0","location":"Main St","label":"fire","text":"smoke"},
			{"timestamp":101,"coordinates":"","location":"","text":"no label"}
		]}`))
	}))
	defer srv.Close()

	entries, err := NewHTTPFeed(srv.URL, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	if entries[0].Timestamp != 100 || entries[0].Label != "fire" || entries[0].Coordinates != "40.0,-73.0" {
		t.Fatalf("entries[0]=%+v", entries[0])
	}
	if entries[1].Label != "" {
		t.Fatalf("entries[1].Label=%q want empty", entries[1].Label)
	}
}

func TestHTTPFeedErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: ErrUnexpectedStatus},
		{name: "not found", status: http.StatusNotFound, body: "", wantErr: ErrUnexpectedStatus},
		{name: "malformed body", status: http.StatusOK, body: `{"logs":[`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			entries, err := NewHTTPFeed(srv.URL, NewHTTPClient(time.Second)).Fetch(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if entries != nil {
				t.Fatalf("entries=%+v want nil", entries)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want %v", err, tc.wantErr)
			}
		})
	}
}

func TestHTTPFeedRespectsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := NewHTTPFeed(srv.URL, nil).Fetch(ctx); err == nil {
		t.Fatal("expected a timeout error")
	}
}
