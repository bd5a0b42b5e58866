package main

import (
	"net/http"
	"net/url"
	"testing"
)

func TestCallbackPath(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		want     string
	}{
		{"no path", "http://localhost:8000", "/"},
		{"root path", "http://localhost:8000/", "/"},
		{"callback path", "http://127.0.0.1:8888/callback", "/callback"},
		{"query is ignored", "http://localhost:8000/cb?x=1", "/cb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.redirect)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.redirect, err)
			}
			got := callbackPath(u)
			if got != tt.want {
				t.Errorf("callbackPath(%q) = %q, want %q", tt.redirect, got, tt.want)
			}

			// Registering the pattern must not panic.
			http.NewServeMux().HandleFunc(got, func(http.ResponseWriter, *http.Request) {})
		})
	}
}
