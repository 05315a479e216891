package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		params   map[string]string
		expected string
	}{
		{
			name:     "adds parameters",
			base:     "https://api.example.com/parse",
			params:   map[string]string{"url": "https://v.example.com/x"},
			expected: "https://api.example.com/parse?url=https%3A%2F%2Fv.example.com%2Fx",
		},
		{
			name:     "overwrites existing parameter",
			base:     "https://api.example.com/parse?url=old",
			params:   map[string]string{"url": "new"},
			expected: "https://api.example.com/parse?url=new",
		},
		{
			name:     "no params",
			base:     "https://api.example.com/parse",
			params:   nil,
			expected: "https://api.example.com/parse",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := BuildURL(test.base, test.params)
			if result != test.expected {
				t.Errorf("BuildURL = %s, expected %s", result, test.expected)
			}
		})
	}
}

func TestClientSetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second})
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != UserAgentDesktop {
		t.Errorf("Expected desktop user agent, got %s", gotUA)
	}
}

func TestClientHeaderOverride(t *testing.T) {
	var gotUA, gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second})
	defer client.Close()

	headers := map[string]string{
		"User-Agent": UserAgentMobile,
		"X-Custom":   "value",
	}
	resp, err := client.Get(context.Background(), server.URL, headers)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != UserAgentMobile {
		t.Errorf("Expected mobile user agent, got %s", gotUA)
	}
	if gotCustom != "value" {
		t.Errorf("Expected custom header, got %s", gotCustom)
	}
}

func TestClientPost(t *testing.T) {
	var gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{Timeout: 5 * time.Second})
	defer client.Close()

	resp, err := client.Post(context.Background(), server.URL, "application/json",
		strings.NewReader(`{"url":"x"}`), nil)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	resp.Body.Close()

	if gotBody != `{"url":"x"}` {
		t.Errorf("Unexpected body: %s", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("Unexpected content type: %s", gotContentType)
	}
}
