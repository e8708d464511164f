package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{Header: make(http.Header)}

	auth.Apply(req, "secret")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "secret")

	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Expected Authorization header 'Bearer secret', got '%s'", got)
	}
}

// TestBasicAuth tests user and password authentication.
func TestBasicAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BasicAuth{User: "rooms"}).Apply(req, "secret")

	user, pass, ok := req.BasicAuth()
	if !ok || user != "rooms" || pass != "secret" {
		t.Errorf("BasicAuth() = %q, %q, %v", user, pass, ok)
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&HeaderAuth{Header: "X-Calendar-Token"}).Apply(req, "secret")

	if got := req.Header.Get("X-Calendar-Token"); got != "secret" {
		t.Errorf("Expected X-Calendar-Token 'secret', got '%s'", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	u, _ := url.Parse("https://example.com/feed.ics?lang=ja")
	req := &http.Request{URL: u, Header: make(http.Header)}
	(&QueryAuth{Param: "token"}).Apply(req, "secret")

	q := req.URL.Query()
	if q.Get("token") != "secret" || q.Get("lang") != "ja" {
		t.Errorf("query = %s", req.URL.RawQuery)
	}

	// A request without URL is left alone.
	(&QueryAuth{Param: "token"}).Apply(&http.Request{}, "secret")
}

// TestForScheme tests scheme lookup.
func TestForScheme(t *testing.T) {
	tests := []struct {
		scheme  string
		name    string
		want    Authenticator
		wantErr bool
	}{
		{SchemeNone, "", &NoAuth{}, false},
		{SchemeBearer, "", &BearerAuth{}, false},
		{SchemeBasic, "rooms", &BasicAuth{User: "rooms"}, false},
		{SchemeHeader, "X-Token", &HeaderAuth{Header: "X-Token"}, false},
		{SchemeHeader, "", nil, true},
		{SchemeQuery, "token", &QueryAuth{Param: "token"}, false},
		{SchemeQuery, "", nil, true},
		{"digest", "", nil, true},
	}
	for _, tt := range tests {
		got, err := ForScheme(tt.scheme, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForScheme(%q) error = %v, wantErr %v", tt.scheme, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ForScheme(%q) = %#v, want %#v", tt.scheme, got, tt.want)
		}
	}
}

// TestClientGet tests feed fetching with authentication.
func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("User-Agent") != UserAgent {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	ctx := context.Background()
	body, err := New(WithAuth(&BearerAuth{}, "secret")).Get(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(body) != "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n" {
		t.Errorf("body = %q", body)
	}

	if _, err := New().Get(ctx, srv.URL); err == nil {
		t.Error("Get() without auth should fail with 401")
	}
}

// TestFeedURL tests webcal rewriting.
func TestFeedURL(t *testing.T) {
	if got := FeedURL("webcal://example.com/a.ics"); got != "https://example.com/a.ics" {
		t.Errorf("FeedURL() = %q", got)
	}
	if got := FeedURL("http://example.com/a.ics"); got != "http://example.com/a.ics" {
		t.Errorf("FeedURL() = %q", got)
	}
}
