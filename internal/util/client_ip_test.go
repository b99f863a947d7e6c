package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}

	cases := []struct {
		peer    string
		xff     string
		trusted *TrustedProxies
		want    string
	}{
		{peer: "198.51.100.10:1234", xff: "203.0.113.5", want: "198.51.100.10"},
		{peer: "198.51.100.10:1234", xff: "203.0.113.5", trusted: trusted, want: "198.51.100.10"},
		{peer: "10.0.0.20:1234", xff: "203.0.113.5", trusted: trusted, want: "203.0.113.5"},
		{peer: "192.168.1.10:80", xff: "198.51.100.1, 203.0.113.5, 10.1.2.3", trusted: trusted, want: "203.0.113.5"},
		{peer: "10.0.0.20:1234", xff: "garbage, 10.0.0.9", trusted: trusted, want: "10.0.0.9"},
		{peer: "10.0.0.20:1234", trusted: trusted, want: "10.0.0.20"},
		{peer: "[::ffff:10.0.0.20]:443", xff: "203.0.113.9", trusted: trusted, want: "203.0.113.9"},
		{peer: "[2001:db8::1]:443", want: "2001:db8::1"},
		{peer: "pipe", want: "pipe"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "http://example.com", nil)
		req.RemoteAddr = tc.peer
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if got := ClientIP(req, tc.trusted); got != tc.want {
			t.Fatalf("ClientIP(peer %s, xff %q) = %q, want %q", tc.peer, tc.xff, got, tc.want)
		}
	}
}

func TestNewTrustedProxies(t *testing.T) {
	if tp, err := NewTrustedProxies(nil); err != nil || tp != nil {
		t.Fatalf("empty entries = %v, %v", tp, err)
	}
	for _, bad := range []string{"bad-cidr", "10.0.0.0/33"} {
		if _, err := NewTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected parse error for %q", bad)
		}
	}
}

func TestRateLimitKeySeparatesKindAndWorkspace(t *testing.T) {
	req := httptest.NewRequest("POST", "http://example.com/api/content", nil)
	req.RemoteAddr = "198.51.100.10:1234"
	req.Header.Set(WorkspaceHeader, "ws1")
	content := RateLimitKey(req, nil, "content")
	if content != "content:ws1:198.51.100.10" {
		t.Fatalf("key = %q", content)
	}
	if images := RateLimitKey(req, nil, "images"); images == content {
		t.Fatalf("kinds share a key: %q", images)
	}
	req.Header.Set(WorkspaceHeader, "ws2")
	if other := RateLimitKey(req, nil, "content"); other == content {
		t.Fatalf("workspaces share a key: %q", other)
	}
}
