package security

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"normal api call", "/api/transactions", false},
		{"path traversal", "/api/../../etc/passwd", true},
		{"wordpress probe", "/wp-admin/setup.php", true},
		{"env file probe", "/.env", true},
		{"script injection in query", "/api/stats?redirect=javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.path, nil)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if m := d.GetMetrics(); m.SuspiciousRequests != 4 {
		t.Errorf("SuspiciousRequests = %d, want 4", m.SuspiciousRequests)
	}
}

func TestDetectSuspiciousRequest_LongURL(t *testing.T) {
	d := NewDetector()
	r := httptest.NewRequest("GET", "/api/stats?x="+strings.Repeat("a", 3000), nil)
	if !d.DetectSuspiciousRequest(r) {
		t.Error("oversized URL not flagged")
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded via trusted proxy",
			remoteAddr: "10.0.0.1:51234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip via trusted proxy",
			remoteAddr: "127.0.0.1:51234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "spoofed header from untrusted peer ignored",
			remoteAddr: "203.0.113.7:51234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:       "203.0.113.7",
		},
		{
			name:       "invalid forwarded value falls back",
			remoteAddr: "10.0.0.1:51234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/transactions", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}
