package utils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/beacon/internal/logger"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:5000", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:5000", want: "2001:db8::1"},
		{name: "headers ignored without trust", remoteAddr: "192.0.2.1:5000", headers: map[string]string{"X-Forwarded-For": "10.0.0.1"}, want: "192.0.2.1"},
		{name: "cf header first", remoteAddr: "127.0.0.1:5000", trustProxy: true, headers: map[string]string{"CF-Connecting-IP": "10.0.0.9", "X-Forwarded-For": "10.0.0.1"}, want: "10.0.0.9"},
		{name: "left-most forwarded for", remoteAddr: "127.0.0.1:5000", trustProxy: true, headers: map[string]string{"X-Forwarded-For": " 10.0.0.1 , 10.0.0.2"}, want: "10.0.0.1"},
		{name: "real ip fallback", remoteAddr: "127.0.0.1:5000", trustProxy: true, headers: map[string]string{"X-Real-IP": "10.0.0.3"}, want: "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.0.2.7 ", "not-an-ip", ""})
	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	for ip, want := range map[string]bool{
		"10.20.30.40": true,
		"192.0.2.7":   true,
		"192.0.2.8":   false,
		"garbage":     false,
	} {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}

	if !NewIPMatcher([]string{"nope"}).IsEmpty() {
		t.Error("matcher of invalid entries should be empty")
	}
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestMustClose(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	MustClose(closer{}, log, "store")
	MustClose(closer{err: errors.New("boom")}, log, "store")

	if n := logs.FilterMessage("failed to close").Len(); n != 1 {
		t.Errorf("failed to close logged %d times, want 1", n)
	}
	if n := logs.FilterMessage("closed").Len(); n != 1 {
		t.Errorf("closed logged %d times, want 1", n)
	}
}

func TestIPMatcherMappedIPv6(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", "2001:db8::/32"})

	if !m.Allow("::ffff:10.1.2.3") {
		t.Error("IPv4-mapped address should match the IPv4 rule")
	}
	if !m.Allow("2001:db8::42") {
		t.Error("IPv6 address should match the IPv6 rule")
	}
}
