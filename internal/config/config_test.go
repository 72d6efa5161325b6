package config

import (
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	t.Run("variable set", func(t *testing.T) {
		t.Setenv("BEACON_TEST_VAR", "value")
		if got := requireEnv("BEACON_TEST_VAR"); got != "value" {
			t.Errorf("requireEnv() = %v, want value", got)
		}
	})

	t.Run("variable not set", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("requireEnv() should have panicked")
			}
		}()
		requireEnv("BEACON_TEST_VAR_MISSING")
	})
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "single", input: "10.0.0.0/8", expected: []string{"10.0.0.0/8"}},
		{name: "spaces and quotes", input: ` "a", 'b' ,c `, expected: []string{"a", "b", "c"}},
		{name: "empty entries dropped", input: "a,,b,", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseList(%q) = %v, want %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseList(%q)[%d] = %v, want %v", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BEACON_TEST_DURATION", tt.value)
			if result := mustDuration("BEACON_TEST_DURATION", tt.def); result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "maybe", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BEACON_TEST_BOOL", tt.value)
			if result := mustBool("BEACON_TEST_BOOL", tt.def); result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("BEACON_TEST_INT", "42")
	if got := getenvInt("BEACON_TEST_INT", 1); got != 42 {
		t.Errorf("getenvInt() = %d, want 42", got)
	}
	t.Setenv("BEACON_TEST_INT", "forty-two")
	if got := getenvInt("BEACON_TEST_INT", 1); got != 1 {
		t.Errorf("getenvInt() with invalid value = %d, want default 1", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BEACON_STORE_DRIVER", "")
	t.Setenv("BEACON_LOG_LEVEL", "info")

	cfg := Load()

	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
	if cfg.SQLitePath != "monitoring.db" {
		t.Errorf("SQLitePath = %q, want monitoring.db", cfg.SQLitePath)
	}
	if cfg.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0", cfg.CacheTTL)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want 30s", cfg.SweepInterval)
	}
	if cfg.RateLimitBurst != 0 {
		t.Errorf("RateLimitBurst = %d, want 0 (limiter off)", cfg.RateLimitBurst)
	}
	if cfg.StatusWidth != 0 {
		t.Errorf("StatusWidth = %d, want 0", cfg.StatusWidth)
	}
}

func TestLoadDriverValidation(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantPanic bool
	}{
		{
			name:      "memory driver",
			env:       map[string]string{"BEACON_STORE_DRIVER": "memory"},
			wantPanic: false,
		},
		{
			name:      "driver is case insensitive",
			env:       map[string]string{"BEACON_STORE_DRIVER": "Memory"},
			wantPanic: false,
		},
		{
			name:      "postgres without dsn",
			env:       map[string]string{"BEACON_STORE_DRIVER": "postgres", "BEACON_POSTGRES_DSN": ""},
			wantPanic: true,
		},
		{
			name:      "postgres with dsn",
			env:       map[string]string{"BEACON_STORE_DRIVER": "postgres", "BEACON_POSTGRES_DSN": "postgres://u:p@db/beacon"},
			wantPanic: false,
		},
		{
			name:      "redis without addr",
			env:       map[string]string{"BEACON_STORE_DRIVER": "redis", "BEACON_REDIS_ADDR": ""},
			wantPanic: true,
		},
		{
			name:      "unknown driver",
			env:       map[string]string{"BEACON_STORE_DRIVER": "mongo"},
			wantPanic: true,
		},
		{
			name:      "negative rate limit burst",
			env:       map[string]string{"BEACON_STORE_DRIVER": "memory", "BEACON_RATE_LIMIT_BURST": "-1"},
			wantPanic: true,
		},
		{
			name:      "negative status width",
			env:       map[string]string{"BEACON_STORE_DRIVER": "memory", "BEACON_STATUS_WIDTH": "-3"},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BEACON_LOG_LEVEL", "info")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			defer func() {
				r := recover()
				if tt.wantPanic && r == nil {
					t.Errorf("Load() should have panicked")
				}
				if !tt.wantPanic && r != nil {
					t.Errorf("Load() panicked: %v", r)
				}
			}()

			Load()
		})
	}
}
