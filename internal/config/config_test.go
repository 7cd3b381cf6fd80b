package config

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid config",
			config: Config{
				Port:          "8081",
				APIBaseURL:    "http://localhost:8000/api",
				SessionDBPath: "./test.db",
				LogLevel:      "info",
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:          "abc",
				APIBaseURL:    "http://localhost:8000/api",
				SessionDBPath: "./test.db",
				LogLevel:      "info",
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range",
			config: Config{
				Port:          "70000",
				APIBaseURL:    "http://localhost:8000/api",
				SessionDBPath: "./test.db",
				LogLevel:      "info",
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "invalid API URL scheme",
			config: Config{
				Port:          "8081",
				APIBaseURL:    "ftp://example.com/api",
				SessionDBPath: "./test.db",
				LogLevel:      "info",
			},
			wantErr:     true,
			errorString: "invalid API base URL scheme 'ftp'",
		},
		{
			name: "empty session db path",
			config: Config{
				Port:       "8081",
				APIBaseURL: "http://localhost:8000/api",
				LogLevel:   "info",
			},
			wantErr:     true,
			errorString: "session database path cannot be empty",
		},
		{
			name: "invalid log level",
			config: Config{
				Port:          "8081",
				APIBaseURL:    "http://localhost:8000/api",
				SessionDBPath: "./test.db",
				LogLevel:      "verbose",
			},
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorString)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8081" {
		t.Errorf("default port = %q, want 8081", cfg.Port)
	}
	if cfg.APIBaseURL != "http://localhost:8000/api" {
		t.Errorf("default API base URL = %q", cfg.APIBaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_BASE_URL", "https://budget.example.com/api")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Port)
	}
	if cfg.APIBaseURL != "https://budget.example.com/api" {
		t.Errorf("API base URL = %q", cfg.APIBaseURL)
	}
}
