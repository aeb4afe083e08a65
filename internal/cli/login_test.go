package cli

import (
	"strings"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "fs_abc123def456", false},
		{"empty key", "", true},
		{"missing prefix", "abc123def456", true},
		{"wrong prefix", "hf_abc123", true},
		{"just prefix", "fs_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAPIKey(%q) err = %v, wantErr = %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestLoginSavesKeyAndServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := runLogin("http://sched.example.com:8080/", "  fs_key123  "); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "fs_key123" {
		t.Errorf("api_key = %q", cfg.APIKey)
	}
	if cfg.ServerURL != "http://sched.example.com:8080" {
		t.Errorf("server_url = %q", cfg.ServerURL)
	}
}

func TestLoginKeepsServerURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := saveConfig(CLIConfig{ServerURL: "http://myhost:9090", DefaultTechnician: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := runLogin("", "fs_other"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://myhost:9090" || cfg.DefaultTechnician != 2 {
		t.Errorf("config not preserved: %+v", cfg)
	}
}

func TestLoginRejectsBadKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := runLogin("", "hf_legacy"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadKey(t *testing.T) {
	tests := map[string]string{
		"fs_abc\n":   "fs_abc",
		"  fs_abc  ": "fs_abc",
		"":           "",
	}
	for in, want := range tests {
		got, err := readKey(strings.NewReader(in))
		if err != nil {
			t.Fatalf("readKey(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("readKey(%q) = %q, want %q", in, got, want)
		}
	}
}
