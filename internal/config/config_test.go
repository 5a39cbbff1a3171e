package config

import "testing"

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/jeobot")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DISCORD_TOKEN is missing")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/jeobot")
	t.Setenv("COMMAND_PREFIX", "")
	t.Setenv("WEB_BIND", "")
	t.Setenv("DISCORD_REDIRECT_URI", "")
	t.Setenv("CURRENCY_ICON", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	if cfg.WebBind != "0.0.0.0:3000" {
		t.Errorf("WebBind = %q", cfg.WebBind)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.WebUIBaseURL != "http://localhost:3000" {
		t.Errorf("WebUIBaseURL = %q", cfg.WebUIBaseURL)
	}
}

func TestExtractBaseURL(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"http://localhost:3000/api/auth/callback", "http://localhost:3000"},
		{"https://jeobot.example.com/api/auth/callback", "https://jeobot.example.com"},
		{"not a url", "http://localhost:3000"},
		{"", "http://localhost:3000"},
	}
	for _, tt := range tests {
		if got := extractBaseURL(tt.uri); got != tt.want {
			t.Errorf("extractBaseURL(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
