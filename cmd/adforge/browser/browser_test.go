package browser

import (
	"errors"
	"testing"
)

func TestDetectChallengePage(t *testing.T) {
	tests := []struct {
		name  string
		title string
		html  string
		want  string
	}{
		{"listing", "4 Bed Duplex | Lekki", "<html><body><h1>Duplex</h1></body></html>", ""},
		{"cloudflare title", "Just a moment...", "<html></html>", "cloudflare"},
		{"cloudflare script", "", `<script>window._cf_chl_opt={}</script>`, "cloudflare"},
		{"turnstile", "", `<div class="cf-turnstile"></div>`, "cloudflare-turnstile"},
		{"hcaptcha", "", `<script src="https://hcaptcha.com/1/api.js"></script>`, "hcaptcha"},
		{"recaptcha", "", `<div class="g-recaptcha"></div>`, "recaptcha"},
		{"access denied", "Access Denied", "", "anti-bot"},
		{"robot check", "", "<p>Are you a robot or human?</p>", "anti-bot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectChallengePage(tt.title, tt.html); got != tt.want {
				t.Errorf("detectChallengePage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindBinary(t *testing.T) {
	installed := map[string]string{"chromium": "/usr/bin/chromium"}
	lookPath := func(name string) (string, error) {
		if p, ok := installed[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}

	if got := findBinary([]string{"google-chrome", "chromium", "chrome"}, lookPath); got != "/usr/bin/chromium" {
		t.Errorf("findBinary() = %q, want /usr/bin/chromium", got)
	}
	if got := findBinary([]string{"google-chrome"}, lookPath); got != "" {
		t.Errorf("findBinary() = %q, want empty", got)
	}
}

func TestRenderer_NameAndClose(t *testing.T) {
	r, err := New(Config{ChromePath: "/nonexistent/chrome"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.Name() != "browser" {
		t.Errorf("Name() = %q, want browser", r.Name())
	}
	if r.config.UserAgent == "" {
		t.Error("expected default user agent")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
