package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *http.Request)
		country string
		want    string
	}{
		{
			name: "x-language tag wins",
			setup: func(r *http.Request) {
				r.Header.Set("X-Language", "NL")
			},
			country: "DE",
			want:    "dutch",
		},
		{
			name: "x-language name passes through",
			setup: func(r *http.Request) {
				r.Header.Set("X-Language", "Swahili")
			},
			want: "swahili",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
			},
			want: "german",
		},
		{
			name: "accept-language skips unknown tags",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "xx-XX,fr;q=0.7")
			},
			want: "french",
		},
		{
			name:    "country fallback",
			country: "BR",
			want:    "portuguese",
		},
		{
			name:    "unknown country uses default",
			country: "US",
			want:    "english",
		},
		{
			name: "default",
			want: "english",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLanguage(req, DefaultLanguage, tc.country)
			if got != tc.want {
				t.Fatalf("detectLanguage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLanguageMiddlewareContext(t *testing.T) {
	lookup := func(ip string) (string, error) {
		if ip == "203.0.113.7" {
			return "ID", nil
		}
		return "", errors.New("unknown ip")
	}

	var gotLanguage, gotCountry string
	handler := Language("", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLanguage = LanguageFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4455"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotLanguage != "indonesian" {
		t.Fatalf("language = %q, want indonesian", gotLanguage)
	}
	if gotCountry != "ID" {
		t.Fatalf("country = %q, want ID", gotCountry)
	}
}

func TestResolveCountryHeaderPreferred(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "nl")
	got := ResolveCountry(req, func(ip string) (string, error) {
		t.Fatal("lookup must not run when the proxy already resolved the country")
		return "", nil
	})
	if got != "NL" {
		t.Fatalf("country = %q, want NL", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:39822"
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Fatalf("ClientIP = %q, want 192.0.2.10", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.4, 192.0.2.10")
	if got := ClientIP(req); got != "198.51.100.4" {
		t.Fatalf("ClientIP = %q, want first forwarded hop", got)
	}
}
