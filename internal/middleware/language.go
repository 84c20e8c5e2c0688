package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type languageContextKey struct{}
type countryContextKey struct{}

var (
	LanguageKey = languageContextKey{}
	CountryKey  = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// DefaultLanguage is used when no signal in the request identifies one.
const DefaultLanguage = "english"

// Stories are written in a natural language, so language tags are mapped to
// plain language names the prompt templates can interpolate directly.
var languageNames = map[string]string{
	"en": "english",
	"nl": "dutch",
	"de": "german",
	"fr": "french",
	"es": "spanish",
	"it": "italian",
	"pt": "portuguese",
	"id": "indonesian",
	"tr": "turkish",
	"ar": "arabic",
}

var countryLanguages = map[string]string{
	"NL": "dutch",
	"BE": "dutch",
	"DE": "german",
	"AT": "german",
	"FR": "french",
	"ES": "spanish",
	"IT": "italian",
	"PT": "portuguese",
	"BR": "portuguese",
	"ID": "indonesian",
	"TR": "turkish",
}

// Language detects the story language for a request and stores it in the
// context. Explicit X-Language wins, then Accept-Language, then the GeoIP
// country of the client, then the configured default.
func Language(defaultLanguage string, lookup CountryLookup) func(http.Handler) http.Handler {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			language := detectLanguage(r, defaultLanguage, country)
			ctx := context.WithValue(r.Context(), LanguageKey, language)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LanguageFromContext returns the detected story language, or the default.
func LanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LanguageKey).(string); ok && v != "" {
		return v
	}
	return DefaultLanguage
}

// CountryFromContext returns the resolved ISO country code, if any.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

func detectLanguage(r *http.Request, fallback string, country string) string {
	if v := r.Header.Get("X-Language"); v != "" {
		return normalizeLanguage(v, fallback)
	}
	if v := parseAcceptLanguage(r.Header.Get("Accept-Language")); v != "" {
		return v
	}
	if lang, ok := countryLanguages[strings.ToUpper(country)]; ok {
		return lang
	}
	return fallback
}

func parseAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if name, ok := languageNames[primary]; ok {
			return name
		}
	}
	return ""
}

func normalizeLanguage(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	if name, ok := languageNames[value]; ok {
		return name
	}
	// Already a language name ("english", "dutch", ...): pass through.
	return value
}

// ResolveCountry determines the client country via the lookup, preferring an
// explicit CF-IPCountry style header when a proxy already resolved it.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	if v := r.Header.Get("CF-IPCountry"); v != "" && !strings.EqualFold(v, "XX") {
		return strings.ToUpper(v)
	}
	if lookup == nil {
		return ""
	}
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return country
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
