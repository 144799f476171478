package mediabias

import "testing"

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full https url", "https://www.example.com/a/b", "example.com"},
		{"full http url", "http://example.com", "example.com"},
		{"bare domain with path", "example.com/feed", "example.com"},
		{"bare name, no slash", "ExampleNews", "examplenews"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDomain(tt.in); got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDomainsMatch(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		want   bool
	}{
		{"exact match", "example.com", "example.com", true},
		{"subdomain of target", "news.example.com", "example.com", true},
		{"target subdomain of source", "example.com", "news.example.com", true},
		{"shared root domain", "a.example.com", "b.example.com", true},
		{"no tld on source", "westernjournal", "westernjournal.com", true},
		{"no tld on target", "westernjournal.com", "westernjournal", true},
		{"unrelated domains", "example.com", "other.org", false},
		{"empty source", "", "example.com", false},
		{"empty target", "example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DomainsMatch(tt.source, tt.target); got != tt.want {
				t.Errorf("DomainsMatch(%q, %q) = %v, want %v", tt.source, tt.target, got, tt.want)
			}
		})
	}
}
