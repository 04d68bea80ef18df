package sanitizer

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"bare domain", "recordings.example.com", "https://recordings.example.com"},
		{"http upgraded", "http://Recordings.Example.com/v/123", "https://recordings.example.com/v/123"},
		{"trailing slash", "https://example.com/v/123/", "https://example.com/v/123"},
		{"garbage", "://not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
