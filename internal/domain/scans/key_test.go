package scans

import (
	"errors"
	"testing"
)

func TestNormalizeURL_Equivalences(t *testing.T) {
	groups := [][]string{
		{"https://Example.org/", "https://example.org", "HTTPS://EXAMPLE.ORG", "example.org", "  example.org/  "},
		{"http://Example.com/Path?q=A", "HTTP://example.COM/Path?q=A"},
		{"https://sub.Example.org:8443/", "sub.example.org:8443"},
	}
	for _, g := range groups {
		want, err := NormalizeURL(g[0])
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", g[0], err)
		}
		for _, in := range g[1:] {
			got, err := NormalizeURL(in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) error: %v", in, err)
			}
			if got != want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
			}
		}
	}
}

func TestNormalizeURL_Canonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.org/", "https://example.org"},
		{"example.org/login", "https://example.org/login"},
		{"http://Example.org/A/b/?x=1#Frag", "http://example.org/A/b/?x=1#Frag"},
		{"https://example.org/?", "https://example.org"},
		{"ftp://Files.Example.org/pub", "ftp://files.example.org/pub"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL_PathCaseKept(t *testing.T) {
	a, _ := NormalizeURL("https://example.org/Login")
	b, _ := NormalizeURL("https://example.org/login")
	if a == b {
		t.Errorf("path case must be significant, both normalized to %q", a)
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "https://", "http:///path", "https://exa mple.org"} {
		if _, err := NormalizeURL(in); !errors.Is(err, ErrInvalidKeyInput) {
			t.Errorf("NormalizeURL(%q) err = %v, want ErrInvalidKeyInput", in, err)
		}
	}
}

func TestFileKey(t *testing.T) {
	// sha256("abc")
	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := FileKey([]byte("abc")); got != abc {
		t.Errorf("FileKey(abc) = %s, want %s", got, abc)
	}
	b := []byte("sample-bytes-for-hash")
	if FileKey(b) != FileKey(b) {
		t.Error("FileKey is not deterministic")
	}
	if FileKey(b) == FileKey([]byte("sample-bytes-for-hasH")) {
		t.Error("distinct content produced the same key")
	}
	if len(FileKey(nil)) != 64 {
		t.Errorf("FileKey(nil) length = %d, want 64", len(FileKey(nil)))
	}
}
