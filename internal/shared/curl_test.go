package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	t.Run("Single Quoted Headers", func(t *testing.T) {
		cmd := `curl 'https://frames.example.com/projects/demo/config.json' \
  -H 'Authorization: Bearer tok-123' \
  -H 'Accept: application/json'`

		req, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.Headers["Authorization"] != "Bearer tok-123" {
			t.Errorf("unexpected Authorization header %q", req.Headers["Authorization"])
		}
		if req.URL != "https://frames.example.com/projects/demo/config.json" {
			t.Errorf("unexpected URL %q", req.URL)
		}
	})

	t.Run("Double Quoted Headers", func(t *testing.T) {
		cmd := `curl "https://frames.example.com/projects/demo/config.json" -H "Authorization: Bearer tok-456"`

		req, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.BearerToken() != "tok-456" {
			t.Errorf("expected token tok-456, got %q", req.BearerToken())
		}
	})

	t.Run("No Request", func(t *testing.T) {
		if _, err := ParseCurlCommand([]byte("echo hello")); err == nil {
			t.Error("expected error for non-curl input")
		}
	})

	t.Run("BearerToken", func(t *testing.T) {
		t.Run("Case Insensitive Header", func(t *testing.T) {
			req := &CurlRequest{Headers: map[string]string{"authorization": "Bearer abc"}}
			if req.BearerToken() != "abc" {
				t.Errorf("expected abc, got %q", req.BearerToken())
			}
		})

		t.Run("Missing Header", func(t *testing.T) {
			req := &CurlRequest{Headers: map[string]string{"Accept": "*/*"}}
			if req.BearerToken() != "" {
				t.Error("expected empty token")
			}
		})

		t.Run("Non Bearer Scheme", func(t *testing.T) {
			req := &CurlRequest{Headers: map[string]string{"Authorization": "Basic Zm9v"}}
			if req.BearerToken() != "" {
				t.Error("expected empty token for non-bearer scheme")
			}
		})
	})

	t.Run("BaseURL", func(t *testing.T) {
		t.Run("Strips Project Path", func(t *testing.T) {
			req := &CurlRequest{URL: "https://frames.example.com/projects/demo/frame_0001.webp"}
			if req.BaseURL() != "https://frames.example.com" {
				t.Errorf("unexpected base URL %q", req.BaseURL())
			}
		})

		t.Run("No Project Path", func(t *testing.T) {
			req := &CurlRequest{URL: "https://frames.example.com/"}
			if req.BaseURL() != "https://frames.example.com" {
				t.Errorf("unexpected base URL %q", req.BaseURL())
			}
		})
	})
}

func TestParseCurlFile(t *testing.T) {
	t.Run("Valid File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "req.sh")
		cmd := `curl 'https://frames.example.com/projects/demo/config.json' -H 'Authorization: Bearer tok-789'`
		if err := os.WriteFile(path, []byte(cmd), 0644); err != nil {
			t.Fatalf("failed to write curl file: %v", err)
		}

		req, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.BearerToken() != "tok-789" {
			t.Errorf("expected token tok-789, got %q", req.BearerToken())
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "missing.sh")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
