package httpd

import (
	"strings"
	"testing"
	"time"
)

func TestBuildResponseOK(t *testing.T) {
	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	got := string(buildResponse(StatusOK, now))
	want := "HTTP/1.0 200 OK\r\nDate: Thu, 30 Jul 2026 12:00:00 GMT\r\n\r\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildResponseNotFound(t *testing.T) {
	got := string(buildResponse(StatusNotFound, time.Now()))
	if got != "HTTP/1.0 404 Not Found\r\n\r\n" {
		t.Fatalf("unexpected 404 response: %q", got)
	}
}

func TestBuildResponseFitsDefaultBuffer(t *testing.T) {
	got := buildResponse(StatusOK, time.Now())
	if len(got) >= BufferSize {
		t.Fatalf("200 response (%d bytes) does not fit BufferSize (%d)", len(got), BufferSize)
	}
}

func TestBuildResponsePanicsOnUnknownStatus(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an unsupported status")
		}
	}()
	buildResponse(599, time.Now())
}

func TestBuildResponseHasNoContentTypeOrLength(t *testing.T) {
	got := string(buildResponse(StatusOK, time.Now()))
	if strings.Contains(got, "Content-Length") || strings.Contains(got, "Content-Type") {
		t.Fatalf("response must not carry Content-Length/Content-Type: %q", got)
	}
}
