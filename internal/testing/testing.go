// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/saberlist/saberlist/internal/services"
)

// FakeCatalog is a test double for [services.Catalog] serving pages from memory.
type FakeCatalog struct {
	Pages    [][]services.RawSong
	FailPage int // page index that fails with Err, -1 disables
	Err      error
	Requests int
}

// NewFakeCatalog builds a catalog whose final page is marked Last.
func NewFakeCatalog(pages ...[]services.RawSong) *FakeCatalog {
	return &FakeCatalog{Pages: pages, FailPage: -1}
}

func (f *FakeCatalog) RankedPage(ctx context.Context, page int) (*services.RankedPage, error) {
	f.Requests++

	if f.FailPage >= 0 && page == f.FailPage {
		return nil, f.Err
	}
	if page >= len(f.Pages) {
		return &services.RankedPage{Songs: nil, Last: true}, nil
	}

	return &services.RankedPage{
		Songs: f.Pages[page],
		Last:  page == len(f.Pages)-1,
	}, nil
}

func (f *FakeCatalog) Name() string { return "fake" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
