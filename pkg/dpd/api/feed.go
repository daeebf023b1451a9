package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kskby/dpd/pkg/dpd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// feedMaxAge is how long a downloaded feed file stays fresh before the next
// Open triggers a re-download.
const feedMaxAge = 24 * time.Hour

// Feed serves the carrier's bulk geography CSV. The file is `;`-separated,
// windows-1251 encoded and large, so rows are streamed and reads can resume
// from a byte offset recorded by a previous pass.
type Feed struct {
	// URL is the remote source. Empty means Path is managed externally and
	// never refreshed.
	URL string
	// Path is the local copy the reader operates on.
	Path string

	httpClient *http.Client
}

// NewFeed creates a feed that caches the remote CSV under dataDir.
func NewFeed(url, dataDir string) *Feed {
	return &Feed{
		URL:        url,
		Path:       filepath.Join(dataDir, "cities.csv"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Open refreshes the local copy when stale and positions a reader at the
// given byte offset. It returns the reader and the current file size.
func (f *Feed) Open(ctx context.Context, offset int64) (*FeedReader, int64, error) {
	if err := f.refresh(ctx); err != nil {
		return nil, 0, err
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", dpd.ErrFeedUnavailable, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("%w: %v", dpd.ErrFeedUnavailable, err)
	}

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			file.Close()
			return nil, 0, fmt.Errorf("%w: seek to %d: %v", dpd.ErrFeedUnavailable, offset, err)
		}
	}

	// The CSV reader parses the raw windows-1251 bytes. The encoding is
	// single-byte, so `;` and newlines are unambiguous and InputOffset
	// reports real file positions; fields are decoded afterwards.
	cr := csv.NewReader(file)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return &FeedReader{
		file:    file,
		csv:     cr,
		base:    offset,
		decoder: charmap.Windows1251.NewDecoder(),
	}, info.Size(), nil
}

// refresh downloads the feed when the local copy is missing or older than
// feedMaxAge. Download failures are tolerated while a previous copy exists.
func (f *Feed) refresh(ctx context.Context) error {
	if f.URL == "" {
		return nil
	}

	info, err := os.Stat(f.Path)
	fresh := err == nil && time.Since(info.ModTime()) < feedMaxAge
	if fresh {
		return nil
	}

	if derr := f.download(ctx); derr != nil {
		if err == nil {
			// Keep serving the stale copy.
			return nil
		}
		return fmt.Errorf("%w: %v", dpd.ErrFeedUnavailable, derr)
	}
	return nil
}

func (f *Feed) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}

	client := f.httpClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed download: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}

	tmp := f.Path + ".bak"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.Path)
}

// FeedReader streams decoded rows from the feed file.
type FeedReader struct {
	file    *os.File
	csv     *csv.Reader
	base    int64
	decoder *encoding.Decoder
}

// Next returns the next row with all fields decoded to UTF-8. It returns
// io.EOF at the end of the feed. Rows that fail CSV parsing are surfaced as
// dpd.ErrMalformedRecord so callers can skip them.
func (r *FeedReader) Next() ([]string, error) {
	row, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %v", dpd.ErrMalformedRecord, err)
		}
		return nil, err
	}

	for i, field := range row {
		decoded, derr := r.decoder.String(field)
		if derr != nil {
			return nil, fmt.Errorf("%w: field %d: %v", dpd.ErrMalformedRecord, i, derr)
		}
		row[i] = decoded
	}
	return row, nil
}

// Offset returns the byte position in the feed file just past the last row
// returned by Next. It is the resume point for the next pass.
func (r *FeedReader) Offset() int64 {
	return r.base + r.csv.InputOffset()
}

// Close releases the underlying file.
func (r *FeedReader) Close() error {
	return r.file.Close()
}
