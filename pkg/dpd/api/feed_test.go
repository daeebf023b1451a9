package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
)

func encodeCP1251(t *testing.T, s string) []byte {
	t.Helper()
	encoded, err := charmap.Windows1251.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(encoded)
}

func writeFeed(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(path, encodeCP1251(t, content), 0o644))
	return path
}

func TestFeedReader_DecodesRows(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "195455591;RU77000000000;г;Москва;Московская область;Россия\n")

	feed := api.NewFeed("", dir)
	reader, size, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)
	defer reader.Close()
	assert.Positive(t, size)

	row, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, row, 6)
	assert.Equal(t, "Москва", row[3])
	assert.Equal(t, "Россия", row[5])

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFeedReader_OffsetResume(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir,
		"1;RU77;г;Москва;Московская;Россия\n"+
			"2;RU78;г;Санкт-Петербург;Ленинградская;Россия\n"+
			"3;KZ75;г;Алматы;Алматинская;Казахстан\n")

	feed := api.NewFeed("", dir)
	reader, size, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)

	_, err = reader.Next()
	require.NoError(t, err)
	offset := reader.Offset()
	require.NoError(t, reader.Close())
	require.Less(t, offset, size)

	reader, _, err = feed.Open(context.Background(), offset)
	require.NoError(t, err)
	defer reader.Close()

	row, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "2", row[0])

	row, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "3", row[0])

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFeedReader_ToleratesStrayQuotesAndRaggedRows(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir,
		"1;RU77;г;Москва;Московская;Россия\n"+
			"2;RU78;г;оз. \"Долгое\";Ленинградская;Россия\n"+
			"3;KZ75;г\n")

	feed := api.NewFeed("", dir)
	reader, _, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Next()
	require.NoError(t, err)

	row, err := reader.Next()
	require.NoError(t, err)
	assert.Contains(t, row[3], "Долгое")

	row, err = reader.Next()
	require.NoError(t, err)
	assert.Len(t, row, 3, "short rows surface as-is for the caller to skip")
}

func TestFeed_DownloadsWhenMissing(t *testing.T) {
	body := encodeCP1251(t, "1;RU77;г;Москва;Московская;Россия\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	feed := api.NewFeed(srv.URL, dir)

	reader, _, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)
	defer reader.Close()

	row, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "Москва", row[3])
}

func TestFeed_SkipsDownloadWhileFresh(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write(encodeCP1251(t, "remote;row\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFeed(t, dir, "local;row\n")

	feed := api.NewFeed(srv.URL, dir)
	reader, _, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)
	defer reader.Close()

	row, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "local", row[0])
	assert.Zero(t, hits)
}

func TestFeed_StaleCopySurvivesDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := writeFeed(t, dir, "local;row\n")
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	feed := api.NewFeed(srv.URL, dir)
	reader, _, err := feed.Open(context.Background(), 0)
	require.NoError(t, err)
	defer reader.Close()

	row, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "local", row[0])
}

func TestFeed_MissingFileWithoutURL(t *testing.T) {
	feed := api.NewFeed("", t.TempDir())

	_, _, err := feed.Open(context.Background(), 0)
	assert.ErrorIs(t, err, dpd.ErrFeedUnavailable)
}
