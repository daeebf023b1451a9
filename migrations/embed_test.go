package migrations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kskby/dpd/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := migrations.FS.ReadFile("001_initial_schema.sql")
	require.NoError(t, err)

	sql := string(content)
	assert.Contains(t, sql, "-- +goose Up")
	assert.Contains(t, sql, "-- +goose Down")
	assert.Contains(t, sql, "CREATE TABLE dpd_location")
	assert.Contains(t, sql, "CREATE TABLE dpd_terminal")
	assert.Contains(t, sql, "CREATE TABLE dpd_setting")
}
