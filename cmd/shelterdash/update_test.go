package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/shelter-data-etl/internal/config"
	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

func setRange(t *testing.T, from, to string) {
	t.Helper()
	updateFrom, updateTo = from, to
	t.Cleanup(func() { updateFrom, updateTo = "", "" })
}

func TestUpdateRange_Defaults(t *testing.T) {
	cfg = &config.Config{FetchWindowDays: 30}
	setRange(t, "", "")
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, domain.KST)

	from, to, err := updateRange(now)
	require.NoError(t, err)
	assert.Equal(t, now, to)
	assert.Equal(t, time.Date(2024, 5, 16, 12, 0, 0, 0, domain.KST), from)
}

func TestUpdateRange_Explicit(t *testing.T) {
	cfg = &config.Config{FetchWindowDays: 30}
	setRange(t, "20240101", "2024-01-31")

	from, to, err := updateRange(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, domain.KST), from)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, domain.KST), to)
}

func TestUpdateRange_ToOnly(t *testing.T) {
	cfg = &config.Config{FetchWindowDays: 7}
	setRange(t, "", "20240110")

	from, _, err := updateRange(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, domain.KST), from)
}

func TestUpdateRange_Invalid(t *testing.T) {
	cfg = &config.Config{FetchWindowDays: 30}

	setRange(t, "2024011", "")
	_, _, err := updateRange(time.Now())
	assert.ErrorContains(t, err, "invalid --from")

	setRange(t, "", "2024-02-30")
	_, _, err = updateRange(time.Now())
	assert.ErrorContains(t, err, "invalid --to")

	setRange(t, "20240201", "20240101")
	_, _, err = updateRange(time.Now())
	assert.ErrorContains(t, err, "is after")
}
