package metric

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Snapshot(t *testing.T) {
	s, err := NewStats(nil)
	require.NoError(t, err)

	s.Archived(5, time.Millisecond)
	s.Archived(7, time.Millisecond)
	s.Retrieved()
	s.Flushed(10 * time.Millisecond)
	s.QueryElement("list")
	s.QueryElement("list")
	s.Failed("archive")

	values, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, values["fdb_archive_total"])
	assert.Equal(t, 12.0, values["fdb_archive_bytes_total"])
	assert.Equal(t, 2.0, values["fdb_archive_duration_seconds_count"])
	assert.Equal(t, 1.0, values["fdb_retrieve_total"])
	assert.Equal(t, 1.0, values["fdb_flush_total"])
	assert.Equal(t, 2.0, values[`fdb_query_elements_total{tool="list"}`])
	assert.Equal(t, 1.0, values[`fdb_errors_total{operation="archive"}`])
}

func TestStats_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewStats(reg)
	require.NoError(t, err)
	second, err := NewStats(reg)
	require.NoError(t, err)

	first.Retrieved()
	second.Retrieved()

	values, err := first.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, values["fdb_retrieve_total"])
}

func TestStats_Report(t *testing.T) {
	s, err := NewStats(nil)
	require.NoError(t, err)
	s.Archived(3, 0)

	var buf bytes.Buffer
	require.NoError(t, s.Report(&buf))
	assert.Contains(t, buf.String(), "fdb_archive_bytes_total 3\n")
	assert.Contains(t, buf.String(), "fdb_archive_total 1\n")
}

func TestStats_Nil(t *testing.T) {
	var s *Stats
	s.Archived(1, 0)
	s.Flushed(0)

	values, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, values)
}
