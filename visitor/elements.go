package visitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// ListElement is one datum found by a list query.
type ListElement struct {
	Database  data.Key
	Index     data.Key
	Datum     data.Key
	Directory string
	Field     database.Field
	// Time is when the segment holding the datum was written.
	Time time.Time
}

// Key is the full key the datum was archived with.
func (e ListElement) Key() data.Key {
	return data.Merge(e.Database, e.Index, e.Datum)
}

func (e ListElement) String() string {
	return fmt.Sprintf("%s%s%s", e.Database, e.Index, e.Datum)
}

// Location renders where the payload lives.
func (e ListElement) Location() string {
	file := e.Field.File
	if !e.Field.External {
		file = e.Directory + "/" + file
	}
	return fmt.Sprintf("%s:%d+%d", file, e.Field.Offset, e.Field.Length)
}

type DumpElement struct {
	Database  data.Key
	Directory string
	Record    database.Record
}

func (e DumpElement) String() string {
	r := e.Record
	switch r.Type {
	case database.RecordInit:
		return fmt.Sprintf("%s %s %s %s", r.Time.Format(time.RFC3339), r.Type, r.Key, r.IndexType)
	default:
		return fmt.Sprintf("%s %s %s %s@%d %s", r.Time.Format(time.RFC3339), r.Type, r.Key, r.Path, r.Offset, r.Data)
	}
}

type WhereElement struct {
	Database  data.Key
	Directory string
}

func (e WhereElement) String() string {
	return e.Directory
}

// WipeElement names a database and the files a wipe removes.
type WipeElement struct {
	Database  data.Key
	Directory string
	Files     []string
	// Wiped is false for a dry run.
	Wiped bool
}

func (e WipeElement) String() string {
	return fmt.Sprintf("%s %s [%s]", e.Database, e.Directory, strings.Join(e.Files, ", "))
}

// PurgeElement is an index segment entirely masked by newer segments.
type PurgeElement struct {
	Database  data.Key
	Directory string
	Segment   database.Segment
	// Masked is the number of entries the segment holds, all superseded.
	Masked int
	// Purged is false for a dry run.
	Purged bool
}

func (e PurgeElement) String() string {
	return fmt.Sprintf("%s%s %s/%s (%d masked)", e.Database, e.Segment.Key, e.Directory, e.Segment.ID(), e.Masked)
}

type StatsElement struct {
	Database  data.Key
	Directory string
	Stats     database.Stats
}

func (e StatsElement) String() string {
	s := e.Stats
	return fmt.Sprintf("%s segments=%d fields=%d data=%d/%dB index=%d/%dB",
		e.Database, s.Segments, s.Fields, s.DataFiles, s.DataBytes, s.IndexFiles, s.IndexBytes)
}
