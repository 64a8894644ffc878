package database

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/mwantia/fdb/data"
)

// Record types of the toc log.
const (
	RecordInit  = "init"
	RecordIndex = "index"
	RecordClear = "clear"
)

// Record is one line of a database's toc log.
type Record struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	// Key is the database key for init records, the index key otherwise.
	Key       data.Key `json:"key"`
	IndexType string `json:"indexType,omitempty"`
	Path      string `json:"path,omitempty"`
	Offset    int64  `json:"offset,omitempty"`
	Data      string `json:"data,omitempty"`
}

func encodeRecord(r Record) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

func decodeRecords(raw []byte, source string) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}

		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", data.ErrInvalid, source, line, err)
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}

func (r Record) segment() Segment {
	return Segment{
		Key:    r.Key,
		Type:   r.IndexType,
		Path:   r.Path,
		Offset: r.Offset,
		Data:   r.Data,
		Time:   r.Time,
	}
}

func formatOffset(offset int64) string {
	return strconv.FormatInt(offset, 10)
}
