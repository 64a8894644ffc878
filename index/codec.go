package index

import (
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mwantia/fdb/data"
)

type record struct {
	Key   data.Key `json:"key"`
	Field Field  `json:"field"`
}

// HeaderSize is the length prefix of an encoded segment.
const HeaderSize = 8

// EncodeSegment serialises entries as a length prefixed JSON array.
func EncodeSegment(entries []Entry) ([]byte, error) {
	records := make([]record, len(entries))
	for i, e := range entries {
		records[i] = record{Key: e.Key, Field: e.Field}
	}

	body, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.BigEndian.PutUint64(buf, uint64(len(body)))
	return append(buf, body...), nil
}

// SegmentLength decodes the header of an encoded segment.
func SegmentLength(header []byte) (int64, error) {
	if len(header) < HeaderSize {
		return 0, fmt.Errorf("%w: short segment header", data.ErrInvalid)
	}
	return int64(binary.BigEndian.Uint64(header)), nil
}

// DecodeSegment reads the body written by EncodeSegment into m.
func DecodeSegment(body []byte, m *Memory) error {
	var records []record
	if err := json.Unmarshal(body, &records); err != nil {
		return fmt.Errorf("%w: corrupt index segment: %v", data.ErrInvalid, err)
	}

	for _, r := range records {
		m.Put(r.Key, r.Field)
	}
	return nil
}

// MarshalKey is the text form SQL indexes keep keys in.
func MarshalKey(k data.Key) (string, error) {
	raw, err := json.Marshal(k)
	return string(raw), err
}

func UnmarshalKey(s string) (data.Key, error) {
	var k data.Key
	err := json.Unmarshal([]byte(s), &k)
	return k, err
}
