package api

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// FieldReader is what Retrieve returns for a local catalog.
type FieldReader interface {
	io.Reader
	io.Seeker
	io.Closer
}

type part struct {
	db    database.DB
	field database.Field
}

// fieldReader reads the payloads of several fields as one stream. Payloads
// are loaded one at a time when the offset reaches them.
type fieldReader struct {
	mu  sync.Mutex
	ctx context.Context

	parts  []part
	owned  []database.DB
	size   int64
	offset int64
	closed bool

	// current holds the payload of parts[index].
	index   int
	start   int64
	current []byte
}

func newFieldReader(ctx context.Context, parts []part, owned []database.DB) *fieldReader {
	fr := &fieldReader{ctx: ctx, parts: parts, owned: owned, index: -1}
	for _, p := range parts {
		fr.size += p.field.Length
	}
	return fr
}

// Read reads from the current offset and advances it.
func (fr *fieldReader) Read(p []byte) (int, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return 0, data.ErrClosed
	}
	if err := fr.ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	for n < len(p) && fr.offset < fr.size {
		if err := fr.load(); err != nil {
			return n, err
		}
		copied := copy(p[n:], fr.current[fr.offset-fr.start:])
		n += copied
		fr.offset += int64(copied)
	}

	if n == 0 && fr.offset >= fr.size {
		return 0, io.EOF
	}
	return n, nil
}

// load makes current hold the part containing offset.
func (fr *fieldReader) load() error {
	if fr.index >= 0 && fr.offset >= fr.start && fr.offset < fr.start+int64(len(fr.current)) {
		return nil
	}

	var start int64
	for i, p := range fr.parts {
		if fr.offset < start+p.field.Length {
			payload, err := p.db.Read(fr.ctx, p.field)
			if err != nil {
				return err
			}
			if int64(len(payload)) != p.field.Length {
				return io.ErrUnexpectedEOF
			}
			fr.index, fr.start, fr.current = i, start, payload
			return nil
		}
		start += p.field.Length
	}
	return io.EOF
}

func (fr *fieldReader) Seek(offset int64, whence int) (int64, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return 0, data.ErrClosed
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = fr.offset + offset
	case io.SeekEnd:
		next = fr.size + offset
	default:
		return 0, data.ErrInvalid
	}

	if next < 0 {
		return 0, data.ErrInvalid
	}

	fr.offset = next
	return next, nil
}

// Close releases the databases the reader was opened with.
func (fr *fieldReader) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return data.ErrClosed
	}
	fr.closed = true
	fr.current = nil

	errs := data.Errors{}
	for _, db := range fr.owned {
		errs.Add(db.Close(fr.ctx))
	}
	return errs.Errors()
}

// concatReader chains the readers of several catalogs.
type concatReader struct {
	io.Reader
	closers []io.Closer
}

func newConcatReader(readers []io.ReadCloser) *concatReader {
	cr := &concatReader{}
	plain := make([]io.Reader, len(readers))
	for i, r := range readers {
		plain[i] = r
		cr.closers = append(cr.closers, r)
	}
	cr.Reader = io.MultiReader(plain...)
	return cr
}

func (cr *concatReader) Close() error {
	var errs []error
	for _, c := range cr.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
