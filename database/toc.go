package database

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/store"
)

// Registry names of the toc database.
const (
	TocWriter = "toc.writer"
	TocReader = "toc.reader"
)

// TocFile is the record log in every database directory.
const TocFile = "toc"

const dataSuffix = ".data"

var indexSuffixes = map[string]string{
	"btree":    ".index",
	"sqlite":   ".sqlite",
	"bolt":     ".bolt",
	"postgres": ".pgindex",
}

func indexSuffix(indexType string) string {
	if s, ok := indexSuffixes[indexType]; ok {
		return s
	}
	return "." + indexType
}

type openIndex struct {
	key      data.Key
	idx      index.Index
	recorded int64
}

// TocDB stores a database as a directory with a toc record log, one data
// file per writer session and one index file per writer session holding
// the segments of all indexes the session touched.
type TocDB struct {
	mu     sync.Mutex
	env    *Env
	logger *log.Logger

	key       data.Key
	dir       string
	readOnly  bool
	indexType string

	session   string
	dataFile  string
	indexFile string
	indexes   map[string]*openIndex
	order     []string
}

// BuildWriter opens the database for args.Key, creating it if needed.
func BuildWriter(ctx context.Context, args Args) (DB, error) {
	return openToc(ctx, args, false)
}

// BuildReader opens an existing database.
func BuildReader(ctx context.Context, args Args) (DB, error) {
	return openToc(ctx, args, true)
}

func openToc(ctx context.Context, args Args, readOnly bool) (*TocDB, error) {
	env := args.Env
	if env == nil || env.Store == nil || env.Indexes == nil {
		return nil, fmt.Errorf("%w: toc database needs a store and an index registry", data.ErrInvalid)
	}

	logger := env.Logger
	if logger == nil {
		logger = log.Discard()
	}

	dir := args.Directory
	if dir == "" {
		if env.Roots == nil {
			return nil, fmt.Errorf("%w: toc database needs a directory or a root manager", data.ErrInvalid)
		}
		resolved, err := env.Roots.Directory(ctx, args.Key)
		if err != nil {
			return nil, err
		}
		dir = resolved
	}

	db := &TocDB{
		env:      env,
		logger:   logger.Named("toc"),
		key:      args.Key,
		dir:      dir,
		readOnly: readOnly,
		indexes:  make(map[string]*openIndex),
	}

	records, err := db.readRecords(ctx)
	switch {
	case err == nil:
		if err := db.applyInit(records, args.Key); err != nil {
			return nil, err
		}
	case errors.Is(err, data.ErrNotExist) && !readOnly:
		if err := db.create(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !readOnly {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		db.session = id.String()
		db.dataFile = db.session + dataSuffix
		db.indexFile = db.session + indexSuffix(db.indexType)
	}
	return db, nil
}

func (db *TocDB) applyInit(records []Record, expected data.Key) error {
	if len(records) == 0 || records[0].Type != RecordInit {
		return fmt.Errorf("%w: %s has no init record", data.ErrInvalid, db.tocPath())
	}

	key := records[0].Key
	if !expected.Empty() && !key.Equal(expected) {
		return fmt.Errorf("%w: %s holds %s, not %s", data.ErrMismatch, db.dir, key, expected)
	}

	db.key = key
	db.indexType = records[0].IndexType
	return nil
}

func (db *TocDB) create(ctx context.Context) error {
	db.indexType = db.env.IndexType
	if db.indexType == "" {
		db.indexType = "btree"
	}
	if !db.env.Indexes.Has(db.indexType) {
		return data.RegistryError(db.env.Indexes.Kind, db.indexType, db.env.Indexes.Names())
	}

	if err := db.env.Store.MkdirAll(ctx, db.dir); err != nil {
		return err
	}

	db.logger.Debug("Creating database %s in %s", db.key, db.dir)
	return db.appendRecord(ctx, Record{
		Type:      RecordInit,
		Key:       db.key,
		IndexType: db.indexType,
	})
}

func (db *TocDB) tocPath() string {
	return path.Join(db.dir, TocFile)
}

func (db *TocDB) appendRecord(ctx context.Context, r Record) error {
	r.Time = time.Now().UTC()
	raw, err := encodeRecord(r)
	if err != nil {
		return err
	}
	_, err = db.env.Store.Append(ctx, db.tocPath(), raw)
	return err
}

func (db *TocDB) readRecords(ctx context.Context) ([]Record, error) {
	raw, err := db.env.Store.Read(ctx, db.tocPath(), 0, -1)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw, db.tocPath())
}

func (db *TocDB) Key() data.Key {
	return db.key
}

func (db *TocDB) Directory() string {
	return db.dir
}

func (db *TocDB) Writable() bool {
	return !db.readOnly
}

func (db *TocDB) IndexType() string {
	return db.indexType
}

func (db *TocDB) writer(ctx context.Context, idx data.Key) (*openIndex, error) {
	if db.readOnly {
		return nil, fmt.Errorf("%w: %s", data.ErrReadOnly, db.dir)
	}

	fp := idx.Fingerprint()
	if oi, ok := db.indexes[fp]; ok {
		return oi, nil
	}

	built, err := db.env.Indexes.Build(ctx, db.indexType, index.Options{
		Path:  path.Join(db.dir, db.indexFile),
		Store: db.env.Store,
	})
	if err != nil {
		return nil, err
	}

	oi := &openIndex{key: idx, idx: built, recorded: -1}
	db.indexes[fp] = oi
	db.order = append(db.order, fp)
	return oi, nil
}

func (db *TocDB) Archive(ctx context.Context, idx, datum data.Key, payload []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	oi, err := db.writer(ctx, idx)
	if err != nil {
		return err
	}

	offset, err := db.env.Store.Append(ctx, path.Join(db.dir, db.dataFile), payload)
	if err != nil {
		return err
	}

	return oi.idx.Put(ctx, datum, Field{
		File:   db.dataFile,
		Offset: offset,
		Length: int64(len(payload)),
	})
}

func (db *TocDB) Adopt(ctx context.Context, idx, datum data.Key, field Field) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	oi, err := db.writer(ctx, idx)
	if err != nil {
		return err
	}

	field.External = true
	return oi.idx.Put(ctx, datum, field)
}

func (db *TocDB) Get(ctx context.Context, idx, datum data.Key) (Field, bool, error) {
	db.mu.Lock()
	if oi, ok := db.indexes[idx.Fingerprint()]; ok {
		f, found, err := oi.idx.Get(ctx, datum)
		if err != nil || found {
			db.mu.Unlock()
			return f, found, err
		}
	}
	db.mu.Unlock()

	segments, err := db.Indexes(ctx)
	if err != nil {
		return Field{}, false, err
	}

	for _, seg := range segments {
		if !seg.Key.Equal(idx) {
			continue
		}

		reader, err := db.OpenIndex(ctx, seg)
		if err != nil {
			return Field{}, false, err
		}
		f, found, err := reader.Get(ctx, datum)
		reader.Close(ctx)
		if err != nil || found {
			return f, found, err
		}
	}
	return Field{}, false, nil
}

func (db *TocDB) Read(ctx context.Context, field Field) ([]byte, error) {
	p := field.File
	if !field.External {
		p = path.Join(db.dir, field.File)
	}
	return db.env.Store.Read(ctx, p, field.Offset, field.Length)
}

func (db *TocDB) Indexes(ctx context.Context) ([]Segment, error) {
	records, err := db.readRecords(ctx)
	if err != nil {
		return nil, err
	}

	cleared := make(map[string]bool)
	for _, r := range records {
		if r.Type == RecordClear {
			cleared[r.Path+"@"+formatOffset(r.Offset)] = true
		}
	}

	var segments []Segment
	for _, r := range records {
		if r.Type != RecordIndex || cleared[r.Path+"@"+formatOffset(r.Offset)] {
			continue
		}
		segments = append(segments, r.segment())
	}

	slices.Reverse(segments)
	return segments, nil
}

func (db *TocDB) OpenIndex(ctx context.Context, seg Segment) (index.Index, error) {
	return db.env.Indexes.Build(ctx, seg.Type, index.Options{
		Path:     path.Join(db.dir, seg.Path),
		ReadOnly: true,
		Offset:   seg.Offset,
		Store:    db.env.Store,
	})
}

func (db *TocDB) Records(ctx context.Context, fn func(Record) error) error {
	records, err := db.readRecords(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (db *TocDB) Files(ctx context.Context) ([]store.Entry, error) {
	return db.env.Store.List(ctx, db.dir)
}

func (db *TocDB) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	records, err := db.readRecords(ctx)
	if err != nil {
		return stats, err
	}
	stats.TocRecords = len(records)

	segments, err := db.Indexes(ctx)
	if err != nil {
		return stats, err
	}
	stats.Segments = len(segments)
	for _, seg := range segments {
		reader, err := db.OpenIndex(ctx, seg)
		if err != nil {
			return stats, err
		}
		stats.Fields += reader.Len()
		reader.Close(ctx)
	}

	files, err := db.Files(ctx)
	if err != nil {
		return stats, err
	}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Name, dataSuffix):
			stats.DataFiles++
			stats.DataBytes += f.Size
		case isIndexFile(f.Name):
			stats.IndexFiles++
			stats.IndexBytes += f.Size
		}
	}
	return stats, nil
}

func isIndexFile(name string) bool {
	for _, suffix := range indexSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (db *TocDB) Purge(ctx context.Context, masked []Segment) error {
	if len(masked) == 0 {
		return nil
	}

	for _, seg := range masked {
		err := db.appendRecord(ctx, Record{
			Type:      RecordClear,
			Key:       seg.Key,
			IndexType: seg.Type,
			Path:      seg.Path,
			Offset:    seg.Offset,
			Data:      seg.Data,
		})
		if err != nil {
			return err
		}
	}

	live, err := db.Indexes(ctx)
	if err != nil {
		return err
	}
	referenced := map[string]bool{TocFile: true}
	for _, seg := range live {
		referenced[seg.Path] = true
		referenced[seg.Data] = true
	}

	db.mu.Lock()
	if !db.readOnly {
		referenced[db.dataFile] = true
		referenced[db.indexFile] = true
	}
	db.mu.Unlock()

	files, err := db.Files(ctx)
	if err != nil {
		return err
	}

	errs := data.Errors{}
	for _, f := range files {
		if f.Dir || referenced[f.Name] {
			continue
		}
		if !strings.HasSuffix(f.Name, dataSuffix) && !isIndexFile(f.Name) {
			continue
		}
		db.logger.Debug("Removing unreferenced %s from %s", f.Name, db.dir)
		errs.Add(db.env.Store.Delete(ctx, path.Join(db.dir, f.Name), false))
	}
	return errs.Errors()
}

func (db *TocDB) Wipe(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.logger.Info("Wiping database %s in %s", db.key, db.dir)
	return db.env.Store.Delete(ctx, db.dir, true)
}

// Flush persists every index touched since the last flush and records the
// new segments in the toc.
func (db *TocDB) Flush(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.readOnly {
		return nil
	}

	for _, fp := range db.order {
		oi := db.indexes[fp]
		if err := oi.idx.Flush(ctx); err != nil {
			return err
		}

		loc := oi.idx.Locator()
		if loc.Offset < 0 || loc.Offset == oi.recorded {
			continue
		}

		err := db.appendRecord(ctx, Record{
			Type:      RecordIndex,
			Key:       oi.key,
			IndexType: db.indexType,
			Path:      db.indexFile,
			Offset:    loc.Offset,
			Data:      db.dataFile,
		})
		if err != nil {
			return err
		}
		oi.recorded = loc.Offset
	}
	return nil
}

// Close flushes a writer and releases its indexes.
func (db *TocDB) Close(ctx context.Context) error {
	errs := data.Errors{}
	errs.Add(db.Flush(ctx))

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, fp := range db.order {
		errs.Add(db.indexes[fp].idx.Close(ctx))
	}
	db.indexes = make(map[string]*openIndex)
	db.order = nil
	return errs.Errors()
}
