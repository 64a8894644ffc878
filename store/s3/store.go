// Package s3 stores catalog files as objects in an S3 compatible bucket.
// Directories are implicit prefixes; appends rewrite the whole object.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/store"
)

type S3Store struct {
	mu sync.RWMutex

	client     *minio.Client
	bucketName string
	prefix     string
}

type S3StoreConfig struct {
	Endpoint  string `config:"endpoint"`
	Bucket    string `config:"bucket"`
	AccessKey string `config:"accessKey"`
	SecretKey string `config:"secretKey"`
	UseSSL    bool   `config:"useSSL"`
	Prefix    string `config:"prefix"`
}

func NewS3Store(cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 store needs an endpoint and a bucket", data.ErrConfiguration)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client:     client,
		bucketName: cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Build is the registry builder. Credentials fall back to the
// FDB_S3_ACCESS_KEY and FDB_S3_SECRET_KEY environment variables.
func Build(_ context.Context, cfg *config.Config) (store.Store, error) {
	var sc S3StoreConfig
	if err := cfg.Decode(&sc); err != nil {
		return nil, data.ConfigurationError(cfg.Origin(), "s3 store: %v", err)
	}
	sc.AccessKey = cfg.Resource("accessKey", "FDB_S3_ACCESS_KEY", sc.AccessKey)
	sc.SecretKey = cfg.Resource("secretKey", "FDB_S3_SECRET_KEY", sc.SecretKey)

	return NewS3Store(sc)
}

func (*S3Store) Name() string {
	return "s3"
}

// Open verifies the bucket is reachable.
func (ss *S3Store) Open(ctx context.Context) error {
	exists, err := ss.client.BucketExists(ctx, ss.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: bucket '%s'", data.ErrNotExist, ss.bucketName)
	}
	return nil
}

func (ss *S3Store) objectKey(p string) string {
	return strings.TrimPrefix(path.Join(ss.prefix, path.Clean("/"+p)), "/")
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (ss *S3Store) hasChildren(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range ss.client.ListObjects(ctx, ss.bucketName, minio.ListObjectsOptions{
		Prefix:  key + "/",
		MaxKeys: 1,
	}) {
		if object.Err != nil {
			return false, object.Err
		}
		return true, nil
	}
	return false, nil
}

func (ss *S3Store) Exists(ctx context.Context, p string) (bool, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	key := ss.objectKey(p)
	if _, err := ss.client.StatObject(ctx, ss.bucketName, key, minio.StatObjectOptions{}); err == nil {
		return true, nil
	} else if !isNoSuchKey(err) {
		return false, err
	}

	return ss.hasChildren(ctx, key)
}

func (ss *S3Store) Read(ctx context.Context, p string, offset, length int64) ([]byte, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.read(ctx, ss.objectKey(p), offset, length)
}

func (ss *S3Store) read(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	switch {
	case length == 0:
		return []byte{}, nil
	case length > 0:
		if err := opts.SetRange(offset, offset+length-1); err != nil {
			return nil, err
		}
	case offset > 0:
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, err
		}
	}

	object, err := ss.client.GetObject(ctx, ss.bucketName, key, opts)
	if err != nil {
		return nil, err
	}
	defer object.Close()

	dat, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", data.ErrNotExist, key)
		}
		return nil, err
	}
	if length > 0 && int64(len(dat)) != length {
		return nil, fmt.Errorf("failed to read %d bytes at %d from '%s': %w", length, offset, key, io.ErrUnexpectedEOF)
	}
	return dat, nil
}

// Append downloads the object, extends it and uploads it again.
func (ss *S3Store) Append(ctx context.Context, p string, dat []byte) (int64, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := ss.objectKey(p)

	var existing []byte
	info, err := ss.client.StatObject(ctx, ss.bucketName, key, minio.StatObjectOptions{})
	switch {
	case err == nil && info.Size > 0:
		if existing, err = ss.read(ctx, key, 0, -1); err != nil {
			return 0, err
		}
	case err != nil && !isNoSuchKey(err):
		return 0, err
	}

	offset := int64(len(existing))
	buf := append(existing, dat...)
	if _, err := ss.client.PutObject(ctx, ss.bucketName, key, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{}); err != nil {
		return 0, err
	}
	return offset, nil
}

func (ss *S3Store) Write(ctx context.Context, p string, dat []byte) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	_, err := ss.client.PutObject(ctx, ss.bucketName, ss.objectKey(p), bytes.NewReader(dat), int64(len(dat)), minio.PutObjectOptions{})
	return err
}

func (ss *S3Store) Delete(ctx context.Context, p string, recursive bool) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := ss.objectKey(p)

	if !recursive {
		if _, err := ss.client.StatObject(ctx, ss.bucketName, key, minio.StatObjectOptions{}); err != nil {
			if isNoSuchKey(err) {
				return fmt.Errorf("%w: %s", data.ErrNotExist, key)
			}
			return err
		}
		return ss.client.RemoveObject(ctx, ss.bucketName, key, minio.RemoveObjectOptions{})
	}

	keys := []string{}
	if _, err := ss.client.StatObject(ctx, ss.bucketName, key, minio.StatObjectOptions{}); err == nil {
		keys = append(keys, key)
	}
	for object := range ss.client.ListObjects(ctx, ss.bucketName, minio.ListObjectsOptions{
		Prefix:    key + "/",
		Recursive: true,
	}) {
		if object.Err != nil {
			return object.Err
		}
		keys = append(keys, object.Key)
	}

	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", data.ErrNotExist, key)
	}

	errs := data.Errors{}
	for _, k := range keys {
		errs.Add(ss.client.RemoveObject(ctx, ss.bucketName, k, minio.RemoveObjectOptions{}))
	}
	return errs.Errors()
}

func (ss *S3Store) List(ctx context.Context, p string) ([]store.Entry, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	prefix := ss.objectKey(p)
	if prefix != "" {
		prefix += "/"
	}

	var entries []store.Entry
	for object := range ss.client.ListObjects(ctx, ss.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}

		name := strings.TrimPrefix(object.Key, prefix)
		if name == "" {
			continue
		}
		entries = append(entries, store.Entry{
			Name: strings.TrimSuffix(name, "/"),
			Size: object.Size,
			Dir:  strings.HasSuffix(name, "/"),
		})
	}

	if entries == nil {
		return nil, fmt.Errorf("%w: %s", data.ErrNotExist, prefix)
	}
	return entries, nil
}

// MkdirAll is a no-op; prefixes exist once an object is stored below them.
func (ss *S3Store) MkdirAll(ctx context.Context, p string) error {
	return nil
}

func (ss *S3Store) Close(ctx context.Context) error {
	return nil
}
