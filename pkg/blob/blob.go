// Package blob stores uploaded file bytes on the local filesystem. Messages
// only ever hold the opaque handle returned by Upload.
package blob

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/keys"
	"parley/pkg/telemetry"
	"parley/pkg/timeutil"
)

// DefaultMaxSize applies when Options.MaxSize is zero.
const DefaultMaxSize = 25 * 1024 * 1024

type Options struct {
	Dir     string
	MaxSize int64
	// PublicBaseURL prefixes download urls, e.g. "https://chat.example.com".
	PublicBaseURL string
}

type Store struct {
	db   *storedb.Store
	opts Options
}

func New(db *storedb.Store, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("blob dir is empty")
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", opts.Dir, err)
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Store{db: db, opts: opts}, nil
}

func (s *Store) MaxSize() int64 {
	return s.opts.MaxSize
}

func (s *Store) path(handle string) string {
	return filepath.Join(s.opts.Dir, handle)
}

// Upload writes data under a fresh handle and records its metadata.
func (s *Store) Upload(name, contentType string, data []byte) (models.Blob, error) {
	const op = "blob.upload"
	tr := telemetry.Track(op)
	defer tr.Finish()

	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return models.Blob{}, errs.Invalid(op, "file name required")
	}
	if len(data) == 0 {
		return models.Blob{}, errs.Invalid(op, "empty upload")
	}
	if int64(len(data)) > s.opts.MaxSize {
		return models.Blob{}, errs.Invalid(op, fmt.Sprintf("file exceeds %s", humanize.IBytes(uint64(s.opts.MaxSize))))
	}

	b := models.Blob{
		Handle:      keys.GenID(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   timeutil.NowMillis(),
	}

	// write to a temp file first so a crash never leaves a partial blob under its handle
	tmp, err := os.CreateTemp(s.opts.Dir, ".upload-*")
	if err != nil {
		return models.Blob{}, errors.Wrap(err, "create temp blob")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return models.Blob{}, errors.Wrap(err, "write blob")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return models.Blob{}, errors.Wrap(err, "close blob")
	}
	if err := os.Rename(tmp.Name(), s.path(b.Handle)); err != nil {
		os.Remove(tmp.Name())
		return models.Blob{}, errors.Wrap(err, "publish blob")
	}
	tr.Mark("bytes")

	meta, err := json.Marshal(b)
	if err != nil {
		return models.Blob{}, errors.Wrap(err, "marshal blob")
	}
	if err := s.db.SaveKey(keys.GenBlobKey(b.Handle), meta); err != nil {
		os.Remove(s.path(b.Handle))
		return models.Blob{}, errors.Wrapf(err, "save blob %s", b.Handle)
	}
	logger.Info("blob_uploaded", "handle", b.Handle, "size", humanize.IBytes(uint64(b.Size)))
	return b, nil
}

// Get returns blob metadata.
func (s *Store) Get(handle string) (models.Blob, error) {
	const op = "blob.get"
	if keys.ValidateID(handle) != nil {
		return models.Blob{}, errs.Missing(op, "file not found")
	}
	v, err := s.db.GetKey(keys.GenBlobKey(handle))
	if err != nil {
		if storedb.IsNotFound(err) {
			return models.Blob{}, errs.Missing(op, "file not found")
		}
		return models.Blob{}, errors.Wrapf(err, "get blob %s", handle)
	}
	var b models.Blob
	if err := json.Unmarshal(v, &b); err != nil {
		return models.Blob{}, errors.Wrapf(err, "decode blob %s", handle)
	}
	return b, nil
}

// Open returns the metadata and a reader over the bytes. Callers close the reader.
func (s *Store) Open(handle string) (models.Blob, io.ReadCloser, error) {
	b, err := s.Get(handle)
	if err != nil {
		return models.Blob{}, nil, err
	}
	f, err := os.Open(s.path(handle))
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("blob_bytes_missing", "handle", handle)
			return models.Blob{}, nil, errs.Missing("blob.open", "file not found")
		}
		return models.Blob{}, nil, errors.Wrapf(err, "open blob %s", handle)
	}
	return b, f, nil
}

// URL returns the download url of handle, or false when it does not resolve.
func (s *Store) URL(handle string) (string, bool, error) {
	if _, err := s.Get(handle); err != nil {
		if errs.Is(err, errs.NotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.opts.PublicBaseURL + "/v1/files/" + handle, true, nil
}
