package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/metrics"
	"github.com/leca/dt-image-store/internal/model"
)

// Compile-time check that FileSystem implements Storage.
var _ Storage = (*FileSystem)(nil)

// maxWriteAttempts bounds the create-directory-then-write retry that covers
// a concurrent Delete removing the shard directories of the same id.
const maxWriteAttempts = 3

// cleanupDirName is the cleanup directory under the base path. Shard
// directories are hex, so the name cannot collide with one.
const cleanupDirName = ".cleanup"

// DeleteFailureMode selects what Delete does when files cannot be removed.
type DeleteFailureMode int

const (
	// FailureThrow returns an *AggregateError to the caller.
	FailureThrow DeleteFailureMode = iota
	// FailureWriteRecord persists a cleanup record and reports success.
	FailureWriteRecord
)

func (m DeleteFailureMode) String() string {
	switch m {
	case FailureThrow:
		return "throw"
	case FailureWriteRecord:
		return "record"
	default:
		return fmt.Sprintf("DeleteFailureMode(%d)", int(m))
	}
}

// ParseDeleteFailureMode accepts "throw" or "record".
func ParseDeleteFailureMode(s string) (DeleteFailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "throw":
		return FailureThrow, nil
	case "record", "write-record":
		return FailureWriteRecord, nil
	default:
		return 0, fmt.Errorf("unknown delete failure mode %q", s)
	}
}

// Options configures a FileSystem.
type Options struct {
	// Quality is the default JPEG quality; zero means imageproc.DefaultQuality.
	Quality int
	// CleanupEnabled creates <base>/.cleanup and enables NeedsCleaning/Clean.
	CleanupEnabled bool
	// FailureMode requires CleanupEnabled when set to FailureWriteRecord.
	FailureMode DeleteFailureMode
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

// AddOptions are the per-call options of Add and AddSize.
type AddOptions struct {
	// Validate, when set, sees only the image header and may reject it.
	Validate Validator
	// Editor resizes the image before it is persisted. Required by AddSize.
	Editor imageproc.Editor
	// Quality overrides the store's JPEG quality when non-zero.
	Quality int
	// MaxBytes caps the encoded source read by Add. Zero means no cap.
	MaxBytes int64
}

// FileSystem implements Storage on a local (or shared) filesystem.
// Files are stored at <basePath>/<hex[0:3]>/<hex[3:6]>/<hex[6:]>[-<size>]<ext>.
// The filesystem is the only source of truth; a FileSystem holds no mutable
// state and may be shared by goroutines and by other processes using the
// same base path.
type FileSystem struct {
	basePath    string
	cleanupDir  string
	quality     int
	failureMode DeleteFailureMode
	logger      *slog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	mkdirAll    func(path string, perm os.FileMode) error
}

// NewFileSystem creates a FileSystem rooted at basePath, creating the base
// and cleanup directories as needed.
func NewFileSystem(basePath string, opts Options) (*FileSystem, error) {
	if opts.FailureMode == FailureWriteRecord && !opts.CleanupEnabled {
		return nil, fmt.Errorf("%w: delete failure mode %q requires cleanup", ErrInvalidArgument, opts.FailureMode)
	}
	if opts.Quality < 0 || opts.Quality > 100 {
		return nil, fmt.Errorf("%w: quality %d outside 1..100", ErrInvalidArgument, opts.Quality)
	}

	fs := &FileSystem{
		basePath:    basePath,
		quality:     opts.Quality,
		failureMode: opts.FailureMode,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         time.Now,
		mkdirAll:    os.MkdirAll,
	}
	if fs.quality == 0 {
		fs.quality = imageproc.DefaultQuality
	}
	if fs.logger == nil {
		fs.logger = slog.Default()
	}
	if fs.metrics == nil {
		fs.metrics = metrics.Noop{}
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", basePath, err)
	}
	if opts.CleanupEnabled {
		fs.cleanupDir = filepath.Join(basePath, cleanupDirName)
		if err := os.MkdirAll(fs.cleanupDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", fs.cleanupDir, err)
		}
	}
	return fs, nil
}

// BasePath returns the root directory of the store.
func (fs *FileSystem) BasePath() string {
	return fs.basePath
}

// GetPath returns the absolute path of a primary (empty size) or size file.
func (fs *FileSystem) GetPath(key model.ImageKey, size string) string {
	return filepath.Join(fs.basePath, RelativePath(key.ID, size, key.Format))
}

// Add validates, decodes, normalizes, edits and encodes the image read from
// r and stores it as the primary of a new key. The encoded source is held in
// memory in full; opts.MaxBytes bounds it, and decoded pixels are bounded by
// opts.Validate seeing the header first.
func (fs *FileSystem) Add(r io.Reader, opts AddOptions) (model.ImageKey, error) {
	data, err := readSource(r, opts.MaxBytes)
	if err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}

	out, err := fs.render(data, opts)
	if err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}

	key := model.NewImageKey(out.format)
	path := fs.GetPath(key, "")
	if err := fs.writePrimary(path, out.data); err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}

	fs.metrics.IncStored("primary")
	fs.logger.Debug("stored image", "key", key.String(), "width", out.size.X, "height", out.size.Y, "bytes", len(out.data))
	return key, nil
}

// AddSize reads the primary of key, runs it through opts.Editor and stores
// the result under the size tag. The primary must exist.
func (fs *FileSystem) AddSize(key model.ImageKey, size string, opts AddOptions) (model.ImageKey, error) {
	size, err := ValidateSizeTag(size)
	if err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}
	if opts.Editor == nil {
		err := fmt.Errorf("%w: an editor is required to derive size %q", ErrInvalidArgument, size)
		fs.reject(err)
		return model.ImageKey{}, err
	}
	if !key.Format.Valid() {
		err := fmt.Errorf("%w: key %s has no valid format", ErrInvalidArgument, key)
		fs.reject(err)
		return model.ImageKey{}, err
	}

	data, err := fs.readPrimary(key)
	if err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}

	out, err := fs.render(data, opts)
	if err != nil {
		fs.reject(err)
		return model.ImageKey{}, err
	}

	sized := model.ImageKey{ID: key.ID, Format: out.format}
	path := fs.GetPath(sized, size)
	// Sizes never create directories: they exist as long as the primary does.
	if err := writeExclusive(path, out.data); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s was deleted while deriving size %q: %w", ErrNotFound, key, size, err)
		}
		fs.reject(err)
		return model.ImageKey{}, err
	}

	fs.metrics.IncStored("size")
	fs.logger.Debug("stored size", "key", key.String(), "size", size, "width", out.size.X, "height", out.size.Y)
	return sized, nil
}

// readSource reads all of r, failing with ErrValidationRejected once more
// than maxBytes arrive.
func readSource(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", ErrValidationRejected, maxBytes)
	}
	return data, nil
}

// readPrimary reads the primary of key. On unix an open file may be unlinked
// by a concurrent Delete without disturbing this read.
func (fs *FileSystem) readPrimary(key model.ImageKey) ([]byte, error) {
	path := fs.GetPath(key, "")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Open returns the stored primary (empty size) or size file.
func (fs *FileSystem) Open(key model.ImageKey, size string) (io.ReadCloser, error) {
	if strings.TrimSpace(size) != "" {
		var err error
		if size, err = ValidateSizeTag(size); err != nil {
			return nil, err
		}
	}
	path := fs.GetPath(key, size)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, key, size)
		}
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	return f, nil
}

// Describe decodes only the header of a stored file.
func (fs *FileSystem) Describe(key model.ImageKey, size string) (FileInfo, error) {
	rc, err := fs.Open(key, size)
	if err != nil {
		return FileInfo{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading %s: %w", key, err)
	}
	h, err := imageproc.DecodeHeader(data)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Width: h.Width, Height: h.Height, Size: int64(len(data))}, nil
}

type rendition struct {
	data   []byte
	format model.Format
	size   image.Point
}

// render runs the pipeline shared by Add and AddSize: header validation,
// full decode, orientation, editor, encode.
func (fs *FileSystem) render(data []byte, opts AddOptions) (*rendition, error) {
	if opts.Editor != nil {
		if err := opts.Editor.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	format, err := outputFormat(opts)
	if err != nil {
		return nil, err
	}

	header, err := imageproc.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if opts.Validate != nil {
		if err := opts.Validate(header); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidationRejected, err)
		}
	}

	img, err := imageproc.Decode(data)
	if err != nil {
		return nil, err
	}
	transparent := imageproc.MightHaveTransparency(img.ColorModel())
	img = imageproc.Normalize(img, imageproc.Orientation(imageproc.ReadOrientation(data)))
	if opts.Editor != nil {
		img = imageproc.Apply(img, opts.Editor, transparent)
	}

	quality := fs.quality
	if opts.Quality != 0 {
		quality = opts.Quality
	}
	var buf bytes.Buffer
	if err := imageproc.EncodeJPEG(&buf, img, quality); err != nil {
		return nil, err
	}
	return &rendition{data: buf.Bytes(), format: format, size: img.Bounds().Size()}, nil
}

// outputFormat picks the persisted format. Every editor currently persists
// as JPEG.
func outputFormat(opts AddOptions) (model.Format, error) {
	if opts.Quality < 0 || opts.Quality > 100 {
		return 0, fmt.Errorf("%w: quality %d outside 1..100", ErrUnsupportedOptions, opts.Quality)
	}
	switch opts.Editor.(type) {
	case nil, imageproc.Downsize, imageproc.Cover, imageproc.Pad, imageproc.MaxSize:
		return model.FormatJPEG, nil
	default:
		return 0, fmt.Errorf("%w: editor %T", ErrUnsupportedOptions, opts.Editor)
	}
}

// writePrimary creates the shard directories and writes path. A concurrent
// Delete of the same id may remove the directories between the two steps,
// so the pair is retried a bounded number of times.
func (fs *FileSystem) writePrimary(path string, data []byte) error {
	dir := filepath.Dir(path)
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := fs.mkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		err = writeExclusive(path, data)
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		fs.logger.Debug("shard directory removed before write", "path", path, "attempt", attempt)
	}
	return fmt.Errorf("writing %s: gave up after %d attempts: %w", path, maxWriteAttempts, err)
}

// writeExclusive writes data to a temp file next to path and hard-links it
// into place. The link fails if path exists, so a file is never overwritten
// and readers never observe a partial file. The temp name starts with the
// file name, so a temp file left by a crash still matches DeletePattern.
func writeExclusive(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPattern(path))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// The temp file is always removed: on success the link keeps the data.
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConflict, path)
		}
		return fmt.Errorf("linking temp file to %s: %w", path, err)
	}
	return nil
}

// tempPattern is the os.CreateTemp pattern for a file being written to path.
func tempPattern(path string) string {
	return filepath.Base(path) + ".tmp-*"
}

// reject counts a failed Add or AddSize by its error class.
func (fs *FileSystem) reject(err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrInvalidFormat):
		reason = "invalid_format"
	case errors.Is(err, ErrValidationRejected):
		reason = "validation"
	case errors.Is(err, ErrInvalidArgument):
		reason = "invalid_argument"
	case errors.Is(err, ErrUnsupportedOptions):
		reason = "unsupported_options"
	case errors.Is(err, ErrConflict):
		reason = "conflict"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	}
	fs.metrics.IncRejected(reason)
}
