package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/model"
)

const (
	recordExt      = ".delete"
	lockFileName   = ".lock"
	maxRecordBytes = 64 << 10
)

// Delete removes the primary and every size of id. Files already gone are
// not an error, and neither is a missing shard directory. Remaining failures
// are returned as an *AggregateError in FailureThrow mode, or written to a
// cleanup record in FailureWriteRecord mode, in which case Delete succeeds.
func (fs *FileSystem) Delete(id uuid.UUID) error {
	err := fs.deleteArtifact(id)
	if err == nil {
		fs.metrics.IncDeletes("ok")
		return nil
	}

	var agg *AggregateError
	if fs.failureMode != FailureWriteRecord || !errors.As(err, &agg) {
		fs.metrics.IncDeletes("failed")
		return err
	}
	if werr := fs.writeRecord(id, agg); werr != nil {
		fs.metrics.IncDeletes("failed")
		return errors.Join(err, werr)
	}
	fs.metrics.IncDeletes("deferred")
	fs.logger.Warn("delete deferred to cleanup", "id", model.IDHex(id), "failures", len(agg.Errs))
	return nil
}

// deleteArtifact removes every file matching DeletePattern(id) and, when all
// of them are gone, the shard directories. Failures are collected rather
// than stopping at the first.
func (fs *FileSystem) deleteArtifact(id uuid.UUID) error {
	dir := filepath.Join(fs.basePath, ShardDir(id))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &AggregateError{ID: id, Errs: []error{fmt.Errorf("listing %s: %w", dir, err)}}
	}

	pattern := DeletePattern(id)
	agg := &AggregateError{ID: id}
	for _, e := range entries {
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			agg.Errs = append(agg.Errs, err)
		}
	}
	if len(agg.Errs) > 0 {
		return agg
	}

	fs.removeShardDirs(dir)
	return nil
}

// removeShardDirs removes the innermost shard directory and then its parent.
// Either may still hold files of other ids or be gone already; both cases
// are expected, so failures are only logged.
func (fs *FileSystem) removeShardDirs(dir string) {
	for _, d := range []string{dir, filepath.Dir(dir)} {
		if err := os.Remove(d); err != nil {
			fs.logger.Debug("shard directory kept", "dir", d, "error", err)
			return
		}
	}
}

func (fs *FileSystem) recordPath(id uuid.UUID) string {
	return filepath.Join(fs.cleanupDir, model.IDHex(id)+recordExt)
}

// writeRecord replaces the cleanup record of id with a fresh header and the
// failure detail, followed by the previous record text up to maxRecordBytes.
func (fs *FileSystem) writeRecord(id uuid.UUID, agg *AggregateError) error {
	path := fs.recordPath(id)

	var b strings.Builder
	fmt.Fprintf(&b, "delete failed at %s\n", fs.now().UTC().Format(time.RFC3339))
	b.WriteString(agg.Detail())
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		b.WriteByte('\n')
		b.Write(prev)
	}
	content := truncateText(b.String(), maxRecordBytes)

	// Write then rename so a concurrent sweep never reads a torn record.
	tmp, err := os.CreateTemp(fs.cleanupDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cleanup record for %s: %w", model.IDHex(id), err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cleanup record for %s: %w", model.IDHex(id), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cleanup record for %s: %w", model.IDHex(id), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cleanup record to %s: %w", path, err)
	}
	tmpPath = ""
	return nil
}

type pendingRecord struct {
	id   uuid.UUID
	path string
}

// listRecords returns every cleanup record. Files whose name is not a valid
// record name are skipped.
func (fs *FileSystem) listRecords() ([]pendingRecord, error) {
	entries, err := os.ReadDir(fs.cleanupDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", fs.cleanupDir, err)
	}
	var records []pendingRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, recordExt))
		if err != nil {
			fs.logger.Warn("ignoring malformed cleanup record", "name", name)
			continue
		}
		records = append(records, pendingRecord{id: id, path: filepath.Join(fs.cleanupDir, name)})
	}
	return records, nil
}

// NeedsCleaning reports whether at least one cleanup record exists. It takes
// no lock, so a concurrent sweep may change the answer immediately.
func (fs *FileSystem) NeedsCleaning() (bool, error) {
	if fs.cleanupDir == "" {
		return false, ErrUnsupported
	}
	entries, err := os.ReadDir(fs.cleanupDir)
	if err != nil {
		return false, fmt.Errorf("listing %s: %w", fs.cleanupDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), recordExt) {
			return true, nil
		}
	}
	return false, nil
}

// Clean holds the cleanup lock and retries the delete of every recorded id.
// A record is removed once its artifact is fully gone and rewritten with the
// new failure otherwise. ctx is checked before each record; on cancellation
// the sweep stops and the remaining records stay pending.
func (fs *FileSystem) Clean(ctx context.Context) error {
	if fs.cleanupDir == "" {
		return ErrUnsupported
	}

	lock, err := acquireLock(filepath.Join(fs.cleanupDir, lockFileName))
	if err != nil {
		if errors.Is(err, ErrLockContention) {
			fs.metrics.IncSweeps("contention")
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			fs.logger.Warn("releasing cleanup lock", "error", err)
		}
	}()

	records, err := fs.listRecords()
	if err != nil {
		fs.metrics.IncSweeps("failed")
		return err
	}

	var cleaned, pending int
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			fs.metrics.IncSweeps("canceled")
			fs.metrics.SetPendingCleanup(pending + len(records) - i)
			return fmt.Errorf("cleanup sweep canceled after %d of %d records: %w", i, len(records), err)
		}
		if fs.sweepRecord(rec) {
			cleaned++
		} else {
			pending++
		}
	}

	fs.metrics.IncSweeps("ok")
	fs.metrics.SetPendingCleanup(pending)
	fs.logger.Info("cleanup sweep finished", "cleaned", cleaned, "pending", pending)
	return nil
}

// sweepRecord retries one record and reports whether the artifact is gone.
// Failing to remove or rewrite the record itself is logged and left for the
// next sweep.
func (fs *FileSystem) sweepRecord(rec pendingRecord) bool {
	err := fs.deleteArtifact(rec.id)
	if err == nil {
		if err := os.Remove(rec.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			fs.logger.Warn("removing cleanup record", "path", rec.path, "error", err)
		}
		return true
	}

	var agg *AggregateError
	if !errors.As(err, &agg) {
		agg = &AggregateError{ID: rec.id, Errs: []error{err}}
	}
	if werr := fs.writeRecord(rec.id, agg); werr != nil {
		fs.logger.Warn("rewriting cleanup record", "path", rec.path, "error", werr)
	}
	return false
}

// truncateText cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
