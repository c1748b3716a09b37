package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/model"
)

// Two shard levels of three hex digits each keep every directory under 4096
// entries for the first ~16M artifacts.
const (
	shardWidth  = 3
	shardLevels = 2
	stemOffset  = shardWidth * shardLevels
)

// ShardDir returns the relative directory holding every file of id,
// e.g. "012/345".
func ShardDir(id uuid.UUID) string {
	g := model.IDHex(id)
	return filepath.Join(g[:shardWidth], g[shardWidth:stemOffset])
}

// stem returns the file name prefix shared by every file of id.
func stem(id uuid.UUID) string {
	return model.IDHex(id)[stemOffset:]
}

// FileName returns "<stem>[-<size>]<ext>". An empty size names the primary.
func FileName(id uuid.UUID, size string, f model.Format) string {
	name := stem(id)
	if size = strings.TrimSpace(size); size != "" {
		name += "-" + size
	}
	return name + f.Extension()
}

// RelativePath joins ShardDir and FileName.
func RelativePath(id uuid.UUID, size string, f model.Format) string {
	return filepath.Join(ShardDir(id), FileName(id, size, f))
}

// DeletePattern is the glob, relative to ShardDir, matching the primary and
// every size of id in any format.
func DeletePattern(id uuid.UUID) string {
	return stem(id) + "*"
}

// ValidateSizeTag trims s and rejects tags that are empty or contain a path
// or extension separator.
func ValidateSizeTag(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: size tag is empty", ErrInvalidArgument)
	}
	if strings.ContainsAny(s, `./\`) {
		return "", fmt.Errorf("%w: size tag %q must not contain '.', '/' or '\\'", ErrInvalidArgument, s)
	}
	return s, nil
}
