package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Format identifies the encoding of a persisted image file.
type Format int

const (
	// FormatJPEG is the only persisted format.
	FormatJPEG Format = iota + 1
)

var formatNames = map[Format]string{
	FormatJPEG: "jpeg",
}

var formatExtensions = map[Format]string{
	FormatJPEG: ".jpg",
}

// String returns the canonical format name, e.g. "jpeg".
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Extension returns the file extension for f including the leading dot.
func (f Format) Extension() string {
	return formatExtensions[f]
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// ParseFormat looks up a format by name, ignoring case.
func ParseFormat(s string) (Format, bool) {
	for f, name := range formatNames {
		if strings.EqualFold(name, s) {
			return f, true
		}
	}
	return 0, false
}

// ImageKey addresses a stored image: a random 128-bit id plus the format of
// its primary file. The zero value is not a valid key.
type ImageKey struct {
	ID     uuid.UUID
	Format Format
}

// NewImageKey returns a key with a freshly generated random id.
func NewImageKey(f Format) ImageKey {
	return ImageKey{ID: uuid.New(), Format: f}
}

// Hex renders the id as 32 lowercase hex digits.
func (k ImageKey) Hex() string {
	return IDHex(k.ID)
}

// String renders the canonical "<hex32>.<format>" form.
func (k ImageKey) String() string {
	return k.Hex() + "." + k.Format.String()
}

// IDHex renders an id as 32 lowercase hex digits with no separators.
func IDHex(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// ParseImageKey parses "<id>.<format>". The id may be any form accepted by
// uuid.Parse; the format name is matched case-insensitively.
func ParseImageKey(s string) (ImageKey, error) {
	idPart, formatPart, ok := strings.Cut(s, ".")
	if !ok {
		return ImageKey{}, fmt.Errorf("parse image key %q: missing format suffix", s)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return ImageKey{}, fmt.Errorf("parse image key %q: %w", s, err)
	}
	f, ok := ParseFormat(formatPart)
	if !ok {
		return ImageKey{}, fmt.Errorf("parse image key %q: unknown format %q", s, formatPart)
	}
	return ImageKey{ID: id, Format: f}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k ImageKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ImageKey) UnmarshalText(b []byte) error {
	parsed, err := ParseImageKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
