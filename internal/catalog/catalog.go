// Package catalog reads and writes galaxy catalogs as MessagePack or JSON files.
package catalog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/vmihailenco/msgpack/v5"
)

// Supported formats
const (
	FormatMsgPack = "msgpack"
	FormatJSON    = "json"
)

// CurrentVersion is the catalog layout written by Save
const CurrentVersion = 1

var (
	// ErrUnknownFormat is returned for formats other than msgpack and json
	ErrUnknownFormat = errors.New("unknown catalog format")

	// ErrUnsupportedVersion is returned for catalogs written by a newer layout
	ErrUnsupportedVersion = errors.New("unsupported catalog version")
)

// File is the on-disk catalog
type File struct {
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	Source    string           `json:"source,omitempty"`
	Galaxies  []*galaxy.Galaxy `json:"galaxies"`
}

// Decode reads a catalog in the given format
func Decode(r io.Reader, format string) (*File, error) {
	f := &File{}
	switch format {
	case FormatMsgPack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack catalog: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(f); err != nil {
			return nil, fmt.Errorf("failed to decode json catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}

	if f.Version > CurrentVersion {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedVersion, f.Version)
	}
	for i, g := range f.Galaxies {
		if g == nil {
			return nil, fmt.Errorf("catalog entry %d is empty", i)
		}
	}
	return f, nil
}

// Encode writes a catalog in the given format
func Encode(w io.Writer, format string, f *File) error {
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	switch format {
	case FormatMsgPack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(f)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

// Load reads the galaxies of the catalog at path
func Load(path, format string) ([]*galaxy.Galaxy, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Decode(bufio.NewReader(fh), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Galaxies, nil
}

// Save writes galaxies to path, replacing any existing file
func Save(path, format, source string, galaxies []*galaxy.Galaxy) error {
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(fh)
	err = Encode(bw, format, &File{
		Version:   CurrentVersion,
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Galaxies:  galaxies,
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
