// Package store saves and loads values in a format chosen by file extension:
// .json, .yaml/.yml, .msgpack/.mp and .gob/.p, each optionally followed by
// .gz for gzip compression.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

const gzExt = ".gz"

// ErrUnsupportedFormat is returned for paths whose extension maps to no codec.
var ErrUnsupportedFormat = errors.New("store: unsupported format")

func unsupported(path string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Save writes v to path, creating or truncating the file.
func Save(v any, path string) (err error) {
	c, compressed, err := CodecFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("store: close %s: %w", path, cerr)
		}
	}()

	var w io.Writer = f
	var zw *gzip.Writer
	if compressed {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := c.Encode(w, v); err != nil {
		return fmt.Errorf("store: encode %s as %s: %w", path, c.Name(), err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("store: compress %s: %w", path, err)
		}
	}
	return nil
}

// Load reads path into a value of type T.
func Load[T any](path string) (T, error) {
	var v T
	err := load(path, &v)
	return v, err
}

// LoadAny reads path without a target type. Numbers and maps come back in
// the codec's generic representation. Gob files are not supported.
func LoadAny(path string) (any, error) {
	c, _, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	if _, ok := c.(gobCodec); ok {
		return nil, fmt.Errorf("%w: %s needs a concrete type, use Load", ErrUnsupportedFormat, path)
	}

	var v any
	if err := load(path, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func load(path string, ptr any) error {
	c, compressed, err := CodecFor(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("store: decompress %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	if err := c.Decode(r, ptr); err != nil {
		return fmt.Errorf("store: decode %s as %s: %w", path, c.Name(), err)
	}
	return nil
}
