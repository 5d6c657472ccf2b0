package store

import (
	"encoding/gob"
	"io"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes values to and from a stream.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Name() string
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonCodec struct{}

func (jsonCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func (jsonCodec) Name() string { return "json" }

type yamlCodec struct{}

func (yamlCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	return yaml.NewDecoder(r).Decode(v)
}

func (yamlCodec) Name() string { return "yaml" }

type msgpackCodec struct{}

func (msgpackCodec) Encode(w io.Writer, v any) error {
	return msgpack.NewEncoder(w).Encode(v)
}

func (msgpackCodec) Decode(r io.Reader, v any) error {
	return msgpack.NewDecoder(r).Decode(v)
}

func (msgpackCodec) Name() string { return "msgpack" }

// gob cannot decode into a bare interface, so LoadAny rejects it.
type gobCodec struct{}

func (gobCodec) Encode(w io.Writer, v any) error {
	return gob.NewEncoder(w).Encode(v)
}

func (gobCodec) Decode(r io.Reader, v any) error {
	return gob.NewDecoder(r).Decode(v)
}

func (gobCodec) Name() string { return "gob" }

var (
	codecsMu sync.RWMutex
	codecs   = map[string]Codec{
		".json":    jsonCodec{},
		".yaml":    yamlCodec{},
		".yml":     yamlCodec{},
		".msgpack": msgpackCodec{},
		".mp":      msgpackCodec{},
		".gob":     gobCodec{},
		".p":       gobCodec{},
	}
)

// RegisterCodec maps a file extension such as ".toml" to c, replacing any
// existing mapping. The extension is matched case-insensitively.
func RegisterCodec(ext string, c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[strings.ToLower(ext)] = c
}

// CodecFor returns the codec selected by path's extension and whether the
// file is gzip-compressed (a trailing ".gz").
func CodecFor(path string) (Codec, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, gzExt)
	if compressed {
		name = strings.TrimSuffix(name, gzExt)
	}

	codecsMu.RLock()
	c, ok := codecs[filepath.Ext(name)]
	codecsMu.RUnlock()
	if !ok {
		return nil, false, unsupported(path)
	}
	return c, compressed, nil
}
