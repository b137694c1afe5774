package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/commonpool/core"
)

const (
	// ExtJSON is the extension of plain records.
	ExtJSON = ".json"
	// ExtZstd is appended to the filename of compressed records.
	ExtZstd = ".zst"

	filenamePrefix = "sim_"
)

// Encode renders a record as indented JSON (two spaces), compressing it
// when compress is set. It returns the payload and the filename to store
// it under.
func Encode(rec *core.SimulationRecord, compress bool) ([]byte, string, error) {
	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode record: %w", err)
	}
	name := core.RecordFilename(rec)
	if !compress {
		return doc, name, nil
	}
	payload, err := compressZstd(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, name + ExtZstd, nil
}

// Decode returns the JSON document stored under filename, decompressing
// .zst payloads.
func Decode(filename string, payload []byte) ([]byte, error) {
	if !strings.HasSuffix(filename, ExtZstd) {
		return payload, nil
	}
	return decompressZstd(payload)
}

// ValidFilename reports whether name is a bare record filename.
func ValidFilename(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if !strings.HasPrefix(name, filenamePrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if !strings.HasSuffix(name, ExtJSON) && !strings.HasSuffix(name, ExtJSON+ExtZstd) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

func compressZstd(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(doc); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressZstd(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	doc, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd read: %w", err)
	}
	return doc, nil
}
