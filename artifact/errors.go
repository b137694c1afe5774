package artifact

import (
	"errors"

	"github.com/hupe1980/commonpool/core"
)

var (
	// ErrNotFound is returned when no record is stored under a filename.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when a record would overwrite an existing one.
	ErrExists = errors.New("record already exists")
	// ErrInvalidFilename is returned for names that are not record filenames
	// or that would escape the output directory.
	ErrInvalidFilename = errors.New("invalid record filename")
	// ErrSchema is returned when a document fails record schema validation.
	ErrSchema = errors.New("record does not match schema")
)
