package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// ModelSource provides the raw bytes of the two model artifacts and the
// character dictionary. Implementations own network or disk access; the
// pipeline never fetches anything itself.
type ModelSource interface {
	DetectionModel(ctx context.Context) ([]byte, error)
	RecognitionModel(ctx context.Context) ([]byte, error)
	Dictionary(ctx context.Context) ([]byte, error)
}

// ModelLoadError reports an unusable model artifact: unfetchable bytes or a
// buffer that failed validation. Fatal for the current page; the handle does
// not retry automatically.
type ModelLoadError struct {
	Artifact string
	Err      error
}

func (e *ModelLoadError) Error() string { return fmt.Sprintf("load %s model: %v", e.Artifact, e.Err) }
func (e *ModelLoadError) Unwrap() error { return e.Err }

// DictionaryLoadError reports a dictionary that could not be fetched or
// parsed. It is recovered locally by substituting the built-in alphabet and
// only ever surfaces through logs.
type DictionaryLoadError struct {
	Err error
}

func (e *DictionaryLoadError) Error() string { return fmt.Sprintf("load dictionary: %v", e.Err) }
func (e *DictionaryLoadError) Unwrap() error { return e.Err }

// ValidateModelBytes rejects buffers that are clearly not a binary model. A
// leading '<' after whitespace means some server returned an HTML error page
// in place of the artifact, which is by far the most common corruption seen
// in the field.
func ValidateModelBytes(artifact string, data []byte) error {
	if len(data) == 0 {
		return &ModelLoadError{Artifact: artifact, Err: errors.New("empty buffer")}
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return &ModelLoadError{Artifact: artifact, Err: errors.New("buffer starts with '<', looks like an HTML error page")}
	}
	return nil
}
