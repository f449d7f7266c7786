package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
)

// ErrNotArray is returned in an [Unparsed] result when an array was required.
var ErrNotArray = errors.New("expected a JSON array")

// BlobResult is the outcome of parsing a builder-supplied JSON blob.
// It is either [Parsed] or [Unparsed].
type BlobResult interface {
	blobResult()
}

// Parsed carries a well-formed JSON value.
type Parsed struct {
	Value datatypes.JSON
}

// Unparsed carries the raw input that could not be parsed and the reason.
type Unparsed struct {
	Raw string
	Err error
}

func (Parsed) blobResult()   {}
func (Unparsed) blobResult() {}

// Error implements error so an Unparsed result can be returned directly.
func (u Unparsed) Error() string {
	return fmt.Sprintf("malformed JSON blob: %v", u.Err)
}

func (u Unparsed) Unwrap() error {
	return u.Err
}

// ParseBlob parses raw request bytes into a BlobResult.
//
// The builder sometimes sends blobs double-encoded, as a JSON string whose
// content is itself JSON. Such strings are unwrapped once. Empty input and
// JSON null parse to a nil Value.
func ParseBlob(raw []byte) BlobResult {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Parsed{}
	}
	if !json.Valid(trimmed) {
		return Unparsed{Raw: string(raw), Err: errors.New("invalid JSON")}
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return Unparsed{Raw: string(raw), Err: err}
		}
		innerBytes := bytes.TrimSpace([]byte(inner))
		if len(innerBytes) == 0 {
			return Parsed{}
		}
		if !json.Valid(innerBytes) {
			return Unparsed{Raw: inner, Err: errors.New("string does not contain valid JSON")}
		}
		trimmed = innerBytes
	}
	return Parsed{Value: datatypes.JSON(append([]byte(nil), trimmed...))}
}

// ParseArrayBlob is ParseBlob restricted to JSON arrays. A missing value is
// reported as Unparsed because arrays such as workflow nodes are required.
func ParseArrayBlob(raw []byte) BlobResult {
	res := ParseBlob(raw)
	p, ok := res.(Parsed)
	if !ok {
		return res
	}
	if len(p.Value) == 0 || p.Value[0] != '[' {
		return Unparsed{Raw: string(raw), Err: ErrNotArray}
	}
	return p
}

// BlobValue returns the parsed JSON or the Unparsed result as an error.
func BlobValue(res BlobResult) (datatypes.JSON, error) {
	switch r := res.(type) {
	case Parsed:
		return r.Value, nil
	case Unparsed:
		return nil, r
	default:
		return nil, fmt.Errorf("unknown blob result %T", res)
	}
}
