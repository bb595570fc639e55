// Package nuts reads NUTS boundary datasets published by GISCO.
package nuts

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Feature is one region row of a loaded dataset: named attributes plus geometry.
type Feature struct {
	Properties map[string]any
	Geometry   geom.T
}

// FileFormatError reports a dataset that is missing, unsupported, or malformed.
type FileFormatError struct {
	Path string
	Err  error
}

func (e *FileFormatError) Error() string {
	return "nuts: read " + e.Path + ": " + e.Err.Error()
}

func (e *FileFormatError) Unwrap() error { return e.Err }

func formatError(path string, err error) error {
	return &FileFormatError{Path: path, Err: err}
}

// Has reports whether the attribute is present and non-null.
func (f Feature) Has(name string) bool {
	v, ok := f.Properties[name]
	return ok && v != nil
}

// Text returns the attribute as text. Integral numbers are rendered without
// a fractional part; missing or null attributes yield "".
func (f Feature) Text(name string) string {
	switch v := f.Properties[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the attribute as an integer, or nil when missing, null, or blank.
func (f Feature) Int(name string) (*int, error) {
	var n int
	switch v := f.Properties[name].(type) {
	case nil:
		return nil, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, eris.Errorf("nuts: attribute %s: %v is not an integer", name, v)
		}
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil, eris.Wrapf(err, "nuts: attribute %s", name)
		}
		n = parsed
	default:
		return nil, eris.Errorf("nuts: attribute %s: unsupported type %T", name, v)
	}
	return &n, nil
}
