package mets

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when no encoding name is given.
const DefaultEncoding = "utf-8"

// ErrUnknownEncoding means the requested character encoding is not known.
var ErrUnknownEncoding = errors.New("unknown character encoding")

// Lookup returns the character encoding having the given name. Both WHATWG
// labels ("utf8", "latin1") and IANA names ("ISO-8859-1") are understood.
// An empty name selects UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	if e, err := htmlindex.Get(name); err == nil {
		return e, nil
	}
	e, err := ianaindex.IANA.Encoding(name)
	if err != nil || e == nil {
		// ianaindex returns a nil encoding for names it knows but
		// cannot convert
		return nil, errors.Wrap(ErrUnknownEncoding, name)
	}
	return e, nil
}

// Encode converts the manifest text into bytes using the named encoding.
// Characters which cannot be represented are an error.
func Encode(text string, name string) ([]byte, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if e == unicode.UTF8 {
		return []byte(text), nil
	}
	b, err := e.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.Wrapf(err, "encoding manifest as %s", name)
	}
	return b, nil
}
