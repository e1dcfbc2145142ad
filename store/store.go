// Package store provides a small, goroutine safe key-value interface used to
// keep deposit packages around until they are sent. Values are streams rather
// than byte slices, and items are immutable once stored, though they may be
// deleted and then replaced.
//
// The FileSystem store is the usual choice. The S3 store lets a group of
// machines share an outbox, and Memory is for testing.
package store

import (
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store defines the basic stream based key-value store.
//
// Since the FileSystem store uses the key as file names, keys may not
// contain a forward slash, white space, or control characters.
type Store interface {
	List(prefix string) ([]string, error)
	Open(key string) (ReadAtCloser, int64, error)
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
}

var (
	// ErrKeyExists indicates an attempt to create a key which already exists
	ErrKeyExists = errors.New("Key already exists")

	// ErrNotFound means there is no item with the given key
	ErrNotFound = errors.New("Key not found")

	// ErrKeyContainsSlash means the key provided contains a forward slash '/'
	ErrKeyContainsSlash = errors.New("Key contains forward slash")

	// ErrKeyContainsNonUnicode means the key provided contains a Non Unicode Rune
	ErrKeyContainsNonUnicode = errors.New("Key contains Non-Unicode character")

	// ErrKeyContainsWhiteSpace means the key provided contains White Space
	ErrKeyContainsWhiteSpace = errors.New("Key contains White Space")

	// ErrKeyContainsControlChar means the key provided contains Control Characters
	ErrKeyContainsControlChar = errors.New("Key contains Control Characters")

	// ErrEmptyKey means the key provided is the empty string
	ErrEmptyKey = errors.New("Key is empty")
)

// ValidateKey checks that key can be used with every store implementation.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !utf8.ValidString(key) {
		return ErrKeyContainsNonUnicode
	}
	if strings.Contains(key, "/") {
		return ErrKeyContainsSlash
	}
	for _, r := range key {
		if unicode.IsSpace(r) {
			return ErrKeyContainsWhiteSpace
		}
		if unicode.IsControl(r) {
			return ErrKeyContainsControlChar
		}
	}
	return nil
}

// NewReader converts a ReaderAt into a io.Reader. It is here as a utility to
// help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}

// ReadAll returns the entire contents of the item key.
func ReadAll(s Store, key string) ([]byte, error) {
	r, size, err := s.Open(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data := make([]byte, size)
	n, err := r.ReadAt(data, 0)
	if int64(n) == size && err == io.EOF {
		err = nil
	}
	return data[:n], err
}

// WriteAll stores data under key.
func WriteAll(s Store, key string, data []byte) error {
	w, err := s.Create(key)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	err2 := w.Close()
	if err == nil {
		err = err2
	}
	return err
}
