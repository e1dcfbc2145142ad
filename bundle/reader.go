package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"io/ioutil"
)

// Reader gives access to the entries of an assembled package.
type Reader struct {
	z *zip.Reader
}

// NewReader opens the package archive held in data.
func NewReader(data []byte) (*Reader, error) {
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &Reader{z: z}, nil
}

// Names lists the entries in archive order.
func (r *Reader) Names() []string {
	var result []string
	for _, f := range r.z.File {
		result = append(result, f.Name)
	}
	return result
}

// Open returns a reader for the entry having the given name.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	for _, f := range r.z.File {
		if f.Name != name {
			continue
		}
		return f.Open()
	}
	return nil, ErrNotFound
}

// ReadFile returns the whole content of the named entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ioutil.ReadAll(rc)
}

// Manifest returns the raw bytes of the package's manifest entry.
func (r *Reader) Manifest() ([]byte, error) {
	return r.ReadFile(ManifestName)
}
