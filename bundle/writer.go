package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/ndlib/sword/mets"
	"github.com/ndlib/sword/util"
)

// Assemble builds a package from the manifest text and the files in fs. The
// manifest is stored first, encoded with the named character encoding (the
// empty string means UTF-8), followed by every file in fs in insertion order.
// Each file's reader is copied until EOF; any read error aborts the build.
func Assemble(manifest string, fs *FileSet, encoding string) (*Package, error) {
	if err := fs.validate(); err != nil {
		return nil, err
	}
	text, err := mets.Encode(manifest, encoding)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	out, err := w.Create(ManifestName)
	if err == nil {
		_, err = out.Write(text)
	}
	if err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}
	for _, name := range fs.Names() {
		out, err := w.Create(name)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", name)
		}
		_, err = io.Copy(out, fs.Reader(name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Package{
		Data:        buf.Bytes(),
		ContentType: ContentType,
		Entries:     w.names,
		MD5:         w.hw.MD5(),
		SHA256:      w.hw.SHA256(),
	}, nil
}

// ModTime is the modification time stamped on every entry, so the same input
// always gives the same archive bytes. It is the manifest's creation date.
var ModTime = time.Date(2008, time.September, 4, 0, 0, 0, 0, time.UTC)

// Writer writes a package archive to an underlying io.Writer, checksumming
// the archive bytes as they go past.
type Writer struct {
	z       *zip.Writer      // the underlying zip writer
	hw      *util.HashWriter // checksums of the archive stream
	names   []string
	modtime time.Time
}

// NewWriter creates a package writer which serializes to w.
func NewWriter(w io.Writer) *Writer {
	hw := util.NewHashWriter(w)
	return &Writer{
		z:       zip.NewWriter(hw),
		hw:      hw,
		modtime: ModTime,
	}
}

// Create adds a new deflated entry having the given name. The returned
// io.Writer is valid until the next call to Create or Close.
func (w *Writer) Create(name string) (io.Writer, error) {
	header := zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modtime,
	}
	out, err := w.z.CreateHeader(&header)
	if err == nil {
		w.names = append(w.names, name)
	}
	return out, err
}

// Close finishes the archive. It does not close the io.Writer given to
// NewWriter.
func (w *Writer) Close() error {
	return w.z.Close()
}
