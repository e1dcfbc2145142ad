// Package bundle assembles the zip archives deposited into a SWORD
// collection. An archive holds exactly one METS manifest at the fixed path
// "mets.xml" plus each caller supplied file under the name the caller gave it.
//
// Archives are built entirely in memory, since SWORD v1 sends the whole
// package as the body of a single POST. The interface mirrors archive/zip
// where possible.
package bundle

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ndlib/sword/mets"
)

// ContentType is the MIME type of every package.
const ContentType = "application/zip"

// ManifestName is the path of the manifest inside a package.
const ManifestName = mets.Filename

var (
	// ErrReservedName means a FileSet tried to use the manifest's name.
	ErrReservedName = errors.New("file name is reserved for the manifest")

	// ErrEmptyName means a FileSet entry has no name.
	ErrEmptyName = errors.New("file name is empty")

	// ErrNotFound means a package has no entry with the given name.
	ErrNotFound = errors.New("entry not found")
)

// A Package is an assembled deposit archive.
type Package struct {
	Data        []byte
	ContentType string
	Entries     []string // entry names, manifest first
	MD5         []byte   // checksums of Data
	SHA256      []byte
}

// Size returns the length of the archive in bytes.
func (p *Package) Size() int64 { return int64(len(p.Data)) }

// A FileSet maps archive file names to their content. Unlike a Go map it
// remembers the order names were added in, and packages list the files in
// that order. Each reader is read exactly once, by Assemble. The FileSet
// never closes the readers; that is left to whoever opened them.
type FileSet struct {
	names []string
	files map[string]io.Reader
}

// NewFileSet returns an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{files: make(map[string]io.Reader)}
}

// Add puts r into the set under name. Adding a name a second time replaces
// the reader but keeps the name's original position.
func (fs *FileSet) Add(name string, r io.Reader) {
	if fs.files == nil {
		fs.files = make(map[string]io.Reader)
	}
	if _, ok := fs.files[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.files[name] = r
}

// Names lists the file names in insertion order.
func (fs *FileSet) Names() []string {
	if fs == nil {
		return nil
	}
	return append([]string(nil), fs.names...)
}

// Len returns the number of files in the set.
func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.names)
}

// Reader returns the reader stored for name, or nil.
func (fs *FileSet) Reader(name string) io.Reader {
	if fs == nil {
		return nil
	}
	return fs.files[name]
}

// validate checks the set can be placed next to a manifest.
func (fs *FileSet) validate() error {
	for _, name := range fs.Names() {
		switch name {
		case "":
			return ErrEmptyName
		case ManifestName:
			return errors.Wrap(ErrReservedName, name)
		}
	}
	return nil
}
