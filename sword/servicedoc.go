package sword

import (
	"bytes"

	"github.com/pkg/errors"
)

// A Collection is a deposit endpoint advertised by a service document.
type Collection struct {
	URL   string
	Title string
}

// ParseServiceDocument extracts the collections accepting zip packages from
// the text of a SWORD v1 service document.
//
// The document is scanned as text rather than parsed as XML, since servers
// do not always return well-formed documents. Markup is matched without
// regard to case. A collection is a "<collection href=...>" element; it must
// contain an <atom:title> followed by an <accept>application/zip</accept>
// element before its closing tag. Collection elements without an href
// attribute are skipped.
//
// If a collection lacks either the title or the zip accept element, scanning
// stops. The collections found before it are returned together with an error
// wrapping ErrMalformedServiceDocument, and nothing after it is examined.
// Callers should use the returned collections even when the error is not nil.
func ParseServiceDocument(doc []byte) ([]Collection, error) {
	s := &scanner{
		doc:   doc,
		lower: asciiLower(doc),
	}
	for s.step() {
	}
	return s.found, s.err
}

type scanState int

const (
	seekCollection scanState = iota
	seekTitle
	seekZipAccept
)

var (
	collectionOpen  = []byte("<collection")
	collectionClose = []byte("</collection>")
	titleOpen       = []byte("<atom:title>")
	titleClose      = []byte("</atom:title>")
	zipAccept       = []byte("<accept>application/zip</accept>")
)

// scanner walks a service document one state transition at a time. All the
// offsets index both doc and lower.
type scanner struct {
	doc   []byte
	lower []byte
	state scanState
	pos   int // where the next search starts

	// the collection being examined
	url    string
	title  string
	start  int // offset of the collection's start tag
	end    int // offset of its closing tag
	resume int // offset just past the closing tag

	found []Collection
	err   error
}

// step performs one transition and reports whether scanning should go on.
func (s *scanner) step() bool {
	switch s.state {
	case seekCollection:
		return s.seekCollection()
	case seekTitle:
		return s.seekTitle()
	case seekZipAccept:
		return s.seekZipAccept()
	}
	return false
}

func (s *scanner) seekCollection() bool {
	i := s.index(s.pos, len(s.lower), collectionOpen)
	if i < 0 {
		return false
	}
	nameEnd := i + len(collectionOpen)
	if nameEnd >= len(s.lower) {
		return false
	}
	if c := s.lower[nameEnd]; !isSpace(c) && c != '>' {
		// some other element, e.g. <collections>
		s.pos = nameEnd
		return true
	}
	s.url = ""
	s.title = ""
	s.start = i
	tagEnd, ok := s.tagEnd(nameEnd)
	if !ok {
		return s.bail("unterminated attribute value")
	}
	if tagEnd < 0 {
		// unterminated start tag at the end of the document
		return false
	}
	s.pos = tagEnd + 1
	url, ok := attribute(s.doc[nameEnd:tagEnd], s.lower[nameEnd:tagEnd], "href")
	if !ok {
		return true
	}
	s.url = url
	s.end = s.index(s.pos, len(s.lower), collectionClose)
	if s.end < 0 {
		return s.bail("no closing tag")
	}
	s.resume = s.end + len(collectionClose)
	s.state = seekTitle
	return true
}

// tagEnd returns the offset of the '>' ending the start tag whose attributes
// begin at from, skipping any '>' inside quoted values. It returns -1 if the
// document ends first, and false if a quoted value is never closed.
func (s *scanner) tagEnd(from int) (int, bool) {
	var quote byte
	for i := from; i < len(s.lower); i++ {
		c := s.lower[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i, true
		}
	}
	return -1, quote == 0
}

func (s *scanner) seekTitle() bool {
	i := s.index(s.pos, s.end, titleOpen)
	if i < 0 {
		return s.bail("no title")
	}
	i += len(titleOpen)
	j := s.index(i, s.end, titleClose)
	if j < 0 {
		return s.bail("unterminated title")
	}
	s.title = string(s.doc[i:j])
	s.pos = j + len(titleClose)
	s.state = seekZipAccept
	return true
}

func (s *scanner) seekZipAccept() bool {
	if s.index(s.pos, s.end, zipAccept) < 0 {
		return s.bail("does not accept application/zip")
	}
	s.found = append(s.found, Collection{URL: s.url, Title: s.title})
	s.pos = s.resume
	s.state = seekCollection
	return true
}

func (s *scanner) bail(reason string) bool {
	s.err = errors.Wrapf(ErrMalformedServiceDocument,
		"collection %s at offset %d: %s", s.url, s.start, reason)
	return false
}

// index returns the offset of the first occurrence of sep in lower[from:to],
// or -1.
func (s *scanner) index(from, to int, sep []byte) int {
	if from > to {
		return -1
	}
	i := bytes.Index(s.lower[from:to], sep)
	if i < 0 {
		return -1
	}
	return from + i
}

// attribute finds the named attribute in the text of a start tag. Matching
// uses lower, the value is taken from orig. Both single and double quotes are
// understood.
func attribute(orig, lower []byte, name string) (string, bool) {
	key := []byte(name)
	for off := 0; ; {
		i := bytes.Index(lower[off:], key)
		if i < 0 {
			return "", false
		}
		i += off
		off = i + len(key)
		if i > 0 && !isSpace(lower[i-1]) {
			continue
		}
		j := skipSpace(lower, off)
		if j >= len(lower) || lower[j] != '=' {
			continue
		}
		j = skipSpace(lower, j+1)
		if j >= len(lower) || (lower[j] != '"' && lower[j] != '\'') {
			continue
		}
		quote := lower[j]
		k := bytes.IndexByte(lower[j+1:], quote)
		if k < 0 {
			return "", false
		}
		return string(orig[j+1 : j+1+k]), true
	}
}

// asciiLower folds only A-Z, so offsets into the result are offsets into b.
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func skipSpace(b []byte, i int) int {
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
