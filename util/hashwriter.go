// Package util holds the checksum helpers shared by the package assembler,
// the deposit client and the outbox.
package util

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// A HashWriter wraps an io.Writer and also calculates the MD5 and SHA256
// hashes of the bytes written through it.
type HashWriter struct {
	io.Writer // our io.MultiWriter
	md5       hash.Hash
	sha256    hash.Hash
	n         int64
}

// NewHashWriter returns a HashWriter wrapping w. If w is nil, the writer only
// computes the checksums.
func NewHashWriter(w io.Writer) *HashWriter {
	hw := &HashWriter{
		md5:    md5.New(),
		sha256: sha256.New(),
	}
	if w == nil {
		hw.Writer = io.MultiWriter(hw.md5, hw.sha256)
	} else {
		hw.Writer = io.MultiWriter(w, hw.md5, hw.sha256)
	}
	return hw
}

func (hw *HashWriter) Write(p []byte) (int, error) {
	n, err := hw.Writer.Write(p)
	hw.n += int64(n)
	return n, err
}

// Size returns the number of bytes written so far.
func (hw *HashWriter) Size() int64 { return hw.n }

// MD5 returns the MD5 hash of everything written so far.
func (hw *HashWriter) MD5() []byte { return hw.md5.Sum(nil) }

// SHA256 returns the SHA256 hash of everything written so far.
func (hw *HashWriter) SHA256() []byte { return hw.sha256.Sum(nil) }

// MD5Hex is the lower case hex MD5, the form SWORD expects in Content-MD5.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// VerifyStreamHash checksums the given io.Reader and compares the checksum
// against the provided md5 and sha256 checksums. It returns true if everything
// matches, and false otherwise. Pass in an empty slice to not verify a given
// checksum type. The reader is not closed when finished.
func VerifyStreamHash(r io.Reader, md5, sha256 []byte) (bool, error) {
	if len(md5) == 0 && len(sha256) == 0 {
		return true, nil
	}
	hw := NewHashWriter(nil)
	_, err := io.Copy(hw, r)
	var result = true
	if len(md5) > 0 {
		result = result && bytes.Equal(md5, hw.MD5())
	}
	if len(sha256) > 0 {
		result = result && bytes.Equal(sha256, hw.SHA256())
	}
	return result, err
}
