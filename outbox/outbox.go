// Package outbox keeps assembled deposit packages until they are sent.
//
// Each package is saved as two items in a store: "<id>.zip" holds the
// archive and "<id>.json" describes it. The description carries the
// archive's checksums, and Load refuses to return a package whose bytes no
// longer match them.
package outbox

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/mets"
	"github.com/ndlib/sword/store"
	"github.com/ndlib/sword/util"
)

const (
	packageExt = ".zip"
	infoExt    = ".json"
)

var (
	// ErrNotFound means there is no package with the given id.
	ErrNotFound = errors.New("no such package in outbox")

	// ErrChecksum means a stored package does not match its recorded
	// checksums.
	ErrChecksum = errors.New("package checksum mismatch")
)

// Info describes a saved package.
type Info struct {
	ID          string      `json:"id"`
	ContentType string      `json:"content-type"`
	Size        int64       `json:"size"`
	MD5         string      `json:"md5"`
	SHA256      string      `json:"sha256"`
	Entries     []string    `json:"entries"`
	Created     time.Time   `json:"created"`
	Record      mets.Record `json:"metadata"`
}

// An Outbox saves packages into a store.
type Outbox struct {
	s store.Store
}

// New returns an outbox keeping its packages in s.
func New(s store.Store) *Outbox {
	return &Outbox{s: s}
}

// Save stores p along with its metadata and returns the id assigned to it.
func (o *Outbox) Save(p *bundle.Package, md mets.Record) (string, error) {
	id := uuid.New().String()
	hw := util.NewHashWriter(nil)
	hw.Write(p.Data)
	contentType := p.ContentType
	if contentType == "" {
		contentType = bundle.ContentType
	}
	info := Info{
		ID:          id,
		ContentType: contentType,
		Size:        p.Size(),
		MD5:         hex.EncodeToString(hw.MD5()),
		SHA256:      hex.EncodeToString(hw.SHA256()),
		Entries:     p.Entries,
		Created:     time.Now().UTC().Truncate(time.Second),
		Record:      md,
	}
	if len(p.MD5) > 0 && !bytes.Equal(p.MD5, hw.MD5()) {
		return "", errors.Wrapf(ErrChecksum, "saving %s", id)
	}
	sidecar, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", err
	}
	err = store.WriteAll(o.s, id+packageExt, p.Data)
	if err != nil {
		return "", errors.Wrapf(err, "saving %s", id)
	}
	err = store.WriteAll(o.s, id+infoExt, sidecar)
	if err != nil {
		o.s.Delete(id + packageExt)
		return "", errors.Wrapf(err, "saving %s", id)
	}
	return id, nil
}

// Info returns the description of the package id without reading the
// archive.
func (o *Outbox) Info(id string) (Info, error) {
	data, err := store.ReadAll(o.s, id+infoExt)
	if err == store.ErrNotFound {
		return Info{}, ErrNotFound
	} else if err != nil {
		return Info{}, errors.Wrapf(err, "reading %s", id)
	}
	return decodeInfo(data)
}

// Load returns the package id after checking it against its recorded
// checksums.
func (o *Outbox) Load(id string) (*bundle.Package, Info, error) {
	info, err := o.Info(id)
	if err != nil {
		return nil, info, err
	}
	data, err := store.ReadAll(o.s, id+packageExt)
	if err == store.ErrNotFound {
		return nil, info, ErrNotFound
	} else if err != nil {
		return nil, info, errors.Wrapf(err, "reading %s", id)
	}
	md5, _ := hex.DecodeString(info.MD5)
	sha, _ := hex.DecodeString(info.SHA256)
	ok, err := util.VerifyStreamHash(bytes.NewReader(data), md5, sha)
	if err != nil {
		return nil, info, err
	}
	if !ok || int64(len(data)) != info.Size {
		return nil, info, errors.Wrapf(ErrChecksum, "package %s", id)
	}
	p := &bundle.Package{
		Data:        data,
		ContentType: info.ContentType,
		Entries:     info.Entries,
		MD5:         md5,
		SHA256:      sha,
	}
	return p, info, nil
}

// List returns the ids of every package in the outbox, sorted.
func (o *Outbox) List() ([]string, error) {
	keys, err := o.s.List("")
	if err != nil {
		return nil, err
	}
	var result []string
	for _, k := range keys {
		if strings.HasSuffix(k, infoExt) {
			result = append(result, strings.TrimSuffix(k, infoExt))
		}
	}
	sort.Strings(result)
	return result, nil
}

// Delete removes the package id. It is not an error if it does not exist.
func (o *Outbox) Delete(id string) error {
	err := o.s.Delete(id + packageExt)
	if err != nil {
		return err
	}
	return o.s.Delete(id + infoExt)
}

func decodeInfo(data []byte) (Info, error) {
	var info Info
	v, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return info, errors.Wrap(err, "decoding package info")
	}
	info.ID, _ = v.GetString("id")
	info.ContentType, _ = v.GetString("content-type")
	info.Size, _ = v.GetInt64("size")
	info.MD5, _ = v.GetString("md5")
	info.SHA256, _ = v.GetString("sha256")
	info.Entries, _ = v.GetStringArray("entries")
	if created, err := v.GetString("created"); err == nil {
		info.Created, _ = time.Parse(time.RFC3339, created)
	}
	md, err := v.GetObject("metadata")
	if err == nil {
		info.Record.Title, _ = md.GetString("Title")
		info.Record.Summary, _ = md.GetString("Summary")
		info.Record.Language, _ = md.GetString("Language")
		info.Record.Keywords, _ = md.GetStringArray("Keywords")
	}
	return info, nil
}
