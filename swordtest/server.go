// Package swordtest provides a small SWORD v1 server for testing deposit
// clients. It serves a service document listing its collections and accepts
// zip packages into them, remembering every deposit it receives.
//
// Failures can be injected with Reset, in the same way for every route.
package swordtest

import (
	"crypto/subtle"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/util"
)

// A Collection is a deposit endpoint on the server.
type Collection struct {
	ID      string // the last path element of the deposit URL
	Title   string
	Accepts []string // accepted content types
}

// A Deposit is a package the server accepted.
type Deposit struct {
	Collection string // the collection ID
	Header     http.Header
	Body       []byte
	Entries    []string // file names inside the package
	When       time.Time
}

// A Play injects a response. When the server has seen When requests, the
// next one is answered with Status and Body instead of being handled.
type Play struct {
	When   int
	Status int
	Body   string
}

// Server is an http.Handler implementing the server side of a SWORD v1
// deposit. The zero value is not usable; use New.
// This is safe for concurrent use.
type Server struct {
	Username string
	Password string

	router      *httprouter.Router
	collections []Collection

	m        sync.Mutex
	count    int
	playbook []Play
	deposits []Deposit
}

// Route prefixes used by the server.
const (
	ServiceDocumentPath = "/sword/servicedocument"
	DepositPath         = "/sword/deposit/"
	ItemPath            = "/sword/item/"
)

// New returns a server requiring the given credentials and offering the
// given collections.
func New(username, password string, collections ...Collection) *Server {
	s := &Server{
		Username:    username,
		Password:    password,
		collections: collections,
	}
	s.router = s.addRoutes()
	return s
}

func (s *Server) addRoutes() *httprouter.Router {
	var routes = []struct {
		method  string
		route   string
		handler httprouter.Handle
	}{
		{"GET", ServiceDocumentPath, s.ServiceDocumentHandler},
		{"POST", DepositPath + ":collection", s.DepositHandler},
		{"GET", ItemPath + ":id", s.ItemHandler},
	}
	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method, route.route, s.authorize(route.handler))
	}
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.m.Lock()
	count := s.count
	s.count++
	log.Printf("(%d) %s %s\n", count, req.Method, req.URL)
	for len(s.playbook) > 0 && s.playbook[0].When <= count {
		p := s.playbook[0]
		s.playbook = s.playbook[1:]
		if p.When < count {
			// more than one play had same count. Ignore the rest.
			continue
		}
		s.m.Unlock()
		w.WriteHeader(p.Status)
		w.Write([]byte(p.Body))
		return
	}
	s.m.Unlock()
	s.router.ServeHTTP(w, req)
}

// Reset clears the request count and installs a new playbook.
func (s *Server) Reset(playbook []Play) {
	s.m.Lock()
	s.count = 0
	s.playbook = append([]Play(nil), playbook...)
	sort.Sort(byWhen(s.playbook))
	s.m.Unlock()
}

// Deposits returns the packages accepted so far.
func (s *Server) Deposits() []Deposit {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]Deposit(nil), s.deposits...)
}

type byWhen []Play

func (p byWhen) Len() int           { return len(p) }
func (p byWhen) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p byWhen) Less(i, j int) bool { return p[i].When < p[j].When }

// authorize wraps a handler with an HTTP Basic authentication check.
func (s *Server) authorize(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="SWORD"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r, ps)
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// ServiceDocumentHandler handles GET /sword/servicedocument.
func (s *Server) ServiceDocumentHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	w.Header().Set("Content-Type", "application/atomsvc+xml")
	w.Write(ServiceDocument(baseURL(r)+DepositPath, s.collections))
}

func (s *Server) lookup(id string) (Collection, bool) {
	for _, c := range s.collections {
		if c.ID == id {
			return c, true
		}
	}
	return Collection{}, false
}

// DepositHandler handles POST /sword/deposit/:collection.
func (s *Server) DepositHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	col, ok := s.lookup(ps.ByName("collection"))
	if !ok {
		http.Error(w, "No such collection", http.StatusNotFound)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !accepts(col, contentType) {
		writeError(w, http.StatusUnsupportedMediaType, "ErrorContent",
			"collection does not accept "+contentType)
		return
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ErrorBadRequest", err.Error())
		return
	}
	if md5 := r.Header.Get("Content-MD5"); md5 != "" && md5 != util.MD5Hex(body) {
		writeError(w, http.StatusPreconditionFailed, "ErrorChecksumMismatch",
			"Content-MD5 does not match the package")
		return
	}
	pkg, err := bundle.NewReader(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ErrorContent", "package is not a zip file")
		return
	}
	if _, err := pkg.Manifest(); err != nil {
		writeError(w, http.StatusBadRequest, "ErrorContent", "package has no "+bundle.ManifestName)
		return
	}

	d := Deposit{
		Collection: col.ID,
		Header:     r.Header.Clone(),
		Body:       body,
		Entries:    pkg.Names(),
		When:       time.Now(),
	}
	// a no-op deposit is checked but not stored, so it has no location
	if r.Header.Get("X-No-Op") == "true" {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, entryTemplate, "urn:sword:noop", escape(col.Title), d.When.UTC().Format(time.RFC3339), "")
		return
	}
	s.m.Lock()
	s.deposits = append(s.deposits, d)
	id := len(s.deposits)
	s.m.Unlock()

	location := baseURL(r) + ItemPath + strconv.Itoa(id)
	w.Header().Set("Location", location)
	w.Header().Set("Content-Type", "application/atom+xml")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, entryTemplate, escape(location), escape(col.Title), d.When.UTC().Format(time.RFC3339), escape(location))
}

// ItemHandler handles GET /sword/item/:id and returns the stored package.
func (s *Server) ItemHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, err := strconv.Atoi(ps.ByName("id"))
	s.m.Lock()
	var d *Deposit
	if err == nil && n >= 1 && n <= len(s.deposits) {
		d = &s.deposits[n-1]
	}
	s.m.Unlock()
	if d == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", bundle.ContentType)
	w.Write(d.Body)
}

func accepts(c Collection, contentType string) bool {
	for _, a := range c.Accepts {
		if a == contentType {
			return true
		}
	}
	return false
}

// writeError sends a SWORD error document.
func writeError(w http.ResponseWriter, status int, code string, summary string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, errorTemplate, code, escape(summary))
}

const entryTemplate = `<?xml version="1.0" encoding="utf-8"?>
<entry xmlns="http://www.w3.org/2005/Atom" xmlns:sword="http://purl.org/net/sword/">
  <id>%s</id>
  <title>%s</title>
  <updated>%s</updated>
  <content type="application/zip" src="%s"/>
  <sword:packaging>http://purl.org/net/sword-types/METSDSpaceSIP</sword:packaging>
</entry>
`

const errorTemplate = `<?xml version="1.0" encoding="utf-8"?>
<sword:error xmlns="http://www.w3.org/2005/Atom" xmlns:sword="http://purl.org/net/sword/" href="http://purl.org/net/sword/error/%s">
  <summary>%s</summary>
</sword:error>
`
