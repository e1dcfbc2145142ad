// Package sword is a client for depositing content into a repository over
// the SWORD version 1 protocol, following the conventions of Connexions
// (cnx.org).
//
// A Connection fetches the service document to discover the collections
// accepting zip packages, builds a package from a metadata record and a set
// of files, and deposits packages into a collection. Building and depositing
// are separate calls, so a package may be inspected or stored (see the outbox
// package) before it is sent.
//
// No call is retried. A failed request is a failed operation.
package sword

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/mets"
	"github.com/ndlib/sword/util"
)

// Credentials are the user name and password sent with every request.
type Credentials struct {
	Username string
	Password string
}

// authorization returns the HTTP Basic Authorization header value.
func (c Credentials) authorization() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	return "Basic " + token
}

// A Doer sends an HTTP request. *http.Client is a Doer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// A Connection talks to one SWORD v1 server. Its configuration is fixed when
// it is created, so it can be shared between goroutines.
type Connection struct {
	// The URL of the server's service document
	ServiceURL string

	creds    Credentials
	client   Doer
	timeout  time.Duration // for the default client
	encoding string        // character encoding for manifests
	logger   *log.Logger
}

// An Option changes how New sets up a Connection.
type Option func(*Connection)

// WithClient makes the connection send its requests through d.
func WithClient(d Doer) Option {
	return func(c *Connection) { c.client = d }
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// if WithClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Connection) { c.timeout = d }
}

// WithEncoding sets the character encoding used for package manifests.
func WithEncoding(name string) Option {
	return func(c *Connection) { c.encoding = name }
}

// WithLogger sends the connection's log output to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// New returns a Connection to the server whose service document is at
// serviceURL, authenticating with creds.
func New(serviceURL string, creds Credentials, opts ...Option) *Connection {
	c := &Connection{
		ServiceURL: serviceURL,
		creds:      creds,
		timeout:    10 * time.Minute, // arbitrary
		encoding:   mets.DefaultEncoding,
		logger:     log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = log.New(ioutil.Discard, "", 0)
	}
	return c
}

// ServiceDocument fetches the raw service document.
func (c *Connection) ServiceDocument() ([]byte, error) {
	req, err := http.NewRequest("GET", c.ServiceURL, nil)
	if err != nil {
		return nil, &TransportError{URL: c.ServiceURL, Err: err}
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.ok():
		return resp.body, nil
	case resp.denied():
		return nil, ErrNotAuthorized
	default:
		c.logger.Printf("Received HTTP status %d for GET %s", resp.status, c.ServiceURL)
		return nil, &TransportError{
			URL: c.ServiceURL,
			Err: fmt.Errorf("received status %d", resp.status),
		}
	}
}

// Collections fetches the service document and returns the collections in it
// that accept zip packages, in document order. As with ParseServiceDocument,
// an error wrapping ErrMalformedServiceDocument comes with the collections
// found before the problem.
func (c *Connection) Collections() ([]Collection, error) {
	doc, err := c.ServiceDocument()
	if err != nil {
		return nil, err
	}
	result, err := ParseServiceDocument(doc)
	if err != nil {
		c.logger.Printf("%s: %s", c.ServiceURL, err)
	}
	return result, err
}

// BuildPackage renders the manifest for md and assembles it with files into
// a package. No network requests are made. The readers in files are consumed
// but not closed.
func (c *Connection) BuildPackage(md mets.Record, files *bundle.FileSet) (*bundle.Package, error) {
	return bundle.Assemble(mets.Render(md), files, c.encoding)
}

// A Receipt is the server's answer to a successful deposit.
type Receipt struct {
	StatusCode int
	Location   string // the Location header, if any
	Body       []byte // the response body, usually an Atom entry
}

// SWORD v1 request headers
const (
	PackagingMETS = "http://purl.org/net/sword-types/METSDSpaceSIP"

	headerPackaging   = "X-Packaging"
	headerOnBehalfOf  = "X-On-Behalf-Of"
	headerNoOp        = "X-No-Op"
	headerVerbose     = "X-Verbose"
	headerContentMD5  = "Content-MD5"
	headerDisposition = "Content-Disposition"
)

// A DepositOption adds an optional SWORD header to a deposit.
type DepositOption func(http.Header)

// WithOnBehalfOf deposits as a mediated deposit for the given user.
func WithOnBehalfOf(user string) DepositOption {
	return func(h http.Header) { h.Set(headerOnBehalfOf, user) }
}

// WithNoOp asks the server to check the deposit without storing it.
func WithNoOp() DepositOption {
	return func(h http.Header) { h.Set(headerNoOp, "true") }
}

// WithVerbose asks the server for a verbose description in the receipt.
func WithVerbose() DepositOption {
	return func(h http.Header) { h.Set(headerVerbose, "true") }
}

// WithFilename suggests a file name for the package to the server.
func WithFilename(name string) DepositOption {
	return func(h http.Header) { h.Set(headerDisposition, "filename="+name) }
}

// Deposit sends p to the collection col. A non-success answer from the
// server is returned as a *RejectedError holding the response body, except
// authentication failures, which are ErrNotAuthorized.
func (c *Connection) Deposit(col Collection, p *bundle.Package, opts ...DepositOption) (*Receipt, error) {
	req, err := http.NewRequest("POST", col.URL, bytes.NewReader(p.Data))
	if err != nil {
		return nil, &TransportError{URL: col.URL, Err: err}
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = bundle.ContentType
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerContentMD5, util.MD5Hex(p.Data))
	req.Header.Set(headerPackaging, PackagingMETS)
	for _, opt := range opts {
		opt(req.Header)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.ok():
		return &Receipt{
			StatusCode: resp.status,
			Location:   resp.header.Get("Location"),
			Body:       resp.body,
		}, nil
	case resp.denied():
		return nil, ErrNotAuthorized
	default:
		c.logger.Printf("Received HTTP status %d for POST %s", resp.status, col.URL)
		return nil, &RejectedError{StatusCode: resp.status, Body: resp.body}
	}
}

type reply struct {
	status int
	header http.Header
	body   []byte
}

func (r *reply) ok() bool     { return r.status >= 200 && r.status < 300 }
func (r *reply) denied() bool { return r.status == 401 || r.status == 403 }

// do performs an http request with our credentials, and reads the whole
// response body.
func (c *Connection) do(req *http.Request) (*reply, error) {
	req.Header.Set("Authorization", c.creds.authorization())
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Printf("%s %s: %s", req.Method, req.URL, err)
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	return &reply{
		status: resp.StatusCode,
		header: resp.Header,
		body:   body,
	}, nil
}
