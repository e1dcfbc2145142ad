package sword

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/mets"
	"github.com/ndlib/sword/swordtest"
	"github.com/ndlib/sword/util"
)

var testCollections = []swordtest.Collection{
	{ID: "personal", Title: "Personal Workspace", Accepts: []string{"application/zip"}},
	{ID: "xml-only", Title: "XML Workspace", Accepts: []string{"text/xml"}},
}

func NewLocalSwordServer() (*swordtest.Server, *httptest.Server) {
	s := swordtest.New("user", "secret", testCollections...)
	return s, httptest.NewServer(s)
}

func TestCollections(t *testing.T) {
	_, remote := NewLocalSwordServer()
	defer remote.Close()

	c := New(remote.URL+swordtest.ServiceDocumentPath, Credentials{"user", "secret"})
	result, err := c.Collections()
	// the xml-only collection stops the scan
	if !errors.Is(err, ErrMalformedServiceDocument) {
		t.Errorf("Received %v, expected %v", err, ErrMalformedServiceDocument)
	}
	expected := []Collection{{
		URL:   remote.URL + swordtest.DepositPath + "personal",
		Title: "Personal Workspace",
	}}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Received %v, expected %v", result, expected)
	}
}

func TestCollectionsErrors(t *testing.T) {
	eserver, remote := NewLocalSwordServer()
	defer remote.Close()
	url := remote.URL + swordtest.ServiceDocumentPath

	// wrong password
	c := New(url, Credentials{"user", "wrong"})
	_, err := c.Collections()
	if err != ErrNotAuthorized {
		t.Errorf("Received %v, expected %v", err, ErrNotAuthorized)
	}

	// server error
	eserver.Reset([]swordtest.Play{{When: 0, Status: 500, Body: "oops"}})
	c = New(url, Credentials{"user", "secret"})
	_, err = c.Collections()
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Received %v, expected %v", err, ErrServiceUnavailable)
	}

	// nobody listening
	remote.Close()
	_, err = c.Collections()
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Received %v, expected %v", err, ErrServiceUnavailable)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.URL != url {
		t.Errorf("Received %#v, expected a TransportError for %s", err, url)
	}
}

func buildTestPackage(t *testing.T, c *Connection) *bundle.Package {
	files := bundle.NewFileSet()
	files.Add("index.cnxml", strings.NewReader("<document/>"))
	files.Add("figure.png", strings.NewReader("not really a png"))
	p, err := c.BuildPackage(mets.Record{
		Title:    "Waves",
		Summary:  "About waves",
		Language: "en",
		Keywords: []string{"physics", "", "waves"},
	}, files)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBuildPackage(t *testing.T) {
	c := New("http://unused.example", Credentials{})
	p := buildTestPackage(t, c)
	expected := []string{"mets.xml", "index.cnxml", "figure.png"}
	if !reflect.DeepEqual(p.Entries, expected) {
		t.Errorf("Received %v, expected %v", p.Entries, expected)
	}
	r, err := bundle.NewReader(p.Data)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := r.Manifest()
	if string(m) != mets.RenderText("Waves", "About waves", "en", []string{"physics", "waves"}) {
		t.Errorf("manifest does not match the rendered record")
	}
}

func TestDeposit(t *testing.T) {
	eserver, remote := NewLocalSwordServer()
	defer remote.Close()

	c := New(remote.URL+swordtest.ServiceDocumentPath, Credentials{"user", "secret"})
	cols, _ := c.Collections()
	if len(cols) != 1 {
		t.Fatalf("Received %d collections, expected 1", len(cols))
	}
	p := buildTestPackage(t, c)
	receipt, err := c.Deposit(cols[0], p, WithOnBehalfOf("alice"), WithFilename("waves.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if receipt.StatusCode != 201 {
		t.Errorf("Received %d, expected 201", receipt.StatusCode)
	}
	if receipt.Location != remote.URL+swordtest.ItemPath+"1" {
		t.Errorf("Received location %s", receipt.Location)
	}
	if !strings.Contains(string(receipt.Body), "<entry") {
		t.Errorf("Received body %s", receipt.Body)
	}

	deposits := eserver.Deposits()
	if len(deposits) != 1 {
		t.Fatalf("Received %d deposits, expected 1", len(deposits))
	}
	d := deposits[0]
	var headers = []struct {
		name  string
		value string
	}{
		{"Content-Type", "application/zip"},
		{"Content-MD5", util.MD5Hex(p.Data)},
		{"X-Packaging", PackagingMETS},
		{"X-On-Behalf-Of", "alice"},
		{"Content-Disposition", "filename=waves.zip"},
		{"Authorization", "Basic dXNlcjpzZWNyZXQ="},
	}
	for _, h := range headers {
		if v := d.Header.Get(h.name); v != h.value {
			t.Errorf("%s: Received %q, expected %q", h.name, v, h.value)
		}
	}
	if !reflect.DeepEqual(d.Entries, p.Entries) {
		t.Errorf("Received %v, expected %v", d.Entries, p.Entries)
	}
}

func TestDepositNoOp(t *testing.T) {
	eserver, remote := NewLocalSwordServer()
	defer remote.Close()

	c := New(remote.URL+swordtest.ServiceDocumentPath, Credentials{"user", "secret"})
	col := Collection{URL: remote.URL + swordtest.DepositPath + "personal"}
	receipt, err := c.Deposit(col, buildTestPackage(t, c), WithNoOp(), WithVerbose())
	if err != nil {
		t.Fatal(err)
	}
	if receipt.StatusCode != 200 {
		t.Errorf("Received %d, expected 200", receipt.StatusCode)
	}
	if receipt.Location != "" {
		t.Errorf("Received location %q, expected none", receipt.Location)
	}
	if n := len(eserver.Deposits()); n != 0 {
		t.Errorf("Received %d deposits, expected 0", n)
	}
}

func TestDepositRejected(t *testing.T) {
	eserver, remote := NewLocalSwordServer()
	defer remote.Close()
	c := New(remote.URL+swordtest.ServiceDocumentPath, Credentials{"user", "secret"})
	p := buildTestPackage(t, c)

	var table = []struct {
		collection string
		play       []swordtest.Play
		status     int
		body       string
	}{
		{"personal", []swordtest.Play{{When: 0, Status: 500, Body: "server exploded"}}, 500, "server exploded"},
		{"personal", []swordtest.Play{{When: 0, Status: 400, Body: ""}}, 400, ""},
		{"xml-only", nil, 415, "ErrorContent"},
		{"missing", nil, 404, "No such collection"},
	}
	for _, test := range table {
		eserver.Reset(test.play)
		col := Collection{URL: remote.URL + swordtest.DepositPath + test.collection}
		_, err := c.Deposit(col, p)
		if !errors.Is(err, ErrDepositRejected) {
			t.Errorf("%s: Received %v, expected %v", test.collection, err, ErrDepositRejected)
			continue
		}
		var rej *RejectedError
		errors.As(err, &rej)
		if rej.StatusCode != test.status {
			t.Errorf("%s: Received %d, expected %d", test.collection, rej.StatusCode, test.status)
		}
		if test.play != nil && string(rej.Body) != test.body {
			t.Errorf("%s: Received %q, expected %q verbatim", test.collection, rej.Body, test.body)
		}
		if !strings.Contains(string(rej.Body), test.body) {
			t.Errorf("%s: Received %q, expected it to contain %q", test.collection, rej.Body, test.body)
		}
	}
}

func TestDepositNotAuthorized(t *testing.T) {
	_, remote := NewLocalSwordServer()
	defer remote.Close()
	c := New(remote.URL+swordtest.ServiceDocumentPath, Credentials{"user", "nope"})
	col := Collection{URL: remote.URL + swordtest.DepositPath + "personal"}
	_, err := c.Deposit(col, buildTestPackage(t, c))
	if err != ErrNotAuthorized {
		t.Errorf("Received %v, expected %v", err, ErrNotAuthorized)
	}
}

// recorder is a Doer which remembers the last request and answers 201.
type recorder struct {
	req *http.Request
}

func (r *recorder) Do(req *http.Request) (*http.Response, error) {
	r.req = req
	rec := httptest.NewRecorder()
	rec.WriteHeader(201)
	return rec.Result(), nil
}

func TestWithClient(t *testing.T) {
	r := new(recorder)
	c := New("http://cnx.example/sword", Credentials{"Aladdin", "open sesame"}, WithClient(r))
	p := &bundle.Package{Data: []byte("abc")}
	_, err := c.Deposit(Collection{URL: "http://cnx.example/deposit"}, p)
	if err != nil {
		t.Fatal(err)
	}
	if v := r.req.Header.Get("Authorization"); v != "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==" {
		t.Errorf("Received %s", v)
	}
	// an empty content type falls back to zip
	if v := r.req.Header.Get("Content-Type"); v != "application/zip" {
		t.Errorf("Received %s", v)
	}
	if r.req.ContentLength != 3 {
		t.Errorf("Received %d, expected 3", r.req.ContentLength)
	}
}
