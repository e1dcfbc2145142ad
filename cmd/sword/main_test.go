package main

import (
	"bytes"
	"errors"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ndlib/sword/swordtest"
)

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "sword")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "sword.toml")
	ioutil.WriteFile(fname, []byte(`
service = "http://localhost:8080/sword/servicedocument"
username = "user"
password = "secret"
timeout = "30s"
outbox = "/var/sword/outbox"
history = "memory"
`), 0644)

	cfg, err := loadConfig(fname)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service != "http://localhost:8080/sword/servicedocument" {
		t.Errorf("Received %s", cfg.Service)
	}
	if cfg.Timeout.Duration != 30*time.Second {
		t.Errorf("Received %v, expected %v", cfg.Timeout.Duration, 30*time.Second)
	}
	// unset values keep their defaults
	if cfg.Encoding != "utf-8" {
		t.Errorf("Received %s, expected utf-8", cfg.Encoding)
	}

	cfg, err = loadConfig("")
	if err != nil || cfg.Timeout.Duration != 10*time.Minute {
		t.Errorf("Received %v, %v", cfg, err)
	}
}

func TestSplitBucketPrefix(t *testing.T) {
	var table = []struct {
		input, bucket, prefix string
	}{
		{"", "", ""},
		{"/bucket", "bucket", ""},
		{"/bucket/", "bucket", ""},
		{"/bucket/outbox", "bucket", "outbox/"},
		{"/bucket/and/a/prefix/", "bucket", "and/a/prefix/"},
	}
	for _, test := range table {
		b, p := splitBucketPrefix(test.input)
		if b != test.bucket || p != test.prefix {
			t.Errorf("%q: Received (%q, %q), expected (%q, %q)",
				test.input, b, p, test.bucket, test.prefix)
		}
	}
}

func TestParseLocation(t *testing.T) {
	var table = []struct {
		location string
		ok       bool
	}{
		{"", true},
		{"/tmp/outbox", true},
		{"file:///tmp/outbox", true},
		{"s3://localhost:9000/bucket/outbox", true},
		{"s3:///", false},
		{"ftp://example.com/x", false},
	}
	for _, test := range table {
		s := parselocation(test.location)
		if (s != nil) != test.ok {
			t.Errorf("%q: Received %v", test.location, s)
		}
	}
}

func TestPackageAndDeposit(t *testing.T) {
	server := swordtest.New("user", "secret", swordtest.Collection{
		ID: "personal", Title: "Personal Workspace", Accepts: []string{"application/zip"},
	})
	remote := httptest.NewServer(server)
	defer remote.Close()

	dir, err := ioutil.TempDir("", "sword")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	content := filepath.Join(dir, "index.cnxml")
	ioutil.WriteFile(content, []byte("<document/>"), 0644)

	cfg := defaultConfig
	cfg.Service = remote.URL + swordtest.ServiceDocumentPath
	cfg.Username = "user"
	cfg.Password = "secret"
	cfg.Outbox = filepath.Join(dir, "outbox")
	cfg.History = "memory"
	var out bytes.Buffer
	a, err := newApp(cfg, &out)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	err = a.run("collections", nil)
	if err != nil {
		t.Fatal(err)
	}
	colURL := remote.URL + swordtest.DepositPath + "personal"
	if !strings.HasPrefix(out.String(), colURL+"\tPersonal Workspace") {
		t.Errorf("Received %q", out.String())
	}

	out.Reset()
	err = a.run("package", []string{"Waves", "About waves", "en", "physics,waves", content})
	if err != nil {
		t.Fatal(err)
	}
	id := strings.TrimSpace(out.String())

	out.Reset()
	err = a.run("deposit", []string{colURL, id})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(server.Deposits()); n != 1 {
		t.Errorf("Received %d deposits, expected 1", n)
	}
	// sent packages leave the outbox
	ids, _ := a.outbox.List()
	if len(ids) != 0 {
		t.Errorf("Received %v, expected an empty outbox", ids)
	}

	entries, err := a.history.ForPackage(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != 201 {
		t.Errorf("Received %v", entries)
	}

	// a rejected deposit is recorded too
	server.Reset([]swordtest.Play{{When: 0, Status: 500, Body: "server exploded"}})
	err = a.run("send", []string{colURL, "Waves", "About waves", "en", "", content})
	if err == nil {
		t.Errorf("Received nil error")
	}
	recent, _ := a.history.Recent(1)
	if len(recent) != 1 || recent[0].Status != 500 || recent[0].Notes != "server exploded" {
		t.Errorf("Received %v", recent)
	}
}

func TestRunUsage(t *testing.T) {
	a := &app{}
	var table = []struct {
		command string
		args    []string
	}{
		{"bogus", nil},
		{"deposit", []string{"only-one"}},
		{"package", []string{"title"}},
		{"history", []string{"-3"}},
	}
	for _, test := range table {
		if err := a.run(test.command, test.args); err != errUsage {
			t.Errorf("%s %v: Received %v, expected %v", test.command, test.args, err, errUsage)
		}
	}
}

func TestBuildDuplicateNames(t *testing.T) {
	dir, err := ioutil.TempDir("", "sword")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	var files []string
	for _, sub := range []string{"a", "b"} {
		os.Mkdir(filepath.Join(dir, sub), 0755)
		fname := filepath.Join(dir, sub, "index.cnxml")
		ioutil.WriteFile(fname, []byte("<document "+sub+"/>"), 0644)
		files = append(files, fname)
	}

	cfg := defaultConfig
	a, err := newApp(cfg, ioutil.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	_, err = a.build(record("T", "S", "en", ""), files)
	if !errors.Is(err, errDuplicateName) {
		t.Errorf("Received %v, expected %v", err, errDuplicateName)
	}
	err = a.run("package", append([]string{"T", "S", "en", ""}, files...))
	if !errors.Is(err, errDuplicateName) {
		t.Errorf("Received %v, expected %v", err, errDuplicateName)
	}
	ids, _ := a.outbox.List()
	if len(ids) != 0 {
		t.Errorf("Received %v, expected nothing saved", ids)
	}
}
