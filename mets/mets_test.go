package mets

import (
	"bytes"
	"encoding/xml"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// parsed pulls the interesting values back out of a rendered manifest.
type parsed struct {
	Header struct {
		Created string `xml:"CREATEDATE,attr"`
	} `xml:"metsHdr"`
	Descriptions []struct {
		Statements []struct {
			Property string `xml:"propertyURI,attr"`
			Value    struct {
				Text     string   `xml:",chardata"`
				Keywords []string `xml:"file>entry>keywords"`
			} `xml:"valueString"`
		} `xml:"statement"`
	} `xml:"dmdSec>mdWrap>xmlData>descriptionSet>description"`

	values   map[string]string
	keywords []string
}

func parse(t *testing.T, text string) parsed {
	var p parsed
	err := xml.Unmarshal([]byte(text), &p)
	if err != nil {
		t.Fatalf("manifest is not well formed: %s", err)
	}
	p.values = make(map[string]string)
	for _, d := range p.Descriptions {
		for _, s := range d.Statements {
			if s.Property == bibCitation {
				p.keywords = s.Value.Keywords
				continue
			}
			if s.Value.Text != "" {
				p.values[s.Property] = s.Value.Text
			}
		}
	}
	return p
}

const (
	dcTitle     = "http://purl.org/dc/elements/1.1/title"
	dcAbstract  = "http://purl.org/dc/terms/abstract"
	dcLanguage  = "http://purl.org/dc/elements/1.1/language"
	bibCitation = "http://purl.org/eprint/terms/bibliographicCitation"
)

func TestCleanKeywords(t *testing.T) {
	var table = []struct {
		input  []string
		output []string
	}{
		{nil, nil},
		{[]string{"A", "", "  ", "B"}, []string{"A", "B"}},
		{[]string{" physics ", "\tmath\n"}, []string{"physics", "math"}},
		{[]string{"", " "}, nil},
	}
	for _, test := range table {
		out := CleanKeywords(test.input)
		if !reflect.DeepEqual(out, test.output) {
			t.Errorf("Received %q, expected %q", out, test.output)
		}
	}
}

func TestRenderKeywords(t *testing.T) {
	text := RenderText("Title", "Summary", "en", []string{"A", "", "  ", "B"})
	if n := strings.Count(text, "<bib:keywords>"); n != 2 {
		t.Errorf("Received %d keyword entries, expected 2", n)
	}
	if !strings.Contains(text, "<bib:keywords>A</bib:keywords><bib:keywords>B</bib:keywords>") {
		t.Errorf("keywords missing or out of order:\n%s", text)
	}
	p := parse(t, text)
	if !reflect.DeepEqual(p.keywords, []string{"A", "B"}) {
		t.Errorf("Received %q, expected [A B]", p.keywords)
	}
}

func TestRenderFields(t *testing.T) {
	p := parse(t, Render(Record{
		Title:    "Intro to Waves",
		Summary:  "Waves, briefly.",
		Language: "en",
	}))
	if p.Header.Created != CreateDate {
		t.Errorf("Received %s, expected %s", p.Header.Created, CreateDate)
	}
	var table = []struct {
		property string
		value    string
	}{
		{dcTitle, "Intro to Waves"},
		{dcAbstract, "Waves, briefly."},
		{dcLanguage, "en"},
	}
	for _, test := range table {
		if v := p.values[test.property]; v != test.value {
			t.Errorf("%s: Received %q, expected %q", test.property, v, test.value)
		}
	}
	if len(p.keywords) != 0 {
		t.Errorf("Received %q, expected no keywords", p.keywords)
	}
}

func TestRenderEscapes(t *testing.T) {
	text := RenderText("Fish & Chips <b>", `He said "hi"`, "en", []string{"a<b"})
	if strings.Contains(text, "<b>") {
		t.Errorf("title was not escaped")
	}
	p := parse(t, text)
	if v := p.values[dcTitle]; v != "Fish & Chips <b>" {
		t.Errorf("Received %q", v)
	}
	if v := p.values[dcAbstract]; v != `He said "hi"` {
		t.Errorf("Received %q", v)
	}
	if len(p.keywords) != 1 || p.keywords[0] != "a<b" {
		t.Errorf("Received %q", p.keywords)
	}
}

func TestEncode(t *testing.T) {
	const text = "Café"
	var table = []struct {
		name   string
		output []byte
	}{
		{"", []byte("Café")},
		{"utf-8", []byte("Café")},
		{"utf8", []byte("Café")},
		{"latin1", []byte{'C', 'a', 'f', 0xe9}},
		{"ISO-8859-1", []byte{'C', 'a', 'f', 0xe9}},
	}
	for _, test := range table {
		out, err := Encode(text, test.name)
		if err != nil {
			t.Errorf("%s: Received error %s", test.name, err)
			continue
		}
		if !bytes.Equal(out, test.output) {
			t.Errorf("%s: Received %v, expected %v", test.name, out, test.output)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode("hello", "no-such-charset")
	if errors.Cause(err) != ErrUnknownEncoding {
		t.Errorf("Received %v, expected %v", err, ErrUnknownEncoding)
	}
	_, err = Encode("中文", "latin1")
	if err == nil {
		t.Errorf("Received nil, expected an error for an unencodable rune")
	}
}
