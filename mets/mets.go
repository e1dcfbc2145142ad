// Package mets renders the METS manifest that accompanies every deposit
// package sent to a Connexions SWORD v1 endpoint.
//
// The manifest follows the DSpace METS SIP profile with an EPDCX description
// set. Only the title, abstract, language and keywords vary between deposits;
// the header block is fixed. All caller supplied text is XML escaped, so
// titles such as "Fish & Chips" produce a well-formed document.
package mets

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"
)

// Filename is the name of the manifest entry inside a deposit package.
const Filename = "mets.xml"

// CreateDate is the fixed creation date written into the METS header.
const CreateDate = "2008-09-04T00:00:00"

// A Record is the descriptive metadata for one deposit.
type Record struct {
	Title    string
	Summary  string
	Language string // two-letter ISO 639-1 code
	Keywords []string
}

// CleanKeywords trims each keyword and drops the empty ones, keeping order.
func CleanKeywords(keywords []string) []string {
	var result []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k != "" {
			result = append(result, k)
		}
	}
	return result
}

// Render returns the manifest text for r.
func Render(r Record) string {
	var buf bytes.Buffer
	err := manifest.Execute(&buf, struct {
		Record
		CreateDate string
	}{
		Record: Record{
			Title:    r.Title,
			Summary:  r.Summary,
			Language: r.Language,
			Keywords: CleanKeywords(r.Keywords),
		},
		CreateDate: CreateDate,
	})
	if err != nil {
		// the template only formats strings, so this can only be a
		// programming error
		panic(err)
	}
	return buf.String()
}

// RenderText is Render with the fields given separately.
func RenderText(title, summary, language string, keywords []string) string {
	return Render(Record{
		Title:    title,
		Summary:  summary,
		Language: language,
		Keywords: keywords,
	})
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

var manifest = template.Must(template.New("mets").
	Funcs(template.FuncMap{"x": escape}).
	Parse(skeleton))

const skeleton = `<?xml version="1.0" encoding="utf-8" standalone="no" ?>
<mets ID="sort-mets_mets" OBJID="sword-mets" LABEL="DSpace SWORD Item" PROFILE="DSpace METS SIP Profile 1.0" xmlns="http://www.loc.gov/METS/" xmlns:xlink="http://www.w3.org/1999/xlink" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://www.loc.gov/METS/ http://www.loc.gov/standards/mets/mets.xsd">

  <metsHdr CREATEDATE="{{.CreateDate}}">
    <agent ROLE="CUSTODIAN" TYPE="ORGANIZATION">
      <name>Unknown</name>
    </agent>
  </metsHdr>

  <dmdSec ID="sword-mets-dmd-1" GROUPID="sword-mets-dmd-1_group-1">
    <mdWrap LABEL="SWAP Metadata" MDTYPE="OTHER" OTHERMDTYPE="EPDCX" MIMETYPE="text/xml">
      <xmlData>
        <epdcx:descriptionSet xmlns:epdcx="http://purl.org/eprint/epdcx/2006-11-16/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://purl.org/eprint/epdcx/2006-11-16/ http://purl.org/eprint/epdcx/xsd/2006-11-16/epdcx.xsd">
          <epdcx:description epdcx:resourceId="sword-mets-epdcx-1">
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/title">
              <epdcx:valueString>{{x .Title}}</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/terms/abstract">
              <epdcx:valueString>{{x .Summary}}</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/eprint/terms/isExpressedAs" epdcx:valueRef="sword-mets-expr-1" />
          </epdcx:description>
          <epdcx:description epdcx:resourceId="sword-mets-expr-1">
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/type" epdcx:valueURI="http://purl.org/eprint/entityType/Expression" />
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/type" epdcx:vesURI="http://purl.org/eprint/terms/Type" epdcx:valueURI="http://purl.org/eprint/entityType/Expression" />
          </epdcx:description>
          <epdcx:description epdcx:resourceId="sword-mets-expr-1">
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/type" epdcx:valueURI="http://purl.org/eprint/entityType/Expression" />
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/language" epdcx:vesURI="http://purl.org/dc/terms/RFC3066">
              <epdcx:valueString>{{x .Language}}</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/type" epdcx:vesURI="http://purl.org/eprint/terms/Type" epdcx:valueURI="http://purl.org/eprint/entityType/Expression" />
            <epdcx:statement epdcx:propertyURI="http://purl.org/eprint/terms/bibliographicCitation">
              <epdcx:valueString>
                <bib:file xmlns:bib="http://bibtexml.sf.net/">
                  <bib:entry>
                    {{range .Keywords}}<bib:keywords>{{x .}}</bib:keywords>{{end}}
                  </bib:entry>
                </bib:file>
              </epdcx:valueString>
            </epdcx:statement>
          </epdcx:description>
        </epdcx:descriptionSet>
      </xmlData>
    </mdWrap>
  </dmdSec>
</mets>
`
