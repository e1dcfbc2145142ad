package swordtest

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// ServiceDocument renders a SWORD v1.3 service document listing cols. Each
// collection's deposit URL is depositBase followed by its ID.
func ServiceDocument(depositBase string, cols []Collection) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<service xmlns="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:sword="http://purl.org/net/sword/" xmlns:dcterms="http://purl.org/dc/terms/">
  <sword:version>1.3</sword:version>
  <sword:verbose>true</sword:verbose>
  <sword:noOp>true</sword:noOp>
  <workspace>
    <atom:title>Test Repository</atom:title>
`)
	for _, c := range cols {
		fmt.Fprintf(&buf, "    <collection href=\"%s\">\n", escape(depositBase+c.ID))
		fmt.Fprintf(&buf, "      <atom:title>%s</atom:title>\n", escape(c.Title))
		for _, a := range c.Accepts {
			fmt.Fprintf(&buf, "      <accept>%s</accept>\n", escape(a))
		}
		buf.WriteString("      <sword:acceptPackaging q=\"1.0\">http://purl.org/net/sword-types/METSDSpaceSIP</sword:acceptPackaging>\n")
		buf.WriteString("      <sword:mediation>true</sword:mediation>\n")
		buf.WriteString("    </collection>\n")
	}
	buf.WriteString("  </workspace>\n</service>\n")
	return buf.Bytes()
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
