// Package format reads and writes workspace documents.
//
// A document is an XML tree rooted at dynWorkspace:
//
//	<dynWorkspace Version="0.5.0" X="0" Y="0" Name="Double" Category="Math" ID="...">
//	  <dynElements>
//	    <Number type="Number" guid="..." nickname="Number" x="10" y="20">
//	      <Param name="value" value="21"/>
//	    </Number>
//	  </dynElements>
//	  <dynConnectors>
//	    <dynConnector start-guid="..." start-port-index="0" end-guid="..." end-port-index="0" port-type="0"/>
//	  </dynConnectors>
//	  <dynNotes>
//	    <dynNote text="hello" x="0" y="0"/>
//	  </dynNotes>
//	</dynWorkspace>
//
// Home workspaces leave Name empty. Custom node documents carry Name,
// Category and ID.
package format

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// Version is written on every document.
const Version = "0.5.0"

// Port types of a connector destination.
const (
	PortTypeInput = 0
	PortTypeState = 1
)

// InvalidIndex marks a connector attribute that could not be parsed.
const InvalidIndex = -1

const (
	connectorElement = "dynConnector"
	noteElement      = "dynNote"
	fallbackElement  = "dynNode"
)

// Document is the decoded form of a workspace file.
type Document struct {
	XMLName  xml.Name `xml:"dynWorkspace"`
	Version  string   `xml:"Version,attr,omitempty"`
	X        float64  `xml:"X,attr"`
	Y        float64  `xml:"Y,attr"`
	Name     string   `xml:"Name,attr,omitempty"`
	Category string   `xml:"Category,attr,omitempty"`
	ID       string   `xml:"ID,attr,omitempty"`

	Elements   Elements   `xml:"dynElements"`
	Connectors Connectors `xml:"dynConnectors"`
	Notes      Notes      `xml:"dynNotes"`
}

// Elements holds node records. The element name of each record is free;
// only the type attribute selects the kind.
type Elements struct {
	Nodes []NodeRecord `xml:",any"`
}

// Connectors holds connector records.
type Connectors struct {
	Items []ConnectorRecord `xml:",any"`
}

// Notes holds note records.
type Notes struct {
	Items []NoteRecord `xml:",any"`
}

// IsCustom reports whether the document describes a custom node.
func (d *Document) IsCustom() bool {
	return d.Name != ""
}

// NodeRecord is one persisted node.
type NodeRecord struct {
	XMLName  xml.Name
	Type     string        `xml:"type,attr"`
	GUID     string        `xml:"guid,attr"`
	NickName string        `xml:"nickname,attr"`
	X        float64       `xml:"x,attr"`
	Y        float64       `xml:"y,attr"`
	Lacing   string        `xml:"lacing,attr,omitempty"`
	Params   []ParamRecord `xml:"Param"`

	// Legacy captures value-carrying children of older documents, such as
	// <System.Double value="3"/>.
	Legacy []LegacyValue `xml:",any"`
}

// ParamRecord is one persisted behavior parameter.
type ParamRecord struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// LegacyValue is a child element carrying a single value attribute.
type LegacyValue struct {
	XMLName xml.Name
	Value   string `xml:"value,attr"`
}

// ParamMap merges Param children and legacy value children into the map
// handed to a Configurable behavior.
func (r *NodeRecord) ParamMap() map[string]string {
	params := make(map[string]string, len(r.Params)+len(r.Legacy))
	for _, lv := range r.Legacy {
		if lv.Value == "" {
			continue
		}
		switch lv.XMLName.Local {
		case "Symbol", "ID":
			params["symbol"] = lv.Value
		default:
			params["value"] = lv.Value
		}
	}
	for _, p := range r.Params {
		params[p.Name] = p.Value
	}
	return params
}

// ConnectorRecord is one persisted connector.
type ConnectorRecord struct {
	XMLName    xml.Name
	Start      string `xml:"start-guid,attr"`
	StartIndex int    `xml:"start-port-index,attr"`
	End        string `xml:"end-guid,attr"`
	EndIndex   int    `xml:"end-port-index,attr"`
	PortType   int    `xml:"port-type,attr"`
}

var connectorAttrs = [...]string{"start-guid", "start-port-index", "end-guid", "end-port-index", "port-type"}

// UnmarshalXML reads the named attributes, or the first five attributes by
// position when none of the names are present (older writers used other
// attribute names in the same order).
func (c *ConnectorRecord) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	c.XMLName = start.Name

	values := make([]string, len(connectorAttrs))
	found := false
	for _, a := range start.Attr {
		for i, name := range connectorAttrs {
			if a.Name.Local == name {
				values[i] = a.Value
				found = true
			}
		}
	}
	if !found {
		if len(start.Attr) < len(connectorAttrs) {
			return fmt.Errorf("connector has %d attribute(s), want %d", len(start.Attr), len(connectorAttrs))
		}
		for i := range connectorAttrs {
			values[i] = start.Attr[i].Value
		}
	}

	c.Start, c.End = values[0], values[2]
	c.StartIndex = atoi(values[1])
	c.EndIndex = atoi(values[3])
	c.PortType = atoi(values[4])
	return d.Skip()
}

// atoi parses an index attribute. Malformed values decode to InvalidIndex so
// that the loader drops the connector instead of failing the document.
func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return InvalidIndex
	}
	return n
}

// NoteRecord is one persisted note.
type NoteRecord struct {
	XMLName xml.Name
	Text    string  `xml:"text,attr"`
	X       float64 `xml:"x,attr"`
	Y       float64 `xml:"y,attr"`
}

// Decode parses a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}
	return &doc, nil
}

// Unmarshal parses a document from bytes.
func Unmarshal(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes doc as indented XML with a declaration.
func Encode(w io.Writer, doc *Document) error {
	if doc.Version == "" {
		doc.Version = Version
	}
	doc.nameElements()
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode workspace: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal encodes doc to bytes.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) nameElements() {
	for i := range d.Elements.Nodes {
		if d.Elements.Nodes[i].XMLName.Local == "" {
			d.Elements.Nodes[i].XMLName.Local = elementName(d.Elements.Nodes[i].Type)
		}
	}
	for i := range d.Connectors.Items {
		if d.Connectors.Items[i].XMLName.Local == "" {
			d.Connectors.Items[i].XMLName.Local = connectorElement
		}
	}
	for i := range d.Notes.Items {
		if d.Notes.Items[i].XMLName.Local == "" {
			d.Notes.Items[i].XMLName.Local = noteElement
		}
	}
}

// elementName returns name when it is usable as an XML element name.
func elementName(name string) string {
	if name == "" {
		return fallbackElement
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '.' || r == '-' || (r >= '0' && r <= '9')):
		default:
			return fallbackElement
		}
	}
	return name
}
