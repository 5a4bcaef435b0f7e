package adapter

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"proofview/internal/diag"
	"proofview/internal/location"
)

// Node is a generic XML element. The verifier's XML schemas are loose
// enough that walking a tree is simpler than binding structs per tag, and
// the property, loop and coverage readers share it.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Data    string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// ReadXML parses a verifier XML document into its root element.
func ReadXML(r io.Reader) (*Node, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	// NUL is not a legal XML character but the verifier emits it in
	// string values.
	doc := strings.ReplaceAll(string(raw), "&#0;", "null_char")

	var root Node
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, &diag.Error{Code: diag.InMalformedInput, Msg: "invalid xml", Err: err}
	}
	return &root, nil
}

// Attr returns the attribute name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child named name.
func (n *Node) Child(name string) *Node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

// Text returns the trimmed character data of the first child named name.
func (n *Node) Text(name string) string {
	if c := n.Child(name); c != nil {
		return strings.TrimSpace(c.Data)
	}
	return ""
}

// Walk visits every descendant named name in document order.
func (n *Node) Walk(name string, fn func(*Node) error) error {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == name {
			if err := fn(c); err != nil {
				return err
			}
		}
		if err := c.Walk(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Location reads a <location file= function= line= working-directory=/>
// element. A nil node yields the sentinel.
func (n *Node) Location(c *location.Canonicalizer) location.Location {
	if n == nil {
		return location.Missing
	}
	file, _ := n.Attr("file")
	function, _ := n.Attr("function")
	wkdir, _ := n.Attr("working-directory")
	var line *int
	if s, ok := n.Attr("line"); ok {
		if v, err := location.ParseLine(s); err == nil {
			line = &v
		}
	}
	return c.Location(file, function, line, wkdir)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("<" + n.XMLName.Local)
	for _, a := range n.Attrs {
		fmt.Fprintf(&b, " %s=%q", a.Name.Local, a.Value)
	}
	b.WriteString(">")
	return b.String()
}
