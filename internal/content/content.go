// Package content defines the declarative document tree produced by the
// invoice builder and consumed by renderers. Nodes carry data only.
package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version of the serialized tree layout.
const Version = 1

// Kind tags a node in its JSON form.
type Kind string

const (
	KindRow    Kind = "row"
	KindTable  Kind = "table"
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindSpacer Kind = "spacer"
	KindLine   Kind = "line"
)

// Align values for Style.Align.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Node is any element of the tree. Rows, tables, spacers and lines are
// page-level blocks; text, images and spacers may appear inside a column.
type Node interface {
	Kind() Kind
}

// Tree is the root of an invoice document.
type Tree struct {
	Version int  `json:"version"`
	Page    Page `json:"page"`
}

// Page holds page geometry and the ordered blocks of the document.
type Page struct {
	Size    string  `json:"size"`
	Margins Margins `json:"margins"`
	// CreatedAt becomes the PDF creation date.
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Blocks    Nodes      `json:"blocks"`
}

// Margins in millimetres.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Color is an RGB fill or text color.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Style is the text styling shared by text nodes and table cells.
type Style struct {
	Size   float64 `json:"size,omitempty"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
	Align  string  `json:"align,omitempty"`
	Color  *Color  `json:"color,omitempty"`
}

// Row is a horizontal band split into columns on a 12 unit grid.
type Row struct {
	Height  float64  `json:"height,omitempty"`
	Columns []Column `json:"columns"`
}

// Column stacks its items vertically.
type Column struct {
	Span  int   `json:"span"`
	Items Nodes `json:"items"`
}

// Text is a styled run of text.
type Text struct {
	Value string `json:"value"`
	Style Style  `json:"style"`
}

// Image is an inline image carried as a data URI.
type Image struct {
	Source  string  `json:"source"`
	Height  float64 `json:"height,omitempty"`
	Percent float64 `json:"percent,omitempty"`
}

// Cell is one table cell.
type Cell struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// Table is a grid of cells. Widths are column spans on the 12 unit grid.
// StripeFill is applied to every odd data row.
type Table struct {
	Widths     []int    `json:"widths"`
	Header     []Cell   `json:"header"`
	Rows       [][]Cell `json:"rows"`
	HeaderFill *Color   `json:"headerFill,omitempty"`
	StripeFill *Color   `json:"stripeFill,omitempty"`
	Border     bool     `json:"border,omitempty"`
	RowHeight  float64  `json:"rowHeight,omitempty"`
}

// Spacer is vertical whitespace.
type Spacer struct {
	Height float64 `json:"height"`
}

// Line is a horizontal rule.
type Line struct{}

func (Row) Kind() Kind    { return KindRow }
func (Table) Kind() Kind  { return KindTable }
func (Text) Kind() Kind   { return KindText }
func (Image) Kind() Kind  { return KindImage }
func (Spacer) Kind() Kind { return KindSpacer }
func (Line) Kind() Kind   { return KindLine }

// FillFor returns the fill of data row i, or nil when the row is unfilled.
func (t Table) FillFor(i int) *Color {
	if i%2 == 1 {
		return t.StripeFill
	}
	return nil
}

// Nodes is a list of nodes with a tagged JSON encoding.
type Nodes []Node

func (n Nodes) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(n))
	for _, node := range n {
		raw, err := marshalNode(node)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func (n *Nodes) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	nodes := make(Nodes, 0, len(raws))
	for _, raw := range raws {
		node, err := unmarshalNode(raw)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	*n = nodes
	return nil
}

func marshalNode(node Node) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("content: nil node")
	}
	body, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(node.Kind())
	fields["type"] = kind
	// encoding/json sorts map keys, which keeps the output stable.
	return json.Marshal(fields)
}

func unmarshalNode(raw json.RawMessage) (Node, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindRow:
		var v Row
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindTable:
		var v Table
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindText:
		var v Text
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindImage:
		var v Image
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindSpacer:
		var v Spacer
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindLine:
		return Line{}, nil
	default:
		return nil, fmt.Errorf("content: unknown node type %q", head.Type)
	}
}

// Marshal returns the canonical JSON encoding of the tree. Equal trees always
// produce equal bytes.
func Marshal(t Tree) ([]byte, error) {
	if t.Version == 0 {
		t.Version = Version
	}
	return json.Marshal(t)
}

// Unmarshal decodes a tree previously produced by Marshal.
func Unmarshal(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("content: decode tree: %w", err)
	}
	return t, nil
}

// Walk calls fn for every node in document order, descending into columns.
func Walk(t Tree, fn func(Node)) {
	for _, block := range t.Page.Blocks {
		fn(block)
		if row, ok := block.(Row); ok {
			for _, col := range row.Columns {
				for _, item := range col.Items {
					fn(item)
				}
			}
		}
	}
}

// Texts returns every text value in the tree in document order, including
// table cells. Useful for assertions and search indexing.
func Texts(t Tree) []string {
	var out []string
	Walk(t, func(n Node) {
		switch v := n.(type) {
		case Text:
			out = append(out, v.Value)
		case Table:
			for _, c := range v.Header {
				out = append(out, c.Text)
			}
			for _, r := range v.Rows {
				for _, c := range r {
					out = append(out, c.Text)
				}
			}
		}
	})
	return out
}
