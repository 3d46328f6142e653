package renderer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-service/internal/content"
)

type chunkRenderer struct {
	chunks [][]byte
	err    error
}

func (r *chunkRenderer) Render(ctx context.Context, tree content.Tree, w io.Writer) error {
	for _, c := range r.chunks {
		if _, err := w.Write(c); err != nil {
			return err
		}
	}
	return r.err
}

func TestCollect_ConcatenatesChunks(t *testing.T) {
	r := &chunkRenderer{chunks: [][]byte{[]byte("%PDF-"), []byte("1.4\n"), []byte("%%EOF")}}

	out, err := Collect(context.Background(), r, content.Tree{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%%EOF", string(out))
}

func TestCollect_ErrorDiscardsPartialOutput(t *testing.T) {
	boom := errors.New("encoding failed")
	r := &chunkRenderer{chunks: [][]byte{[]byte("%PDF-1.4 partial")}, err: boom}

	out, err := Collect(context.Background(), r, content.Tree{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestCollect_EmptyOutput(t *testing.T) {
	out, err := Collect(context.Background(), &chunkRenderer{}, content.Tree{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Nil(t, out)
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Collect(ctx, NewMarotoRenderer(nil, false), content.Tree{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func dataURI(t *testing.T, mediaType string, encode func(io.Writer, image.Image) error) string {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.White, color.Black})
	img.SetColorIndex(2, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func invoiceTree(t *testing.T) content.Tree {
	grey := &content.Color{R: 240, G: 240, B: 240}
	return content.Tree{
		Version: content.Version,
		Page: content.Page{
			Size:    "A4",
			Margins: content.Margins{Top: 15, Right: 10, Left: 10},
			Blocks: content.Nodes{
				content.Row{Height: 20, Columns: []content.Column{
					{Span: 3, Items: content.Nodes{content.Image{Source: dataURI(t, "image/png", png.Encode), Percent: 80}}},
					{Span: 3, Items: content.Nodes{content.Image{Source: dataURI(t, "image/gif", func(w io.Writer, m image.Image) error {
						return gif.Encode(w, m, nil)
					})}}},
					{Span: 6, Items: content.Nodes{
						content.Text{Value: "Acme Ltd", Style: content.Style{Size: 14, Bold: true}},
						content.Text{Value: "INVOICE", Style: content.Style{Size: 18, Bold: true, Align: content.AlignRight}},
					}},
				}},
				content.Line{},
				content.Table{
					Widths:     []int{6, 2, 2, 2},
					Header:     []content.Cell{{Text: "Item", Style: content.Style{Bold: true}}, {Text: "Qty"}, {Text: "Price"}, {Text: "Total"}},
					Rows:       [][]content.Cell{{{Text: "Pen"}, {Text: "2"}, {Text: "$1.00"}, {Text: "$2.00"}}, {{Text: "Ink"}, {Text: "1"}, {Text: "$3.00"}, {Text: "$3.00"}}},
					HeaderFill: grey,
					StripeFill: grey,
					Border:     true,
				},
				content.Spacer{Height: 5},
				content.Text{Value: "Thank you for your business!", Style: content.Style{Italic: true, Align: content.AlignCenter}},
			},
		},
	}
}

func TestMarotoRenderer_RendersValidPDF(t *testing.T) {
	r := NewMarotoRenderer(nil, true)

	out, err := Collect(context.Background(), r, invoiceTree(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestMarotoRenderer_SkipsImagesItCannotEmbed(t *testing.T) {
	svg := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	tree := content.Tree{Page: content.Page{Blocks: content.Nodes{
		content.Row{Columns: []content.Column{
			{Span: 4, Items: content.Nodes{content.Image{Source: svg, Height: 20}}},
			{Span: 4, Items: content.Nodes{content.Image{Source: "not-a-data-uri"}}},
			{Span: 4, Items: content.Nodes{content.Text{Value: "Acme Ltd"}}},
		}},
	}}}

	out, err := Collect(context.Background(), NewMarotoRenderer(nil, true), tree)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestMarotoRenderer_SameTreeSameBytes(t *testing.T) {
	created := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	tree := content.Tree{Page: content.Page{
		Size:      "A4",
		CreatedAt: &created,
		Blocks: content.Nodes{
			content.Row{Height: 20, Columns: []content.Column{
				{Span: 4, Items: content.Nodes{content.Image{Source: dataURI(t, "image/png", png.Encode)}}},
				{Span: 8, Items: content.Nodes{content.Text{Value: "TAX INVOICE", Style: content.Style{Bold: true}}}},
			}},
			content.Table{
				Widths: []int{8, 4},
				Header: []content.Cell{{Text: "Item", Style: content.Style{Bold: true}}, {Text: "Amount"}},
				Rows:   [][]content.Cell{{{Text: "Kurta", Style: content.Style{Italic: true}}, {Text: "₹1,230.00"}}},
			},
		},
	}}
	r := NewMarotoRenderer(nil, false)

	first, err := Collect(context.Background(), r, tree)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	second, err := Collect(context.Background(), r, tree)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
	assert.Contains(t, string(first), "D:20240305103000")
}

func TestMarotoRenderer_CurrencySymbolsSurvive(t *testing.T) {
	tree := content.Tree{Page: content.Page{Blocks: content.Nodes{
		content.Table{
			Widths: []int{6, 6},
			Rows: [][]content.Cell{
				{{Text: "Grand Total"}, {Text: "₹1,23,456.00"}},
				{{Text: "Shipping"}, {Text: "€12.50"}},
			},
		},
	}}}

	out, err := Collect(context.Background(), NewMarotoRenderer(nil, false), tree)
	require.NoError(t, err)

	dir := t.TempDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	require.NoError(t, api.ExtractContent(bytes.NewReader(out), dir, "invoice.pdf", nil, conf))
	page, err := os.ReadFile(filepath.Join(dir, "invoice_Content_page_1.txt"))
	require.NoError(t, err)

	assert.Contains(t, string(page), "INR 1,23,456.00")
	assert.NotContains(t, string(page), ".1,23,456.00")
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Rs ₹1,230.00", want: "Rs INR 1,230.00"},
		{in: "-₹5.00", want: "-INR 5.00"},
		{in: "€10.00 £3 ¥7", want: "€10.00 £3 ¥7"},
		{in: "Café – “quoted”", want: "Café – “quoted”"},
		{in: "अ ok", want: "? ok"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, printable(tt.in), tt.in)
	}
}

func TestMarotoRenderer_TableWithoutColumnsFails(t *testing.T) {
	tree := content.Tree{Page: content.Page{Blocks: content.Nodes{content.Table{}}}}

	var buf bytes.Buffer
	err := NewMarotoRenderer(nil, false).Render(context.Background(), tree, &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
