package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"invoice-service/internal/assets"
	"invoice-service/internal/content"
)

const (
	defaultTextSize  = 9
	defaultRowHeight = 7
	// lineFactor converts a font size in points to a text line height in mm.
	lineFactor = 0.5
	gridSize   = 12
)

// pdfEpoch pins the metadata dates maroto does not expose so output bytes
// depend only on the tree.
var pdfEpoch = time.Unix(0, 0).UTC()

var initPDF sync.Once

func setupPDF() {
	api.DisableConfigDir()
	gofpdf.SetDefaultCatalogSort(true)
	gofpdf.SetDefaultCreationDate(pdfEpoch)
	gofpdf.SetDefaultModificationDate(pdfEpoch)
}

// MarotoRenderer renders content trees with maroto and validates the result
// with pdfcpu before writing it.
type MarotoRenderer struct {
	logger   *logrus.Entry
	validate bool
}

// NewMarotoRenderer creates a renderer. When validate is true the generated
// PDF is checked with pdfcpu in relaxed mode.
func NewMarotoRenderer(logger *logrus.Entry, validate bool) *MarotoRenderer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	initPDF.Do(setupPDF)
	return &MarotoRenderer{
		logger:   logger.WithField("component", "pdf_renderer"),
		validate: validate,
	}
}

// Render implements Renderer.
func (r *MarotoRenderer) Render(ctx context.Context, tree content.Tree, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := maroto.New(buildConfig(tree.Page))

	for i, block := range tree.Page.Blocks {
		if err := r.addBlock(m, block); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	pdf := doc.GetBytes()

	if r.validate {
		if err := validatePDF(pdf); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = w.Write(pdf)
	return err
}

func buildConfig(page content.Page) *entity.Config {
	b := config.NewBuilder().
		WithPageNumber().
		WithPageSize(pageSize(page.Size))
	if page.Margins.Left > 0 {
		b = b.WithLeftMargin(page.Margins.Left)
	}
	if page.Margins.Top > 0 {
		b = b.WithTopMargin(page.Margins.Top)
	}
	if page.Margins.Right > 0 {
		b = b.WithRightMargin(page.Margins.Right)
	}
	if page.Margins.Bottom > 0 {
		b = b.WithBottomMargin(page.Margins.Bottom)
	}
	if page.CreatedAt != nil && !page.CreatedAt.IsZero() {
		b = b.WithCreationDate(page.CreatedAt.UTC())
	}
	return b.Build()
}

func pageSize(size string) pagesize.Type {
	switch strings.ToLower(size) {
	case "letter":
		return pagesize.Letter
	case "legal":
		return pagesize.Legal
	case "a5":
		return pagesize.A5
	default:
		return pagesize.A4
	}
}

func (r *MarotoRenderer) addBlock(m core.Maroto, node content.Node) error {
	switch b := node.(type) {
	case content.Row:
		cols := make([]core.Col, 0, len(b.Columns))
		height := b.Height
		for _, c := range b.Columns {
			mc, h, err := r.column(c)
			if err != nil {
				return err
			}
			cols = append(cols, mc)
			if h > height {
				height = h
			}
		}
		m.AddRow(height, cols...)
	case content.Table:
		return r.addTable(m, b)
	case content.Spacer:
		m.AddRow(b.Height)
	case content.Line:
		m.AddRow(5, line.NewCol(gridSize))
	case content.Text:
		m.AddRow(lineHeight(b.Style), col.New(gridSize).Add(text.New(printable(b.Value), textProps(b.Style, 0))))
	default:
		return fmt.Errorf("unsupported block %T", node)
	}
	return nil
}

// column stacks text and images vertically and returns the height it needs.
func (r *MarotoRenderer) column(c content.Column) (core.Col, float64, error) {
	span := c.Span
	if span <= 0 || span > gridSize {
		span = gridSize
	}
	mc := col.New(span)

	top := 0.0
	for _, item := range c.Items {
		switch v := item.(type) {
		case content.Text:
			mc.Add(text.New(printable(v.Value), textProps(v.Style, top)))
			top += lineHeight(v.Style)
		case content.Image:
			h := v.Height
			if h <= 0 {
				h = 20
			}
			if img, err := imageComponent(v); err != nil {
				r.logger.WithError(err).Warn("Skipping image that cannot be embedded")
			} else {
				mc.Add(img)
			}
			top += h
		case content.Spacer:
			top += v.Height
		default:
			return nil, 0, fmt.Errorf("unsupported column item %T", item)
		}
	}
	return mc, top, nil
}

func (r *MarotoRenderer) addTable(m core.Maroto, t content.Table) error {
	if len(t.Widths) == 0 {
		return fmt.Errorf("table without columns")
	}
	height := t.RowHeight
	if height <= 0 {
		height = defaultRowHeight
	}

	if len(t.Header) > 0 {
		m.AddRow(height, r.tableCells(t, t.Header, cellStyle(t, t.HeaderFill))...)
	}
	for i, cells := range t.Rows {
		m.AddRow(height, r.tableCells(t, cells, cellStyle(t, t.FillFor(i)))...)
	}
	return nil
}

func (r *MarotoRenderer) tableCells(t content.Table, cells []content.Cell, style *props.Cell) []core.Col {
	cols := make([]core.Col, 0, len(t.Widths))
	for i, width := range t.Widths {
		c := col.New(width)
		if i < len(cells) {
			p := textProps(cells[i].Style, 1.5)
			p.Left = 1
			p.Right = 1
			c.Add(text.New(printable(cells[i].Text), p))
		}
		if style != nil {
			c.WithStyle(style)
		}
		cols = append(cols, c)
	}
	return cols
}

func cellStyle(t content.Table, fill *content.Color) *props.Cell {
	if fill == nil && !t.Border {
		return nil
	}
	style := &props.Cell{}
	if fill != nil {
		style.BackgroundColor = toColor(fill)
	}
	if t.Border {
		style.BorderType = border.Full
		style.BorderColor = &props.Color{Red: 200, Green: 200, Blue: 200}
		style.BorderThickness = 0.1
	}
	return style
}

func textProps(s content.Style, top float64) props.Text {
	size := s.Size
	if size <= 0 {
		size = defaultTextSize
	}
	p := props.Text{
		Size:  size,
		Top:   top,
		Style: fontStyle(s),
		Align: textAlign(s.Align),
	}
	if s.Color != nil {
		p.Color = toColor(s.Color)
	}
	return p
}

// currencySigns maps symbols outside the core fonts' code page to ISO codes.
var currencySigns = strings.NewReplacer(
	"₹", "INR ",
	"₽", "RUB ",
	"₩", "KRW ",
	"₱", "PHP ",
	"₺", "TRY ",
	"₫", "VND ",
	"₪", "ILS ",
	"₦", "NGN ",
	"₴", "UAH ",
	"₸", "KZT ",
)

// printable rewrites text for maroto's built-in fonts, which only cover
// Windows-1252. Currency signs become their ISO codes and any other
// unencodable rune becomes "?".
func printable(s string) string {
	s = currencySigns.Replace(s)
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf {
			return r
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			return r
		}
		return '?'
	}, s)
}

func lineHeight(s content.Style) float64 {
	size := s.Size
	if size <= 0 {
		size = defaultTextSize
	}
	return size * lineFactor
}

func fontStyle(s content.Style) fontstyle.Type {
	switch {
	case s.Bold && s.Italic:
		return fontstyle.BoldItalic
	case s.Bold:
		return fontstyle.Bold
	case s.Italic:
		return fontstyle.Italic
	default:
		return fontstyle.Normal
	}
}

func textAlign(a string) align.Type {
	switch a {
	case content.AlignCenter:
		return align.Center
	case content.AlignRight:
		return align.Right
	default:
		return align.Left
	}
}

func toColor(c *content.Color) *props.Color {
	return &props.Color{Red: c.R, Green: c.G, Blue: c.B}
}

// imageComponent decodes an inline image. Formats other than PNG and JPEG are
// re-encoded as PNG.
func imageComponent(img content.Image) (core.Component, error) {
	mediaType, data, err := assets.ParseDataURI(img.Source)
	if err != nil {
		return nil, err
	}

	rect := props.Rect{Center: true, Percent: img.Percent}
	if rect.Percent <= 0 {
		rect.Percent = 100
	}

	switch mediaType {
	case "image/png":
		return image.NewFromBytes(data, extension.Png, rect), nil
	case "image/jpeg", "image/jpg":
		return image.NewFromBytes(data, extension.Jpg, rect), nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", mediaType, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return image.NewFromBytes(buf.Bytes(), extension.Png, rect), nil
}

func validatePDF(pdf []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(pdf), conf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
