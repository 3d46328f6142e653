package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"invoice-service/internal/assets"
	"invoice-service/internal/content"
	"invoice-service/internal/gst"
	"invoice-service/internal/models"
	"invoice-service/internal/money"
	"invoice-service/internal/words"
)

// Literals printed on invoices.
const (
	NoBillingAddress    = "No billing address provided"
	NoShippingAddress   = "No shipping address provided"
	ThankYouLine        = "Thank you for your business!"
	DefaultSignatory    = "Authorized Signatory"
	DefaultTitle        = "INVOICE"
	GSTTitle            = "TAX INVOICE"
	defaultDateLayout   = "Jan 02, 2006"
	indianDateLayout    = "02/01/2006"
	defaultCurrencyCode = "USD"
	gstCurrencyCode     = "INR"
)

var (
	headerFill = &content.Color{R: 230, G: 230, B: 230}
	stripeFill = &content.Color{R: 248, G: 248, B: 248}
	mutedText  = &content.Color{R: 110, G: 110, B: 110}
)

// InvoiceBuilder turns an order, an invoice and the tenant configuration into
// a content tree. Apart from the logo fetch it is a pure function of its inputs.
type InvoiceBuilder struct {
	resolver     assets.Resolver
	defaultMoney money.Formatter
	gstMoney     money.Formatter
	logger       *logrus.Entry
}

// BuilderOption customizes an InvoiceBuilder
type BuilderOption func(*InvoiceBuilder)

// WithFormatters replaces the locale formatters of both templates
func WithFormatters(defaultTemplate, gstTemplate money.Formatter) BuilderOption {
	return func(b *InvoiceBuilder) {
		b.defaultMoney = defaultTemplate
		b.gstMoney = gstTemplate
	}
}

// NewInvoiceBuilder creates a builder. resolver may be nil, in which case
// logos are never embedded.
func NewInvoiceBuilder(resolver assets.Resolver, logger *logrus.Logger, opts ...BuilderOption) *InvoiceBuilder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &InvoiceBuilder{
		resolver:     resolver,
		defaultMoney: money.NewLocaleFormatter(money.LocaleUS),
		gstMoney:     money.NewLocaleFormatter(money.LocaleIndia),
		logger:       logger.WithField("component", "invoice_builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the invoice's stored content when present. Otherwise it builds
// a fresh tree; persisting it is the caller's job.
func (b *InvoiceBuilder) Build(ctx context.Context, order *models.OrderSnapshot, invoice *models.Invoice, cfg *models.InvoiceConfig) (content.Tree, error) {
	if invoice == nil {
		return content.Tree{}, errors.New("invoice is required")
	}
	if invoice.HasContent() {
		return content.Unmarshal(invoice.PDFContent)
	}
	if order == nil {
		return content.Tree{}, errors.New("order is required")
	}
	if cfg == nil {
		cfg = &models.InvoiceConfig{}
	}

	if cfg.IsGST() {
		return b.buildGST(ctx, order, invoice, cfg), nil
	}
	return b.buildDefault(ctx, order, invoice, cfg), nil
}

// invoiceDoc accumulates page blocks for one template.
type invoiceDoc struct {
	order    *models.OrderSnapshot
	invoice  *models.Invoice
	cfg      *models.InvoiceConfig
	format   money.Formatter
	currency string
	blocks   content.Nodes
}

func (d *invoiceDoc) add(nodes ...content.Node) {
	d.blocks = append(d.blocks, nodes...)
}

func (d *invoiceDoc) amount(v float64) string {
	return d.format.Format(v, d.currency)
}

func (d *invoiceDoc) tree() content.Tree {
	page := content.Page{
		Size:    "A4",
		Margins: content.Margins{Top: 15, Right: 10, Bottom: 15, Left: 10},
		Blocks:  d.blocks,
	}
	if !d.invoice.CreatedAt.IsZero() {
		created := d.invoice.CreatedAt.UTC().Truncate(time.Second)
		page.CreatedAt = &created
	}
	return content.Tree{Version: content.Version, Page: page}
}

func (b *InvoiceBuilder) newDoc(order *models.OrderSnapshot, invoice *models.Invoice, cfg *models.InvoiceConfig, f money.Formatter, fallbackCurrency string) *invoiceDoc {
	currency := strings.TrimSpace(order.CurrencyCode)
	if currency == "" {
		currency = fallbackCurrency
	}
	return &invoiceDoc{order: order, invoice: invoice, cfg: cfg, format: f, currency: currency}
}

func (b *InvoiceBuilder) buildDefault(ctx context.Context, order *models.OrderSnapshot, invoice *models.Invoice, cfg *models.InvoiceConfig) content.Tree {
	d := b.newDoc(order, invoice, cfg, b.defaultMoney, defaultCurrencyCode)

	d.add(b.header(ctx, cfg, DefaultTitle), content.Line{})

	d.add(content.Row{Columns: []content.Column{
		column(6,
			plain(cfg.CompanyPhone),
			plain(cfg.CompanyEmail),
		),
		column(6,
			right("Invoice: "+invoice.Number(), false),
			right("Invoice Date: "+invoice.CreatedAt.UTC().Format(defaultDateLayout), false),
			right("Order: #"+orderNumber(order), false),
			right("Order Date: "+order.CreatedAt.UTC().Format(defaultDateLayout), false),
		),
	}})
	d.add(content.Spacer{Height: 5})
	d.add(addressRow(order, false))
	d.add(content.Spacer{Height: 5})

	table := itemsTable([]int{6, 2, 2, 2}, "Item", "Quantity", "Unit Price", "Total")
	for _, item := range order.Items {
		table.Rows = append(table.Rows, []content.Cell{
			{Text: item.Title},
			{Text: fmt.Sprintf("%d", item.Quantity), Style: content.Style{Align: content.AlignCenter}},
			{Text: d.amount(item.UnitPrice), Style: content.Style{Align: content.AlignRight}},
			{Text: d.amount(item.Total), Style: content.Style{Align: content.AlignRight}},
		})
	}
	d.add(table, content.Spacer{Height: 3})

	d.add(
		totalRow("Subtotal:", d.amount(order.Subtotal), false),
		totalRow("Tax:", d.amount(order.TaxTotal), false),
		totalRow("Shipping:", d.amount(order.ShippingAmount()), false),
		totalRow("Discount:", d.amount(order.DiscountTotal), false),
		totalRow("Total:", d.amount(order.Total), true),
	)

	b.closing(d)
	return d.tree()
}

func (b *InvoiceBuilder) buildGST(ctx context.Context, order *models.OrderSnapshot, invoice *models.Invoice, cfg *models.InvoiceConfig) content.Tree {
	d := b.newDoc(order, invoice, cfg, b.gstMoney, gstCurrencyCode)
	customerState := order.CustomerStateCode()
	split := gst.Apportion(order.TaxTotal, cfg.StateCode, customerState)

	d.add(b.header(ctx, cfg, GSTTitle), content.Line{})

	seller := []content.Node{
		bold(cfg.DisplayCompanyName()),
		plain("GSTIN: " + cfg.GSTIN),
		plain(fmt.Sprintf("State: %s (Code: %s)", cfg.StateName, cfg.StateCode)),
	}
	if cfg.PAN != "" {
		seller = append(seller, plain("PAN: "+cfg.PAN))
	}
	seller = append(seller, plain(cfg.CompanyPhone), plain(cfg.CompanyEmail))

	supply := "Inter-State"
	if !split.Interstate {
		supply = "Intra-State"
	}
	d.add(content.Row{Columns: []content.Column{
		column(6, seller...),
		column(6,
			right("Invoice No: "+invoice.Number(), true),
			right("Invoice Date: "+invoice.CreatedAt.UTC().Format(indianDateLayout), false),
			right("Order No: "+orderNumber(order), false),
			right("Order Date: "+order.CreatedAt.UTC().Format(indianDateLayout), false),
			right("Place of Supply: "+placeOfSupply(customerState), false),
			right("Supply Type: "+supply, false),
		),
	}})
	d.add(content.Spacer{Height: 5})
	d.add(addressRow(order, true))
	d.add(content.Spacer{Height: 5})

	table := itemsTable([]int{1, 4, 1, 2, 1, 3}, "#", "Item", "Qty", "Rate", "GST", "Amount")
	for i, item := range order.Items {
		table.Rows = append(table.Rows, []content.Cell{
			{Text: fmt.Sprintf("%d", i+1), Style: content.Style{Align: content.AlignCenter}},
			{Text: item.Title},
			{Text: fmt.Sprintf("%d", item.Quantity), Style: content.Style{Align: content.AlignCenter}},
			{Text: d.amount(item.UnitPrice), Style: content.Style{Align: content.AlignRight}},
			{Text: gst.ItemTaxRate(item.Subtotal, item.Total) + "%", Style: content.Style{Align: content.AlignCenter}},
			{Text: d.amount(item.Total), Style: content.Style{Align: content.AlignRight}},
		})
	}
	d.add(table, content.Spacer{Height: 3})

	d.add(totalRow("Subtotal:", d.amount(order.Subtotal), false))
	if split.Interstate {
		d.add(totalRow("IGST:", d.amount(split.IGST), false))
	} else {
		d.add(
			totalRow("CGST:", d.amount(split.CGST), false),
			totalRow("SGST:", d.amount(split.SGST), false),
		)
	}
	d.add(
		totalRow("Shipping:", d.amount(order.ShippingAmount()), false),
		totalRow("Discount:", d.amount(order.DiscountTotal), false),
		totalRow("Total:", d.amount(order.Total), true),
	)

	d.add(content.Spacer{Height: 4})
	d.add(content.Row{Columns: []content.Column{
		column(12,
			bold("Amount in Words:"),
			plain(words.ToWords(order.Total)+" Only"),
		),
	}})

	signatory := strings.TrimSpace(cfg.AuthorizedSignatory)
	if signatory == "" {
		signatory = DefaultSignatory
	}
	d.add(content.Spacer{Height: 6})
	d.add(content.Row{Columns: []content.Column{
		column(7,
			bold("Terms & Conditions"),
			small("1. Goods once sold will not be taken back or exchanged."),
			small("2. All disputes are subject to the jurisdiction of the seller's state."),
			small("3. This is a computer generated invoice."),
		),
		column(5,
			right("For "+cfg.DisplayCompanyName(), true),
			content.Spacer{Height: 10},
			right(signatory, false),
		),
	}})

	b.closing(d)
	return d.tree()
}

// header renders the optional logo, the company name and the document title.
func (b *InvoiceBuilder) header(ctx context.Context, cfg *models.InvoiceConfig, title string) content.Row {
	name := content.Text{Value: cfg.DisplayCompanyName(), Style: content.Style{Size: 16, Bold: true}}
	heading := content.Text{Value: title, Style: content.Style{Size: 20, Bold: true, Align: content.AlignRight}}

	if logo := b.logo(ctx, cfg.LogoURL()); logo != nil {
		return content.Row{Height: 25, Columns: []content.Column{
			column(3, *logo),
			column(5, name),
			column(4, heading),
		}}
	}
	return content.Row{Height: 20, Columns: []content.Column{
		column(6, name),
		column(6, heading),
	}}
}

// logo resolves the company logo. Failures only drop the logo.
func (b *InvoiceBuilder) logo(ctx context.Context, url string) *content.Image {
	if url == "" || b.resolver == nil {
		return nil
	}
	img, err := b.resolver.Resolve(ctx, url)
	if err != nil {
		b.logger.WithError(err).WithField("logo_url", url).Warn("Failed to load company logo, continuing without it")
		return nil
	}
	return &content.Image{Source: img.DataURI(), Height: 20, Percent: 80}
}

func (b *InvoiceBuilder) closing(d *invoiceDoc) {
	if notes := strings.TrimSpace(d.cfg.NotesText()); notes != "" {
		d.add(content.Spacer{Height: 6})
		d.add(content.Row{Columns: []content.Column{
			column(12, bold("Notes"), plain(notes)),
		}})
	}
	d.add(content.Spacer{Height: 8})
	d.add(content.Text{Value: ThankYouLine, Style: content.Style{Size: 10, Italic: true, Align: content.AlignCenter}})
}

func addressRow(order *models.OrderSnapshot, withStateCode bool) content.Row {
	return content.Row{Columns: []content.Column{
		addressColumn("Bill To", order.BillingAddress, NoBillingAddress, withStateCode),
		addressColumn("Ship To", order.ShippingAddress, NoShippingAddress, withStateCode),
	}}
}

func addressColumn(label string, addr *models.Address, fallback string, withStateCode bool) content.Column {
	items := []content.Node{bold(label)}
	lines := addr.Lines()
	if len(lines) == 0 {
		items = append(items, content.Text{Value: fallback, Style: content.Style{Italic: true, Color: mutedText}})
		return column(6, items...)
	}
	for _, line := range lines {
		items = append(items, plain(line))
	}
	if withStateCode && strings.TrimSpace(addr.StateCode) != "" {
		items = append(items, plain("State Code: "+strings.TrimSpace(addr.StateCode)))
	}
	return column(6, items...)
}

func itemsTable(widths []int, headers ...string) content.Table {
	t := content.Table{
		Widths:     widths,
		HeaderFill: headerFill,
		StripeFill: stripeFill,
		Border:     true,
		RowHeight:  7,
	}
	for _, h := range headers {
		t.Header = append(t.Header, content.Cell{Text: h, Style: content.Style{Bold: true}})
	}
	return t
}

func totalRow(label, value string, emphasize bool) content.Row {
	size := 9.0
	if emphasize {
		size = 11
	}
	style := content.Style{Size: size, Bold: emphasize, Align: content.AlignRight}
	return content.Row{Height: 6, Columns: []content.Column{
		column(8),
		column(2, content.Text{Value: label, Style: style}),
		column(2, content.Text{Value: value, Style: style}),
	}}
}

func orderNumber(order *models.OrderSnapshot) string {
	return fmt.Sprintf("%06d", order.DisplayID)
}

func placeOfSupply(stateCode string) string {
	if stateCode == "" {
		return "-"
	}
	return stateCode
}

// column drops empty text so optional fields leave no blank lines.
func column(span int, items ...content.Node) content.Column {
	nodes := make(content.Nodes, 0, len(items))
	for _, item := range items {
		if t, ok := item.(content.Text); ok && strings.TrimSpace(t.Value) == "" {
			continue
		}
		nodes = append(nodes, item)
	}
	return content.Column{Span: span, Items: nodes}
}

func plain(s string) content.Text {
	return content.Text{Value: s, Style: content.Style{Size: 9}}
}

func small(s string) content.Text {
	return content.Text{Value: s, Style: content.Style{Size: 7}}
}

func bold(s string) content.Text {
	return content.Text{Value: s, Style: content.Style{Size: 10, Bold: true}}
}

func right(s string, strong bool) content.Text {
	return content.Text{Value: s, Style: content.Style{Size: 9, Bold: strong, Align: content.AlignRight}}
}
