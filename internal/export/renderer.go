// Package export renders a normalized invoice as Finvoice 3.0 XML.
package export

import (
	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/format"
	"github.com/rezonia/finvoice-processor/internal/model"
)

// freeTextLimit is the schema limit for one free-text element. Longer
// text is wrapped into repeated elements, never truncated.
const freeTextLimit = 512

// Capabilities enumerates the optional invoice fields the caller's
// invoice model supports
type Capabilities struct {
	OverdueFinePercent  bool
	AgreementIdentifier bool
}

// Option configures a Renderer
type Option func(*Renderer)

// WithCapabilities declares the optional fields to render
func WithCapabilities(c Capabilities) Option {
	return func(r *Renderer) { r.caps = c }
}

// WithStrictValidation makes Render fail when the produced document
// does not validate. Off by default: the rendered document is logged
// and returned anyway, matching the permissive outgoing policy.
func WithStrictValidation(strict bool) Option {
	return func(r *Renderer) { r.strict = strict }
}

// WithLogger sets the operator-facing logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// Renderer produces schema-valid Finvoice XML from invoices
type Renderer struct {
	validator *schema.Validator
	caps      Capabilities
	strict    bool
	log       zerolog.Logger
}

// NewRenderer creates a renderer validating against the given validator
func NewRenderer(validator *schema.Validator, opts ...Option) *Renderer {
	r := &Renderer{
		validator: validator,
		log:       log.Logger.With().Str("component", "export").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces a UTF-8 Finvoice document with an XML declaration.
// The result is validated; in the default permissive mode a failed
// validation is logged, not returned.
func (r *Renderer) Render(inv *model.Invoice) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(finvoice.RootTag)
	version := inv.Version
	if version == "" {
		version = model.FinvoiceVersion
	}
	root.CreateAttr("Version", version)

	r.renderParty(root, "Seller", &inv.Seller)
	r.renderParty(root, "Buyer", &inv.Buyer)
	r.renderDetails(root, inv)
	for i := range inv.Lines {
		r.renderRow(root, &inv.Lines[i], inv.Currency)
	}
	r.renderEpi(root, inv)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}

	if result := r.validator.ValidateBytes(out); !result.Valid {
		r.log.Warn().Strs("violations", result.Violations).
			Msg("rendered document is invalid against the XML Schema Definition")
		r.log.Debug().Bytes("xml", out).Msg("invalid rendered document")
		if r.strict {
			return nil, result.Err()
		}
	}

	return out, nil
}

// Filename is the attachment name for the rendered document
func (r *Renderer) Filename(inv *model.Invoice) string {
	return inv.ExportFilename()
}

func (r *Renderer) renderParty(root *etree.Element, partyType string, p *model.Party) {
	pd := root.CreateElement(partyType + "PartyDetails")

	addText(pd, partyType+"PartyIdentifier", p.BusinessID)
	// OrganisationName is mandatory, emit it even when empty
	pd.CreateElement(partyType + "OrganisationName").SetText(p.Name)
	addText(pd, partyType+"OrganisationTaxCode", p.VAT)
	addText(pd, partyType+"PhoneNumberIdentifier", p.Phone)
	addText(pd, partyType+"EmailaddressIdentifier", p.Email)

	a := p.Address
	if a.Street == "" && a.City == "" && a.Zip == "" && a.CountryCode == "" {
		return
	}
	pad := pd.CreateElement(partyType + "PostalAddressDetails")
	addText(pad, partyType+"StreetName", a.Street)
	addText(pad, partyType+"TownName", a.City)
	addText(pad, partyType+"PostCodeIdentifier", a.Zip)
	addText(pad, "CountryCode", a.CountryCode)
	addText(pad, "CountryName", a.CountryName)
}

func (r *Renderer) renderDetails(root *etree.Element, inv *model.Invoice) {
	ind := root.CreateElement("InvoiceDetails")

	info := model.TypeCodeFor(inv.Kind)
	if inv.TypeCode != "" {
		info = model.TypeInfo{Code: inv.TypeCode, Label: model.TypeLabel(inv.TypeCode), OriginCode: inv.OriginCode}
	}
	ind.CreateElement("InvoiceTypeCode").SetText(info.Code)
	addText(ind, "InvoiceTypeText", info.Label)
	addText(ind, "OriginCode", info.OriginCode)
	ind.CreateElement("InvoiceNumber").SetText(inv.Number)

	date := ind.CreateElement("InvoiceDate")
	date.CreateAttr("Format", format.DateFormatCode)
	date.SetText(format.FormatDate(inv.Date))

	addText(ind, "SellerReferenceIdentifier", inv.Ref)

	if r.caps.AgreementIdentifier {
		addText(ind, "AgreementIdentifier", inv.AgreementIdentifier)
	} else if inv.Ref != "" {
		addText(ind, "AgreementIdentifier", inv.Ref)
	} else {
		addText(ind, "AgreementIdentifier", inv.Number)
	}

	addText(ind, "SellersBuyerIdentifier", inv.SellersBuyerIdentifier)

	addAmount(ind, "InvoiceTotalVatExcludedAmount", inv.AmountUntaxed, inv.Currency)
	addAmount(ind, "InvoiceTotalVatAmount", inv.AmountTax, inv.Currency)
	addAmount(ind, "InvoiceTotalVatIncludedAmount", inv.AmountTotal, inv.Currency)

	for _, chunk := range wrapText(inv.FreeText, freeTextLimit) {
		ind.CreateElement("InvoiceFreeText").SetText(chunk)
	}

	hasFine := r.caps.OverdueFinePercent && !inv.OverdueFinePercent.IsZero()
	if !inv.DueDate.IsZero() || hasFine {
		ptd := ind.CreateElement("PaymentTermsDetails")
		if !inv.DueDate.IsZero() {
			due := ptd.CreateElement("InvoiceDueDate")
			due.CreateAttr("Format", format.DateFormatCode)
			due.SetText(format.FormatDate(inv.DueDate))
		}
		if hasFine {
			fine := ptd.CreateElement("PaymentOverDueFineDetails")
			fine.CreateElement("PaymentOverDueFinePercent").SetText(format.FormatAmount(inv.OverdueFinePercent, 2))
		}
	}
}

func (r *Renderer) renderRow(root *etree.Element, line *model.InvoiceLine, currency string) {
	row := root.CreateElement("InvoiceRow")

	if line.Note {
		// Comment row: free text only, no priced content
		for _, chunk := range wrapText(joinTexts(line.Description, line.FreeText), freeTextLimit) {
			row.CreateElement("RowFreeText").SetText(chunk)
		}
		return
	}

	addText(row, "ArticleIdentifier", line.ArticleID)
	addText(row, "BuyerArticleIdentifier", line.BuyerArticleID)
	addText(row, "EanCode", line.EanCode)
	addText(row, "ArticleName", line.Name)
	addText(row, "ArticleDescription", line.Description)

	qty := row.CreateElement("InvoicedQuantity")
	if line.UnitCode != "" {
		qty.CreateAttr("QuantityUnitCode", line.UnitCode)
	}
	qty.SetText(format.FormatAmount(line.Quantity, 2))

	addAmount(row, "UnitPriceAmount", line.UnitPrice, currency)

	for _, chunk := range wrapText(line.FreeText, freeTextLimit) {
		row.CreateElement("RowFreeText").SetText(chunk)
	}

	if !line.DiscountPercent.IsZero() {
		addText(row, "RowDiscountPercent", format.FormatAmount(line.DiscountPercent, 2))
	}
	addText(row, "RowVatRatePercent", format.FormatAmount(line.VATRatePercent, 2))
	addAmount(row, "RowVatAmount", line.VATAmount(), currency)
	addAmount(row, "RowVatExcludedAmount", line.Subtotal, currency)
}

func (r *Renderer) renderEpi(root *etree.Element, inv *model.Invoice) {
	p := inv.Payment
	if p.IBAN == "" && p.Reference == "" {
		return
	}

	ede := root.CreateElement("EpiDetails")

	eid := ede.CreateElement("EpiIdentificationDetails")
	date := eid.CreateElement("EpiDate")
	date.CreateAttr("Format", format.DateFormatCode)
	date.SetText(format.FormatDate(inv.Date))
	addText(eid, "EpiReference", p.Reference)

	epd := ede.CreateElement("EpiPartyDetails")
	if p.BIC != "" {
		bfi := epd.CreateElement("EpiBfiPartyDetails")
		id := bfi.CreateElement("EpiBfiIdentifier")
		id.CreateAttr("IdentificationSchemeName", "BIC")
		id.SetText(p.BIC)
	}
	ben := epd.CreateElement("EpiBeneficiaryPartyDetails")
	name := p.BeneficiaryName
	if name == "" {
		name = inv.Seller.Name
	}
	addText(ben, "EpiNameText", name)
	if p.IBAN != "" {
		acc := ben.CreateElement("EpiAccountID")
		acc.CreateAttr("IdentificationSchemeName", "IBAN")
		acc.SetText(p.IBAN)
	}

	pid := ede.CreateElement("EpiPaymentInstructionDetails")
	addText(pid, "EpiRemittanceInfoIdentifier", p.Reference)
	amount := p.Amount
	if amount.IsZero() {
		amount = inv.AmountTotal
	}
	addAmount(pid, "EpiInstructedAmount", amount, inv.Currency)
	due := p.DueDate
	if due.IsZero() {
		due = inv.DueDate
	}
	if !due.IsZero() {
		d := pid.CreateElement("EpiDateOptionDate")
		d.CreateAttr("Format", format.DateFormatCode)
		d.SetText(format.FormatDate(due))
	}
}

func addText(parent *etree.Element, tag, text string) {
	if text == "" {
		return
	}
	parent.CreateElement(tag).SetText(text)
}

func addAmount(parent *etree.Element, tag string, amount decimal.Decimal, currency string) {
	el := parent.CreateElement(tag)
	if currency != "" {
		el.CreateAttr("AmountCurrencyIdentifier", currency)
	}
	el.SetText(format.FormatAmount(amount, 2))
}

// wrapText splits text into rune-safe chunks of at most limit runes
func wrapText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}

func joinTexts(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
