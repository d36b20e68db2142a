package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoveKind classifies an accounting document
type MoveKind string

const (
	MoveKindInvoice MoveKind = "invoice"
	MoveKindRefund  MoveKind = "refund"
)

// FinvoiceVersion is the schema version this toolkit targets by default
const FinvoiceVersion = "3.0"

// Invoice is the normalized representation of one Finvoice document.
// It is built once per parse and owns no persistent state.
type Invoice struct {
	Number     string   `json:"number"`
	Ref        string   `json:"ref,omitempty"`
	TypeCode   string   `json:"type_code"`
	TypeText   string   `json:"type_text,omitempty"`
	OriginCode string   `json:"origin_code,omitempty"`
	Kind       MoveKind `json:"kind"`
	Version    string   `json:"version"`

	Date     time.Time `json:"date"`
	DueDate  time.Time `json:"due_date,omitempty"`
	Currency string    `json:"currency,omitempty"`

	Seller Party `json:"seller"`
	Buyer  Party `json:"buyer"`

	Lines []InvoiceLine `json:"lines"`

	AmountUntaxed decimal.Decimal `json:"amount_untaxed"`
	AmountTax     decimal.Decimal `json:"amount_tax"`
	AmountTotal   decimal.Decimal `json:"amount_total"`

	// FreeText carries InvoiceFreeText and PaymentTermsFreeText joined by newlines
	FreeText string `json:"free_text,omitempty"`

	// SellersBuyerIdentifier is kept because real-world senders misuse it
	// as a payment reference
	SellersBuyerIdentifier string `json:"sellers_buyer_identifier,omitempty"`
	AgreementIdentifier    string `json:"agreement_identifier,omitempty"`

	OverdueFinePercent decimal.Decimal `json:"overdue_fine_percent,omitempty"`

	Payment PaymentInstruction `json:"payment"`

	Attachments []Attachment `json:"attachments,omitempty"`

	RawXML []byte `json:"-"`
}

// Party is a seller or buyer identity block
type Party struct {
	Name string `json:"name"`

	// VAT is the country-prefixed tax identifier, e.g. FI12345678
	VAT string `json:"vat,omitempty"`

	// VATDerived marks a VAT reconstructed from the business id.
	// The derivation is a best-effort correction and must not be
	// treated as authoritative.
	VATDerived bool `json:"vat_derived,omitempty"`

	// BusinessID is the Finnish company registry id (Y-tunnus), NNNNNNN-N
	BusinessID string `json:"business_id,omitempty"`

	Email   string  `json:"email,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}

// Address is a postal address block
type Address struct {
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	Zip         string `json:"zip,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	CountryName string `json:"country_name,omitempty"`
}

// InvoiceLine is one InvoiceRow
type InvoiceLine struct {
	ArticleID      string `json:"article_id,omitempty"`
	BuyerArticleID string `json:"buyer_article_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	EanCode        string `json:"ean_code,omitempty"`

	Quantity decimal.Decimal `json:"quantity"`
	UnitCode string          `json:"unit_code,omitempty"`

	UnitPrice decimal.Decimal `json:"unit_price"`
	// UnitPriceDerived marks a unit price computed from the row
	// subtotal rather than read from UnitPriceAmount
	UnitPriceDerived bool `json:"unit_price_derived,omitempty"`

	DiscountPercent decimal.Decimal `json:"discount_percent,omitempty"`
	VATRatePercent  decimal.Decimal `json:"vat_rate_percent"`

	// Subtotal is the VAT-excluded row amount
	Subtotal decimal.Decimal `json:"subtotal"`

	FreeText string `json:"free_text,omitempty"`

	// Note marks a comment row: no article name and no identifier
	Note bool `json:"note,omitempty"`
}

// PaymentInstruction is the EPI (Electronic Payment Initiation) block
type PaymentInstruction struct {
	IBAN            string          `json:"iban,omitempty"`
	BIC             string          `json:"bic,omitempty"`
	BeneficiaryName string          `json:"beneficiary_name,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	DueDate         time.Time       `json:"due_date,omitempty"`
	Amount          decimal.Decimal `json:"amount,omitempty"`
}

// Attachment is a decoded AttachmentDetails block
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Content  []byte `json:"content,omitempty"`
}

// IsComment reports whether the line is a non-priced note line
func (l *InvoiceLine) IsComment() bool {
	return l.Name == "" && l.ArticleID == "" && l.BuyerArticleID == ""
}

// Calculate fills the row subtotal from quantity, unit price and discount
// when it was not carried in the document
func (l *InvoiceLine) Calculate() {
	if !l.Subtotal.IsZero() {
		return
	}
	amount := l.Quantity.Mul(l.UnitPrice)
	if !l.DiscountPercent.IsZero() {
		hundred := decimal.NewFromInt(100)
		amount = amount.Sub(amount.Mul(l.DiscountPercent).Div(hundred))
	}
	l.Subtotal = amount.Round(2)
}

// VATAmount computes the row VAT from the subtotal and rate
func (l *InvoiceLine) VATAmount() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return l.Subtotal.Mul(l.VATRatePercent).Div(hundred).Round(2)
}

// CalculateTotals recomputes the invoice totals from its lines.
// Comment rows carry no amounts and are ignored.
func (inv *Invoice) CalculateTotals() {
	untaxed := decimal.Zero
	tax := decimal.Zero
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.Note {
			continue
		}
		line.Calculate()
		untaxed = untaxed.Add(line.Subtotal)
		tax = tax.Add(line.VATAmount())
	}
	inv.AmountUntaxed = untaxed
	inv.AmountTax = tax
	inv.AmountTotal = untaxed.Add(tax)
}

// PaymentReference returns the payment reference, falling back to
// SellersBuyerIdentifier which some senders incorrectly use as one
func (inv *Invoice) PaymentReference() string {
	if inv.Payment.Reference != "" {
		return inv.Payment.Reference
	}
	return inv.SellersBuyerIdentifier
}

// ExportFilename is the attachment name for a rendered document
func (inv *Invoice) ExportFilename() string {
	name := inv.Number
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			name = name[:i] + "_" + name[i+1:]
		}
	}
	return name + "_finvoice_3_0.xml"
}
