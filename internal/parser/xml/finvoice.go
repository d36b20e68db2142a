package xml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/format"
	"github.com/rezonia/finvoice-processor/internal/model"
)

var decimalOne = decimal.NewFromInt(1)

// FinvoiceAdapter parses bare Finvoice 3.0 documents
type FinvoiceAdapter struct{}

// NewFinvoiceAdapter creates a new Finvoice adapter
func NewFinvoiceAdapter() *FinvoiceAdapter {
	return &FinvoiceAdapter{}
}

// Name returns the adapter name
func (a *FinvoiceAdapter) Name() string {
	return "finvoice"
}

// CanParse checks if content is a bare Finvoice document
func (a *FinvoiceAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("<Finvoice"))
}

// Parse parses Finvoice XML into an Invoice
func (a *FinvoiceAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("content", "failed to read content", err)
	}

	doc, err := finvoice.Parse(content)
	if err != nil {
		return nil, err
	}

	return buildInvoice(doc, content)
}

// buildInvoice maps a parsed Finvoice tree into the normalized invoice
func buildInvoice(doc *finvoice.Document, rawXML []byte) (*model.Invoice, error) {
	typeCode := doc.Text("./InvoiceDetails/InvoiceTypeCode")
	info, err := model.Classify(typeCode)
	if err != nil {
		return nil, err
	}

	inv := &model.Invoice{
		TypeCode:   info.Code,
		TypeText:   info.Label,
		OriginCode: finvoice.TextFrom(doc.Root(), "./InvoiceDetails/OriginCode"),
		Kind:       info.Kind,
		Version:    doc.Version(),
		Number:     doc.Text("./InvoiceDetails/InvoiceNumber"),
		RawXML:     rawXML,
	}
	if inv.OriginCode == "" {
		inv.OriginCode = info.OriginCode
	}

	// Reference defaults to the invoice number when the seller gave none
	inv.Ref = doc.Text("./InvoiceDetails/SellerReferenceIdentifier")
	if inv.Ref == "" {
		inv.Ref = inv.Number
	}

	inv.Date, err = format.ParseDate(
		doc.Text("./InvoiceDetails/InvoiceDate"),
		doc.Attr("./InvoiceDetails/InvoiceDate", "Format"),
	)
	if err != nil {
		return nil, err
	}

	if due := doc.Text("./InvoiceDetails/PaymentTermsDetails/InvoiceDueDate"); due != "" {
		inv.DueDate, err = format.ParseDate(due,
			doc.Attr("./InvoiceDetails/PaymentTermsDetails/InvoiceDueDate", "Format"))
		if err != nil {
			return nil, err
		}
	}

	inv.Currency = doc.Attr("./InvoiceDetails/InvoiceTotalVatExcludedAmount", "AmountCurrencyIdentifier")

	if inv.AmountUntaxed, err = format.ParseAmount(doc.Text("./InvoiceDetails/InvoiceTotalVatExcludedAmount")); err != nil {
		return nil, err
	}
	if inv.AmountTax, err = format.ParseAmount(doc.Text("./InvoiceDetails/InvoiceTotalVatAmount")); err != nil {
		return nil, err
	}
	if inv.AmountTotal, err = format.ParseAmount(doc.Text("./InvoiceDetails/InvoiceTotalVatIncludedAmount")); err != nil {
		return nil, err
	}

	inv.Seller = resolveParty(doc.Root(), "Seller")
	inv.Buyer = resolveParty(doc.Root(), "Buyer")

	inv.FreeText = joinNonEmpty("\n",
		doc.Joined("./InvoiceDetails/InvoiceFreeText", "\n"),
		doc.Joined("./InvoiceDetails/PaymentTermsDetails/PaymentTermsFreeText", "\n"),
	)

	inv.SellersBuyerIdentifier = doc.Text("./InvoiceDetails/SellersBuyerIdentifier")
	inv.AgreementIdentifier = doc.Text("./InvoiceDetails/AgreementIdentifier")

	if fine := doc.Text("./InvoiceDetails/PaymentTermsDetails/PaymentOverDueFineDetails/PaymentOverDueFinePercent"); fine != "" {
		if inv.OverdueFinePercent, err = format.ParseAmount(fine); err != nil {
			return nil, err
		}
	}

	if err := mapPayment(doc, inv); err != nil {
		return nil, err
	}

	for _, row := range doc.Elements("./InvoiceRow") {
		line, err := mapLine(row)
		if err != nil {
			return nil, model.NewParseError("InvoiceRow", "invalid invoice row", err)
		}
		inv.Lines = append(inv.Lines, *line)
	}

	if err := mapAttachments(doc, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func mapPayment(doc *finvoice.Document, inv *model.Invoice) error {
	ede := "./EpiDetails"

	inv.Payment.IBAN = doc.Text(ede + "/EpiPartyDetails/EpiBeneficiaryPartyDetails/EpiAccountID")
	inv.Payment.BIC = doc.Text(ede + "/EpiPartyDetails/EpiBfiPartyDetails/EpiBfiIdentifier")
	inv.Payment.BeneficiaryName = doc.Text(ede + "/EpiPartyDetails/EpiBeneficiaryPartyDetails/EpiNameText")

	// EpiReference is the primary reference source, the remittance info
	// identifier the fallback
	inv.Payment.Reference = doc.Text(ede + "/EpiIdentificationDetails/EpiReference")
	if inv.Payment.Reference == "" {
		inv.Payment.Reference = doc.Text(ede + "/EpiPaymentInstructionDetails/EpiRemittanceInfoIdentifier")
	}

	var err error
	if amount := doc.Text(ede + "/EpiPaymentInstructionDetails/EpiInstructedAmount"); amount != "" {
		if inv.Payment.Amount, err = format.ParseAmount(amount); err != nil {
			return err
		}
	}

	if due := doc.Text(ede + "/EpiPaymentInstructionDetails/EpiDateOptionDate"); due != "" {
		inv.Payment.DueDate, err = format.ParseDate(due,
			doc.Attr(ede+"/EpiPaymentInstructionDetails/EpiDateOptionDate", "Format"))
		if err != nil {
			return err
		}
	}

	if inv.Payment.DueDate.IsZero() {
		inv.Payment.DueDate = inv.DueDate
	}
	return nil
}

// mapLine normalizes one InvoiceRow
func mapLine(row *etree.Element) (*model.InvoiceLine, error) {
	line := &model.InvoiceLine{
		ArticleID:      finvoice.TextFrom(row, "./ArticleIdentifier"),
		BuyerArticleID: finvoice.TextFrom(row, "./BuyerArticleIdentifier"),
		Name:           finvoice.TextFrom(row, "./ArticleName"),
		Description:    finvoice.TextFrom(row, "./ArticleDescription"),
		EanCode:        finvoice.TextFrom(row, "./EanCode"),
		FreeText:       finvoice.JoinedFrom(row, "./RowFreeText", "\n"),
	}

	// InvoicedQuantity preferred, DeliveredQuantity is what some senders
	// fill instead
	qtyText := finvoice.TextFrom(row, "./InvoicedQuantity")
	line.UnitCode = finvoice.AttrFrom(row, "./InvoicedQuantity", "QuantityUnitCode")
	if qtyText == "" {
		qtyText = finvoice.TextFrom(row, "./DeliveredQuantity")
		line.UnitCode = finvoice.AttrFrom(row, "./DeliveredQuantity", "QuantityUnitCode")
	}

	qty, err := format.ParseAmount(qtyText)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		// Zero or absent quantity defaults to 1 so the unit price can be
		// derived without dividing by zero
		qty = decimalOne
	}
	line.Quantity = qty

	subtotal, err := format.ParseAmount(finvoice.TextFrom(row, "./RowVatExcludedAmount"))
	if err != nil {
		return nil, err
	}
	if subtotal.IsZero() {
		// Derive the untaxed subtotal from the taxed row amount
		rowAmount, err := format.ParseAmount(finvoice.TextFrom(row, "./RowAmount"))
		if err != nil {
			return nil, err
		}
		rowVat, err := format.ParseAmount(finvoice.TextFrom(row, "./RowVatAmount"))
		if err != nil {
			return nil, err
		}
		subtotal = rowAmount.Sub(rowVat)
	}
	line.Subtotal = subtotal

	// UnitPriceAmount can be with or without tax and it is not
	// necessarily specified anywhere, so the subtotal-derived price wins
	// whenever the explicit one is missing or zero
	unitPrice, err := format.ParseAmount(finvoice.TextFrom(row, "./UnitPriceAmount"))
	if err != nil {
		return nil, err
	}
	if unitPrice.IsZero() && !subtotal.IsZero() {
		unitPrice = subtotal.Div(line.Quantity).Round(4)
		line.UnitPriceDerived = true
	}
	line.UnitPrice = unitPrice

	if line.DiscountPercent, err = format.ParseAmount(finvoice.TextFrom(row, "./RowDiscountPercent")); err != nil {
		return nil, err
	}
	if line.VATRatePercent, err = format.ParseAmount(finvoice.TextFrom(row, "./RowVatRatePercent")); err != nil {
		return nil, err
	}

	line.Note = line.IsComment()
	return line, nil
}

func mapAttachments(doc *finvoice.Document, inv *model.Invoice) error {
	for _, att := range doc.Elements("./AttachmentDetails") {
		name := finvoice.TextFrom(att, "./AttachmentName")
		data := finvoice.TextFrom(att, "./AttachmentContent")
		if name == "" || data == "" {
			continue
		}

		content, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return model.NewParseError("AttachmentContent", "invalid base64 content", err)
		}

		mimeType := finvoice.AttrFrom(att, "./AttachmentContent", "mimeCode")
		if parts := strings.Split(mimeType, "/"); len(parts) == 2 && !strings.Contains(name, ".") {
			name = name + "." + parts[1]
		}

		inv.Attachments = append(inv.Attachments, model.Attachment{
			Name:     name,
			MimeType: mimeType,
			Content:  content,
		})
	}
	return nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
