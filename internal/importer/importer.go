package importer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// Stores bundles the collaborator interfaces the importer needs
type Stores struct {
	Parties      PartyStore
	Products     ProductStore
	Accounts     AccountResolver
	BankAccounts BankAccountStore
	Taxes        TaxTable
	Uoms         UomTable
}

// ImportedLine is one materialized invoice line
type ImportedLine struct {
	Line    model.InvoiceLine  `json:"line"`
	Name    string             `json:"name"`
	Product *ProductRecord     `json:"product,omitempty"`
	Account string             `json:"account,omitempty"`
	Uom     *UomRecord         `json:"uom,omitempty"`
	Tax     *TaxRecord         `json:"tax,omitempty"`
	Note    bool               `json:"note,omitempty"`
}

// ImportedInvoice is the result of materializing one parsed invoice
type ImportedInvoice struct {
	Invoice          *model.Invoice     `json:"invoice"`
	Partner          *PartnerRecord     `json:"partner"`
	PartnerCreated   bool               `json:"partner_created,omitempty"`
	BankAccount      *BankAccountRecord `json:"bank_account,omitempty"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	Lines            []ImportedLine     `json:"lines"`
	// SkippedRows counts zero-price rows dropped by the long-invoice guard
	SkippedRows int `json:"skipped_rows,omitempty"`
}

// Option configures an Importer
type Option func(*Importer)

// WithDirection sets the tax/account side of imported documents.
// The default is purchase: incoming Finvoice documents are vendor bills.
func WithDirection(d Direction) Option {
	return func(i *Importer) { i.direction = d }
}

// WithZeroPriceSkipThreshold enables the long-invoice guard: when a
// document has more rows than the threshold, rows whose unit price
// resolves to zero are skipped instead of imported. Disabled (0) by
// default; the guard is a performance mitigation, not a correctness rule.
func WithZeroPriceSkipThreshold(rows int) Option {
	return func(i *Importer) { i.zeroPriceSkip = rows }
}

// WithDefaultAccount sets the fallback ledger account used when no
// product is matched for a priced row
func WithDefaultAccount(account string) Option {
	return func(i *Importer) { i.defaultAccount = account }
}

// WithLogger sets the operator-facing logger
func WithLogger(l zerolog.Logger) Option {
	return func(i *Importer) { i.log = l }
}

// Importer builds importable invoice records from parsed invoices
type Importer struct {
	stores         Stores
	direction      Direction
	zeroPriceSkip  int
	defaultAccount string
	log            zerolog.Logger
}

// New creates an importer over the given stores
func New(stores Stores, opts ...Option) *Importer {
	imp := &Importer{
		stores:    stores,
		direction: DirectionPurchase,
		log:       log.Logger.With().Str("component", "importer").Logger(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import materializes a parsed invoice against the stores. Any error
// aborts the whole import; no partial invoice is committed. The caller's
// transaction is expected to roll back whatever the stores created.
func (imp *Importer) Import(ctx context.Context, inv *model.Invoice) (*ImportedInvoice, error) {
	// Purchase: the document is a vendor bill and the seller is the
	// counterparty. Sale: a customer invoice, so the buyer is.
	counterparty := &inv.Seller
	if imp.direction == DirectionSale {
		counterparty = &inv.Buyer
	}
	partner, created, err := imp.resolvePartner(ctx, counterparty)
	if err != nil {
		return nil, err
	}

	result := &ImportedInvoice{
		Invoice:          inv,
		Partner:          partner,
		PartnerCreated:   created,
		PaymentReference: inv.PaymentReference(),
	}

	lineCount := len(inv.Lines)
	for idx := range inv.Lines {
		line := inv.Lines[idx]

		if imp.zeroPriceSkip > 0 && lineCount > imp.zeroPriceSkip &&
			line.UnitPrice.IsZero() && !line.Note {
			imp.log.Debug().Int("row", idx+1).Msg("skipping a zero-price row on a long invoice")
			result.SkippedRows++
			continue
		}

		imported, err := imp.importLine(ctx, line)
		if err != nil {
			return nil, err
		}
		result.Lines = append(result.Lines, *imported)
	}

	if iban := inv.Payment.IBAN; iban != "" {
		account, err := imp.resolveBankAccount(ctx, iban, inv.Payment.BIC, partner.ID)
		if err != nil {
			return nil, err
		}
		result.BankAccount = account
	}

	return result, nil
}

// resolvePartner finds the counterparty in the party store or creates
// it. An unresolvable party is never fatal.
func (imp *Importer) resolvePartner(ctx context.Context, party *model.Party) (*PartnerRecord, bool, error) {
	partner, err := imp.stores.Parties.FindParty(ctx, PartyQuery{
		Name:  party.Name,
		Phone: party.Phone,
		Email: party.Email,
		VAT:   party.VAT,
	})
	if err != nil {
		return nil, false, err
	}
	if partner != nil {
		return partner, false, nil
	}

	record := PartnerRecord{
		Name:        party.Name,
		VAT:         party.VAT,
		BusinessID:  party.BusinessID,
		Email:       party.Email,
		Phone:       party.Phone,
		Street:      party.Address.Street,
		City:        party.Address.City,
		Zip:         party.Address.Zip,
		CountryCode: party.Address.CountryCode,
	}
	imp.log.Info().Str("name", record.Name).Str("vat", record.VAT).
		Msg("partner not found, creating a new one")

	partner, err = imp.stores.Parties.CreateParty(ctx, record)
	if err != nil {
		return nil, false, err
	}
	return partner, true, nil
}

func (imp *Importer) importLine(ctx context.Context, line model.InvoiceLine) (*ImportedLine, error) {
	imported := &ImportedLine{Line: line, Note: line.Note}

	if line.Note {
		// Comment row: rendered as a non-priced note line
		imported.Name = joinParts(line.Description, line.FreeText)
		return imported, nil
	}

	code := line.BuyerArticleID
	if code == "" {
		code = line.ArticleID
	}

	product, err := imp.stores.Products.FindProduct(ctx, code, line.Name, line.EanCode)
	if err != nil {
		return nil, err
	}
	imported.Product = product

	if product != nil {
		accounts, err := imp.stores.Accounts.AccountsForProduct(ctx, product)
		if err != nil {
			return nil, err
		}
		if imp.direction == DirectionPurchase {
			imported.Account = accounts.Expense
		} else {
			imported.Account = accounts.Income
		}
	} else {
		imported.Account = imp.defaultAccount
		// Carry the article text on the line since no product names it
		imported.Name = joinParts(line.Name, line.Description, line.FreeText)
	}
	if imported.Name == "" {
		imported.Name = line.FreeText
	}

	// The unit table guarantees a default unit, so rows without a
	// matched product still carry one
	uom, err := imp.stores.Uoms.FindUom(ctx, line.UnitCode)
	if err != nil {
		return nil, err
	}
	imported.Uom = uom

	if !line.VATRatePercent.IsZero() {
		// Price-inclusive taxes are excluded: the subtotal is saved untaxed.
		// Guessing a wrong tax would corrupt accounting totals, so no
		// match aborts the import.
		tax, err := imp.stores.Taxes.FindTax(ctx, line.VATRatePercent, imp.direction, false)
		if err != nil {
			return nil, err
		}
		if tax == nil {
			return nil, model.NewTaxNotFoundError(line.VATRatePercent, string(imp.direction))
		}
		imported.Tax = tax
	}

	return imported, nil
}

// resolveBankAccount finds the beneficiary bank account or creates it
func (imp *Importer) resolveBankAccount(ctx context.Context, accountNumber, bic string, partnerID int64) (*BankAccountRecord, error) {
	account, err := imp.stores.BankAccounts.FindBankAccount(ctx, accountNumber, partnerID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	return imp.stores.BankAccounts.CreateBankAccount(ctx, BankAccountRecord{
		AccountNumber: accountNumber,
		BIC:           strings.ToUpper(bic),
		PartnerID:     partnerID,
	})
}

func joinParts(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
