// Package importer materializes a parsed Finvoice invoice against the
// surrounding accounting system through narrow collaborator interfaces.
// All store mutations are expected to run inside the caller's
// transaction; a failed import must be rolled back by the caller.
package importer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Direction is the tax/account side of a document
type Direction string

const (
	DirectionSale     Direction = "sale"
	DirectionPurchase Direction = "purchase"
)

// PartnerRecord is a party in the external party store
type PartnerRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	VAT         string `json:"vat,omitempty"`
	BusinessID  string `json:"business_id,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	Zip         string `json:"zip,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// PartyQuery is a find-partner request; empty fields are ignored
type PartyQuery struct {
	Name  string
	Phone string
	Email string
	VAT   string
}

// PartyStore finds and creates partners
type PartyStore interface {
	FindParty(ctx context.Context, q PartyQuery) (*PartnerRecord, error)
	CreateParty(ctx context.Context, p PartnerRecord) (*PartnerRecord, error)
}

// ProductRecord is a product in the external product store
type ProductRecord struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Barcode string `json:"barcode,omitempty"`
}

// ProductStore finds products by code, name or barcode
type ProductStore interface {
	FindProduct(ctx context.Context, code, name, barcode string) (*ProductRecord, error)
}

// Accounts holds the ledger accounts configured for a product
type Accounts struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

// AccountResolver maps a product to its income/expense accounts
type AccountResolver interface {
	AccountsForProduct(ctx context.Context, p *ProductRecord) (Accounts, error)
}

// BankAccountRecord is a partner bank account
type BankAccountRecord struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"account_number"`
	BIC           string `json:"bic,omitempty"`
	PartnerID     int64  `json:"partner_id"`
}

// BankAccountStore finds and creates partner bank accounts
type BankAccountStore interface {
	FindBankAccount(ctx context.Context, accountNumber string, partnerID int64) (*BankAccountRecord, error)
	CreateBankAccount(ctx context.Context, a BankAccountRecord) (*BankAccountRecord, error)
}

// TaxRecord is one tax in the external tax table
type TaxRecord struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	RatePercent  decimal.Decimal `json:"rate_percent"`
	Direction    Direction       `json:"direction"`
	PriceInclude bool            `json:"price_include"`
	// Sequence breaks ties between taxes with the same rate
	Sequence int `json:"sequence"`
}

// TaxTable finds taxes by exact rate, direction and inclusiveness.
// Returning nil means no tax matched.
type TaxTable interface {
	FindTax(ctx context.Context, rate decimal.Decimal, direction Direction, priceInclude bool) (*TaxRecord, error)
}

// UomRecord is a unit of measure
type UomRecord struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// UomTable finds units of measure; unmatched codes resolve to a default
// unit, never to nil
type UomTable interface {
	FindUom(ctx context.Context, code string) (*UomRecord, error)
}

// ---------------------------------------------------------------------
// In-memory reference implementations, used by tests and the CLI

// MemoryPartyStore is an in-memory PartyStore
type MemoryPartyStore struct {
	mu      sync.Mutex
	nextID  int64
	Records []PartnerRecord
}

// NewMemoryPartyStore creates an empty in-memory party store
func NewMemoryPartyStore(records ...PartnerRecord) *MemoryPartyStore {
	s := &MemoryPartyStore{nextID: 1}
	for _, r := range records {
		r.ID = s.nextID
		s.nextID++
		s.Records = append(s.Records, r)
	}
	return s
}

// FindParty matches on VAT first, then exact name, then email or phone
func (s *MemoryPartyStore) FindParty(ctx context.Context, q PartyQuery) (*PartnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Records {
		r := &s.Records[i]
		if q.VAT != "" && strings.EqualFold(r.VAT, q.VAT) {
			return r, nil
		}
	}
	for i := range s.Records {
		r := &s.Records[i]
		if q.Name != "" && strings.EqualFold(r.Name, q.Name) {
			return r, nil
		}
		if q.Email != "" && strings.EqualFold(r.Email, q.Email) {
			return r, nil
		}
		if q.Phone != "" && r.Phone == q.Phone {
			return r, nil
		}
	}
	return nil, nil
}

// CreateParty appends a new partner record
func (s *MemoryPartyStore) CreateParty(ctx context.Context, p PartnerRecord) (*PartnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	s.Records = append(s.Records, p)
	return &s.Records[len(s.Records)-1], nil
}

// MemoryProductStore is an in-memory ProductStore
type MemoryProductStore struct {
	Records []ProductRecord
}

// NewMemoryProductStore creates an in-memory product store
func NewMemoryProductStore(records ...ProductRecord) *MemoryProductStore {
	for i := range records {
		records[i].ID = int64(i + 1)
	}
	return &MemoryProductStore{Records: records}
}

// FindProduct matches by code, then name, then barcode
func (s *MemoryProductStore) FindProduct(ctx context.Context, code, name, barcode string) (*ProductRecord, error) {
	for i := range s.Records {
		r := &s.Records[i]
		if code != "" && r.Code == code {
			return r, nil
		}
	}
	for i := range s.Records {
		r := &s.Records[i]
		if name != "" && strings.EqualFold(r.Name, name) {
			return r, nil
		}
		if barcode != "" && r.Barcode == barcode {
			return r, nil
		}
	}
	return nil, nil
}

// MemoryAccountResolver returns fixed accounts for every product
type MemoryAccountResolver struct {
	Income  string
	Expense string
}

// AccountsForProduct returns the configured accounts
func (r *MemoryAccountResolver) AccountsForProduct(ctx context.Context, p *ProductRecord) (Accounts, error) {
	return Accounts{Income: r.Income, Expense: r.Expense}, nil
}

// MemoryBankAccountStore is an in-memory BankAccountStore
type MemoryBankAccountStore struct {
	mu      sync.Mutex
	nextID  int64
	Records []BankAccountRecord
}

// NewMemoryBankAccountStore creates an empty in-memory bank account store
func NewMemoryBankAccountStore() *MemoryBankAccountStore {
	return &MemoryBankAccountStore{nextID: 1}
}

// FindBankAccount matches the account number with and without spaces
func (s *MemoryBankAccountStore) FindBankAccount(ctx context.Context, accountNumber string, partnerID int64) (*BankAccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stripped := strings.ReplaceAll(accountNumber, " ", "")
	for i := range s.Records {
		r := &s.Records[i]
		if r.PartnerID != partnerID {
			continue
		}
		if r.AccountNumber == accountNumber || strings.ReplaceAll(r.AccountNumber, " ", "") == stripped {
			return r, nil
		}
	}
	return nil, nil
}

// CreateBankAccount appends a new bank account record
func (s *MemoryBankAccountStore) CreateBankAccount(ctx context.Context, a BankAccountRecord) (*BankAccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	s.Records = append(s.Records, a)
	return &s.Records[len(s.Records)-1], nil
}

// MemoryTaxTable is an in-memory TaxTable
type MemoryTaxTable struct {
	Records []TaxRecord
}

// NewMemoryTaxTable creates an in-memory tax table
func NewMemoryTaxTable(records ...TaxRecord) *MemoryTaxTable {
	for i := range records {
		records[i].ID = int64(i + 1)
	}
	return &MemoryTaxTable{Records: records}
}

// FindTax returns the matching tax with the lowest sequence, or nil
func (t *MemoryTaxTable) FindTax(ctx context.Context, rate decimal.Decimal, direction Direction, priceInclude bool) (*TaxRecord, error) {
	var matches []*TaxRecord
	for i := range t.Records {
		r := &t.Records[i]
		if r.RatePercent.Equal(rate) && r.Direction == direction && r.PriceInclude == priceInclude {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Sequence < matches[j].Sequence })
	return matches[0], nil
}

// MemoryUomTable is an in-memory UomTable with a default fallback unit
type MemoryUomTable struct {
	Records []UomRecord
	Default UomRecord
}

// NewMemoryUomTable creates an in-memory unit table
func NewMemoryUomTable(def UomRecord, records ...UomRecord) *MemoryUomTable {
	return &MemoryUomTable{Records: records, Default: def}
}

// FindUom matches the unit code case-insensitively, falling back to the
// default unit
func (t *MemoryUomTable) FindUom(ctx context.Context, code string) (*UomRecord, error) {
	for i := range t.Records {
		if strings.EqualFold(t.Records[i].Code, code) {
			return &t.Records[i], nil
		}
	}
	return &t.Default, nil
}
