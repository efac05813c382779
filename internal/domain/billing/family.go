package billing

// Family identifies one of the four document families. All lifecycle rules
// that differ between families (status vocabulary, final status, counterparty
// side, numbering) are carried by the family's config, selected by this tag
// rather than by probing document fields at runtime.
type Family string

const (
	FamilyPurchase       Family = "PURCHASE"
	FamilySale           Family = "SALE"
	FamilyPurchaseReturn Family = "PURCHASE_RETURN"
	FamilySaleReturn     Family = "SALE_RETURN"
)

// CounterpartyKind identifies which side of the ledger a family settles with
type CounterpartyKind string

const (
	CounterpartySupplier CounterpartyKind = "SUPPLIER"
	CounterpartyCustomer CounterpartyKind = "CUSTOMER"
)

// FamilyConfig is the capability set of a document family
type FamilyConfig struct {
	Endpoint     string           // URL path segment served for this family
	NumberPrefix string           // invoice number prefix
	Statuses     []DocumentStatus // legal status vocabulary
	FinalStatus  DocumentStatus   // terminal status reached by Complete
	Counterparty CounterpartyKind
	IsReturn     bool
	SourceFamily Family // family a return draws its source documents from
}

var familyConfigs = map[Family]FamilyConfig{
	FamilyPurchase: {
		Endpoint:     "purchases",
		NumberPrefix: "PUR",
		Statuses:     []DocumentStatus{DocumentStatusPending, DocumentStatusCompleted, DocumentStatusCancelled},
		FinalStatus:  DocumentStatusCompleted,
		Counterparty: CounterpartySupplier,
	},
	FamilySale: {
		Endpoint:     "sales",
		NumberPrefix: "SAL",
		Statuses:     []DocumentStatus{DocumentStatusPending, DocumentStatusDelivered, DocumentStatusCancelled},
		FinalStatus:  DocumentStatusDelivered,
		Counterparty: CounterpartyCustomer,
	},
	FamilyPurchaseReturn: {
		Endpoint:     "purchase-returns",
		NumberPrefix: "PRN",
		Statuses:     []DocumentStatus{DocumentStatusPending, DocumentStatusCompleted, DocumentStatusCancelled},
		FinalStatus:  DocumentStatusCompleted,
		Counterparty: CounterpartySupplier,
		IsReturn:     true,
		SourceFamily: FamilyPurchase,
	},
	FamilySaleReturn: {
		Endpoint:     "sale-returns",
		NumberPrefix: "SRN",
		Statuses:     []DocumentStatus{DocumentStatusPending, DocumentStatusCompleted, DocumentStatusCancelled},
		FinalStatus:  DocumentStatusCompleted,
		Counterparty: CounterpartyCustomer,
		IsReturn:     true,
		SourceFamily: FamilySale,
	},
}

// AllFamilies returns the four document families in a stable order
func AllFamilies() []Family {
	return []Family{FamilyPurchase, FamilySale, FamilyPurchaseReturn, FamilySaleReturn}
}

// IsValid checks if the family is one of the four known families
func (f Family) IsValid() bool {
	_, ok := familyConfigs[f]
	return ok
}

// String returns the string representation of the family
func (f Family) String() string {
	return string(f)
}

// Config returns the family's capability set
func (f Family) Config() FamilyConfig {
	return familyConfigs[f]
}

// FinalStatus returns the terminal status reached by completing a document
// of this family
func (f Family) FinalStatus() DocumentStatus {
	return familyConfigs[f].FinalStatus
}

// IsReturn returns true for the two return families
func (f Family) IsReturn() bool {
	return familyConfigs[f].IsReturn
}

// SourceFamily returns the family a return draws its source documents from
func (f Family) SourceFamily() Family {
	return familyConfigs[f].SourceFamily
}

// Counterparty returns which side of the ledger this family settles with
func (f Family) Counterparty() CounterpartyKind {
	return familyConfigs[f].Counterparty
}

// CompletionStockDirection returns how completing a document of this family
// moves inventory, in base units
func (f Family) CompletionStockDirection() StockDirection {
	switch f {
	case FamilyPurchase, FamilySaleReturn:
		return StockDirectionIn
	default:
		return StockDirectionOut
	}
}
