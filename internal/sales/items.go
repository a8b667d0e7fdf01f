package sales

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItemsVersion is the current schema version of the items document.
const SaleItemsVersion = 1

// SaleItem is one line of the sale as it was priced at the till.
type SaleItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// SaleItems is the versioned document stored on the sale row.
type SaleItems struct {
	Version int        `json:"version"`
	Items   []SaleItem `json:"items"`
}

// EncodeItems serializes the document at the current version.
func EncodeItems(items []SaleItem) (json.RawMessage, error) {
	return json.Marshal(SaleItems{Version: SaleItemsVersion, Items: items})
}

// DecodeItems reads a stored document, rejecting versions this build does
// not understand.
func DecodeItems(raw json.RawMessage) (*SaleItems, error) {
	var doc SaleItems
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Version > SaleItemsVersion {
		return nil, fmt.Errorf("unsupported sale items version %d", doc.Version)
	}
	return &doc, nil
}
