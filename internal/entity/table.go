package entity

// TableType classifies an extracted table.
type TableType string

const (
	TableProducts  TableType = "products"
	TableSchedule  TableType = "schedule"
	TableDocuments TableType = "documents"
	TableOther     TableType = "other"
)

// TableRegion is a candidate table location reported by the detection
// capability before cell data is pulled.
type TableRegion struct {
	Page       int     `json:"page"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// Table is one extracted tabular region.
type Table struct {
	Method       string       `json:"method"`
	Confidence   float64      `json:"confidence"`
	Page         int          `json:"page"`
	Headers      []string     `json:"headers"`
	Rows         [][]string   `json:"rows"`
	Type         TableType    `json:"type"`
	ProductScore float64      `json:"product_score"`
	Products     []ProductRow `json:"products,omitempty"`
}

// Valid reports whether the table carries at least one data row.
func (t *Table) Valid() bool { return len(t.Rows) > 0 }

// ProductRow is one structured line item from a product table.
type ProductRow struct {
	Item           string  `json:"item"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
	Specifications string  `json:"specifications,omitempty"`
}
