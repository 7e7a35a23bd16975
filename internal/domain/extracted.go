package domain

// ExtractedInvoice is the transient result of recovering one extraction
// record. It is produced by the recovery parser, transformed by the mapper,
// and never retained after ingestion.
type ExtractedInvoice struct {
	InvoiceCode     string              `json:"invoiceCode"`
	Provider        ExtractedProvider   `json:"provider"`
	IssueDate       string              `json:"issueDate"`
	TotalAmount     float64             `json:"totalAmount"`
	IVAPercentage   float64             `json:"ivaPercentage"`
	RetentionAmount float64             `json:"retentionAmount"`
	Items           []ExtractedLineItem `json:"items"`
}

// ExtractedProvider identifies or creates a Provider.
type ExtractedProvider struct {
	Name string `json:"name"`
	CIF  string `json:"cif"`
}

// ExtractedLineItem is one extracted invoice line.
type ExtractedLineItem struct {
	MaterialName       string   `json:"materialName"`
	MaterialCode       string   `json:"materialCode"`
	Quantity           float64  `json:"quantity"`
	ListPrice          *float64 `json:"listPrice"`
	DiscountPercentage *float64 `json:"discountPercentage"`
	DiscountRaw        string   `json:"discountRaw"`
	UnitPrice          float64  `json:"unitPrice"`
	TotalPrice         float64  `json:"totalPrice"`
	WorkOrder          string   `json:"workOrder"`
}
