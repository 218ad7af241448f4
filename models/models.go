package models

import "github.com/shopspring/decimal"

func init() {
	// Money is exchanged with the frontend as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&Employee{},
		&EmployeeImage{},
		&Machine{},
		&MachineImage{},
		&MachineMaintenance{},
		&Material{},
		&MaterialImage{},
		&Quotation{},
		&QuotationMaterial{},
		&Invoice{},
		&InvoiceItem{},
		&Job{},
		&JobEmployeeAssignment{},
		&JobMachineAssignment{},
	}
}
