package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{Customer{}, "customers"},
		{Employee{}, "employees"},
		{EmployeeImage{}, "employee_images"},
		{Machine{}, "machines"},
		{MachineImage{}, "machine_images"},
		{MachineMaintenance{}, "machine_maintenance"},
		{Material{}, "materials"},
		{MaterialImage{}, "material_images"},
		{Quotation{}, "quotations"},
		{QuotationMaterial{}, "quotation_materials"},
		{Invoice{}, "invoices"},
		{InvoiceItem{}, "invoice_items"},
		{Job{}, "jobs"},
		{JobEmployeeAssignment{}, "job_employee_assignments"},
		{JobMachineAssignment{}, "job_machine_assignments"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.model.TableName())
		})
	}
	assert.Len(t, All(), len(tests), "Every model should be migrated")
}

func TestDerivePaymentStatus(t *testing.T) {
	total := decimal.RequireFromString("1000.00")

	tests := []struct {
		name string
		paid string
		want string
	}{
		{"nothing paid", "0", PaymentPending},
		{"partly paid", "400.00", PaymentPartial},
		{"one cent short", "999.99", PaymentPartial},
		{"exactly paid", "1000.00", PaymentCompleted},
		{"overpaid", "1000.01", PaymentCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePaymentStatus(decimal.RequireFromString(tt.paid), total))
		})
	}
}

func TestInvoiceOutstanding(t *testing.T) {
	invoice := Invoice{TotalAmount: decimal.NewFromInt(1000), PaidAmount: decimal.NewFromInt(400)}
	assert.True(t, invoice.Outstanding().Equal(decimal.NewFromInt(600)))

	invoice.PaidAmount = decimal.NewFromInt(1200)
	assert.True(t, invoice.Outstanding().IsZero(), "Overpayment should not produce a negative balance")
}

func TestQuotationMaterialLineTotal(t *testing.T) {
	line := QuotationMaterial{Quantity: 3, UnitPrice: decimal.RequireFromString("12.50")}
	assert.Equal(t, "37.5", line.LineTotal().String())
}

func TestMachineIsAssignable(t *testing.T) {
	assert.True(t, Machine{Status: MachineStatusActive}.IsAssignable())
	assert.False(t, Machine{Status: MachineStatusMaintenance}.IsAssignable())
	assert.False(t, Machine{Status: MachineStatusRetired}.IsAssignable())
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	out, err := json.Marshal(Invoice{TotalAmount: decimal.RequireFromString("1000.50")})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Equal(t, 1000.5, body["total_amount"])
}

func TestCustomerPasswordNeverSerialised(t *testing.T) {
	out, err := json.Marshal(Customer{Email: "a@example.com", Password: "$2a$10$hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "password")
	assert.NotContains(t, string(out), "$2a$10$hash")
}
