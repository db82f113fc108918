package models

import (
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for partner.Customer. Debt is
// derived from unpaid queues and has no column.
type CustomerModel struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name    string `gorm:"column:name;not null"`
	Balance int64  `gorm:"column:balance;not null;default:0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customer"
}

// ToDomain converts the model to a partner.Customer carrying debt
func (m *CustomerModel) ToDomain(debt decimal.Decimal) partner.Customer {
	return partner.Customer{ID: m.ID, Name: m.Name, Balance: m.Balance, Debt: debt}
}

// FromDomain populates the model from a partner.Customer
func (m *CustomerModel) FromDomain(c partner.Customer) {
	m.ID = c.ID
	m.Name = c.Name
	m.Balance = c.Balance
}

// CustomerModelFromDomain creates a model from a partner.Customer
func CustomerModelFromDomain(c partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
