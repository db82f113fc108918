package models

import "github.com/ledger/backend/internal/domain/catalog"

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name  string `gorm:"column:name;not null"`
	Price int64  `gorm:"column:price;not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "product"
}

// ToDomain converts the model to a catalog.Product
func (m *ProductModel) ToDomain() catalog.Product {
	return catalog.Product{ID: m.ID, Name: m.Name, Price: m.Price}
}

// FromDomain populates the model from a catalog.Product
func (m *ProductModel) FromDomain(p catalog.Product) {
	m.ID = p.ID
	m.Name = p.Name
	m.Price = p.Price
}

// ProductModelFromDomain creates a model from a catalog.Product
func ProductModelFromDomain(p catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductsToDomain converts a slice of models
func ProductsToDomain(rows []ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
