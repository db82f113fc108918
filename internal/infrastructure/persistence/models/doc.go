// Package models contains GORM persistence models for the ledger tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// entity with ToDomain / FromDomain.
//
// Conventions:
//   - a zero logical id maps to SQL NULL on nullable foreign keys
//   - dates are stored as unix milliseconds
//   - decimals are stored as their canonical string
package models
