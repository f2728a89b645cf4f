// Package models contains the GORM persistence models of the ledger tables.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart with ToDomain / FromDomain.
//
// Tables:
//   - receipts, receipt_lines, receipt_audit_entries: receiving records
//   - products: current stock per branch
//   - sale_lines, return_lines: the movement logs read by balance reconstruction
package models
