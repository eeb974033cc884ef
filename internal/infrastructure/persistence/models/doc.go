// Package models contains the GORM persistence models. Each model maps one table
// and converts to and from its domain aggregate with ToDomain / FromDomain.
//
// Domain types never carry gorm tags; everything storage-specific (column types,
// indexes, JSON encoding) lives here.
package models
