// Package models contains the GORM persistence models for the domain
// aggregates. Models carry the storage concerns (column types, indexes,
// foreign keys) and convert to and from domain entities, keeping the
// domain layer free of GORM tags.
package models
