// Package store defines the minimal document-store capability the core is
// written against: document get/create/set/update/delete, collection queries
// with equality and range filters, and atomic multi-write batches. The Mongo
// adapter lives in store/mongostore; store/memstore is a full in-memory
// implementation used by tests.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
)

type M map[string]any

// Op values for Filter.
const (
	OpEq = "=="
	OpLt = "<"
)

type Filter struct {
	Field string
	Op    string
	Value any
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int64 // 0 means no limit
}

// Update is a partial document mutation: Set overwrites fields, Inc adds a
// signed delta to numeric fields.
type Update struct {
	Set M
	Inc M
}

type OpKind int

const (
	OpCreate OpKind = iota
	OpSet
	OpUpdate
	OpDelete
)

// Op is a single write inside a Batch.
type Op struct {
	Kind   OpKind
	Coll   string
	ID     string
	Doc    any    // OpCreate, OpSet
	Update Update // OpUpdate
}

type Store interface {
	// Get decodes the document with the given id into out, or ErrNotFound.
	Get(ctx context.Context, coll, id string, out any) error

	// Create inserts a new document and fails with ErrExists if a document
	// with the same id is already present. The existence check is part of
	// the write itself, not a separate query.
	Create(ctx context.Context, coll, id string, doc any) error

	// Set writes the full document, creating or replacing it.
	Set(ctx context.Context, coll, id string, doc any) error

	// Update applies a partial mutation, or ErrNotFound.
	Update(ctx context.Context, coll, id string, upd Update) error

	// Delete removes the document if present and reports whether it was.
	// Deleting an absent document is not an error.
	Delete(ctx context.Context, coll, id string) (bool, error)

	// Find decodes all matching documents into out, which must be a pointer
	// to a slice.
	Find(ctx context.Context, coll string, q Query, out any) error

	// Batch applies all ops atomically: either every write commits or none.
	Batch(ctx context.Context, ops []Op) error
}
