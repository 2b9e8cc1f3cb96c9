package basket

import (
	"strings"

	"github.com/Veraticus/statement-ledger/internal/model"
)

// Resolver finds the basket an activity row belongs to.
type Resolver interface {
	Resolve(rec *model.ActivityRecord) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(rec *model.ActivityRecord) (string, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(rec *model.ActivityRecord) (string, bool) {
	return f(rec)
}

// FieldResolver uses the basket id carried on the record itself.
type FieldResolver struct{}

// Resolve returns the record's explicit basket id.
func (FieldResolver) Resolve(rec *model.ActivityRecord) (string, bool) {
	id := strings.TrimSpace(rec.BasketID)
	return id, id != ""
}

// TagResolver reads a BASKET:NNNNN marker from the security name.
type TagResolver struct {
	Table *Table
}

// Resolve scans the security name and raw action text for a tag.
func (r TagResolver) Resolve(rec *model.ActivityRecord) (string, bool) {
	if id, ok := r.Table.ResolveByTag(rec.SecurityName); ok {
		return id, true
	}
	return r.Table.ResolveByTag(rec.ActionText)
}

// SymbolResolver falls back to symbol membership.
type SymbolResolver struct {
	Table *Table
}

// Resolve looks the symbol up in the table.
func (r SymbolResolver) Resolve(rec *model.ActivityRecord) (string, bool) {
	return r.Table.ResolveBySymbol(rec.Symbol)
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

// Resolve walks the chain.
func (c Chain) Resolve(rec *model.ActivityRecord) (string, bool) {
	for _, r := range c {
		if id, ok := r.Resolve(rec); ok {
			return id, true
		}
	}
	return "", false
}

// DefaultChain resolves by explicit field, then tag, then symbol.
func DefaultChain(t *Table) Chain {
	return Chain{FieldResolver{}, TagResolver{Table: t}, SymbolResolver{Table: t}}
}
