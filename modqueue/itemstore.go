package modqueue

import (
	"context"
)

// ItemStore is the persistence interface for pending items. Implementations
// return copies; mutating a returned Item does not change stored state until
// it is written back with Put.
//
// Stores do not serialize access themselves; the Queue holds its own lock
// across every store call.
type ItemStore interface {
	Get(ctx context.Context, id int64) (*Item, error)
	Put(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Item, error)
	Count(ctx context.Context) (int, error)
}
