// Package memory is an in-process implementation of the domain repositories.
//
// It mirrors the PostgreSQL semantics the services depend on: unique names and
// emails, restricted deletes, atomic conditional stock decrements and
// all-or-nothing transactions.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

type data struct {
	seq        int64
	categories map[int64]category.Category
	products   map[int64]product.Product
	users      map[int64]user.User
	orders     map[int64]order.Order
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

// clone copies d deeply enough that mutations of the copy never reach d.
func (d *data) clone() *data {
	c := &data{
		seq:        d.seq,
		categories: maps.Clone(d.categories),
		products:   maps.Clone(d.products),
		users:      maps.Clone(d.users),
		orders:     make(map[int64]order.Order, len(d.orders)),
	}
	for id, o := range d.orders {
		o.Lines = slices.Clone(o.Lines)
		c.orders[id] = o
	}
	return c
}

// Store holds all entities behind one mutex.
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data: &data{
			categories: make(map[int64]category.Category),
			products:   make(map[int64]product.Product),
			users:      make(map[int64]user.User),
			orders:     make(map[int64]order.Order),
		},
		now: time.Now,
	}
}

// do runs fn against the transaction snapshot when tx is set, or against the
// committed state under the store lock otherwise.
func (s *Store) do(tx *data, fn func(d *data) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Categories returns the category repository.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// Products returns the product repository and stock ledger.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

var _ order.Transactor = (*Store)(nil)

// WithinTx runs fn against a private copy of the store and publishes the copy
// only when fn succeeds. Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st order.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "begin")
	}
	work := s.data.clone()
	if err := fn(ctx, order.Stores{
		Orders: &OrderRepository{s: s, tx: work},
		Ledger: &ProductRepository{s: s, tx: work},
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "commit")
	}
	s.data = work
	return nil
}

func sortedByID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v := m[id]; keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

