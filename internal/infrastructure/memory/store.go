// Package memory is an in-process Store used in development mode and as the
// test double of the relational store. A transaction holds the store mutex
// for its whole duration and works on a copy of the state that replaces the
// live state on commit, which gives the same isolation as row locks.
package memory

import (
	"context"
	"sync"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/order"
)

type sequences struct {
	category, product, cart, cartItem, order, orderItem int64
}

type state struct {
	categories map[int64]*catalog.Category
	products   map[int64]*catalog.Product
	carts      map[int64]*cart.Cart
	cartByUser map[int64]int64
	orders     map[int64]*order.Order
	seq        sequences
}

func newState() *state {
	return &state{
		categories: make(map[int64]*catalog.Category),
		products:   make(map[int64]*catalog.Product),
		carts:      make(map[int64]*cart.Cart),
		cartByUser: make(map[int64]int64),
		orders:     make(map[int64]*order.Order),
	}
}

func (s *state) clone() *state {
	cp := newState()
	cp.seq = s.seq
	for id, c := range s.categories {
		cc := *c
		cp.categories[id] = &cc
	}
	for id, p := range s.products {
		cp.products[id] = p.Clone()
	}
	for id, c := range s.carts {
		cp.carts[id] = c.Clone()
	}
	for u, id := range s.cartByUser {
		cp.cartByUser[u] = id
	}
	for id, o := range s.orders {
		cp.orders[id] = o.Clone()
	}
	return cp
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ application.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

// WithinTx runs fn against a private copy of the state. The copy becomes
// the live state only when fn returns nil. Calling the non-transactional
// repositories of the same Store from fn deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &scope{st: func() *state { return work }, lock: noLock}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Products() catalog.ProductRepository   { return s.autocommit().Products() }
func (s *Store) Categories() catalog.CategoryRepository { return s.autocommit().Categories() }
func (s *Store) Carts() cart.Repository                 { return s.autocommit().Carts() }
func (s *Store) Orders() order.Repository               { return s.autocommit().Orders() }

func (s *Store) autocommit() *scope {
	return &scope{
		st: func() *state { return s.st },
		lock: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
	}
}

func noLock() func() { return func() {} }

// scope binds repositories to a state. Inside a transaction the state is
// the working copy and the store mutex is already held.
type scope struct {
	st   func() *state
	lock func() func()
}

func (sc *scope) Products() catalog.ProductRepository   { return productRepository{sc} }
func (sc *scope) Categories() catalog.CategoryRepository { return categoryRepository{sc} }
func (sc *scope) Carts() cart.Repository                 { return cartRepository{sc} }
func (sc *scope) Orders() order.Repository               { return orderRepository{sc} }
