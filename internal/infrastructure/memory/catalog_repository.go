package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/candleshop/shop/internal/domain/catalog"
)

type productRepository struct{ sc *scope }

func (r productRepository) Insert(_ context.Context, p *catalog.Product) error {
	defer r.sc.lock()()
	st := r.sc.st()

	for _, existing := range st.products {
		if existing.Slug == p.Slug {
			return catalog.ErrDuplicateName
		}
	}
	if _, ok := st.categories[p.CategoryID]; !ok {
		return catalog.ErrNotFound
	}
	st.seq.product++
	p.ID = st.seq.product
	st.products[p.ID] = p.Clone()
	return nil
}

func (r productRepository) Get(_ context.Context, id int64) (*catalog.Product, error) {
	defer r.sc.lock()()
	p, ok := r.sc.st().products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p.Clone(), nil
}

func (r productRepository) GetBySlug(_ context.Context, slug string) (*catalog.Product, error) {
	defer r.sc.lock()()
	for _, p := range r.sc.st().products {
		if p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (r productRepository) List(_ context.Context, filter catalog.ProductFilter) ([]*catalog.Product, error) {
	defer r.sc.lock()()
	st := r.sc.st()

	categoryID := int64(0)
	if filter.CategorySlug != "" {
		for _, c := range st.categories {
			if c.Slug == filter.CategorySlug {
				categoryID = c.ID
			}
		}
		if categoryID == 0 {
			return []*catalog.Product{}, nil
		}
	}

	out := make([]*catalog.Product, 0, len(st.products))
	for _, p := range st.products {
		if categoryID != 0 && p.CategoryID != categoryID {
			continue
		}
		if filter.AvailableOnly && !p.Available {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name || (out[i].Name == out[j].Name && out[i].ID < out[j].ID) })
	return out, nil
}

func (r productRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	defer r.sc.lock()()
	for _, p := range r.sc.st().products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepository) LockByIDs(_ context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	defer r.sc.lock()()
	st := r.sc.st()
	out := make(map[int64]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := st.products[id]; ok {
			out[id] = p.Clone()
		}
	}
	return out, nil
}

func (r productRepository) UpdateStock(_ context.Context, p *catalog.Product) error {
	defer r.sc.lock()()
	cur, ok := r.sc.st().products[p.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	cur.StockQty = p.StockQty
	cur.Available = p.StockQty > 0
	return nil
}

func (r productRepository) Delete(_ context.Context, id int64) error {
	defer r.sc.lock()()
	st := r.sc.st()
	if _, ok := st.products[id]; !ok {
		return catalog.ErrNotFound
	}
	for _, o := range st.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return catalog.ErrProductReferenced
			}
		}
	}
	for _, c := range st.carts {
		for _, it := range c.Items {
			if it.ProductID == id {
				return catalog.ErrProductReferenced
			}
		}
	}
	delete(st.products, id)
	return nil
}

type categoryRepository struct{ sc *scope }

func (r categoryRepository) Insert(_ context.Context, c *catalog.Category) error {
	defer r.sc.lock()()
	st := r.sc.st()
	for _, existing := range st.categories {
		if strings.EqualFold(existing.Name, c.Name) || existing.Slug == c.Slug {
			return catalog.ErrDuplicateName
		}
	}
	st.seq.category++
	c.ID = st.seq.category
	cc := *c
	st.categories[c.ID] = &cc
	return nil
}

func (r categoryRepository) Get(_ context.Context, id int64) (*catalog.Category, error) {
	defer r.sc.lock()()
	c, ok := r.sc.st().categories[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (r categoryRepository) GetBySlug(_ context.Context, slug string) (*catalog.Category, error) {
	defer r.sc.lock()()
	for _, c := range r.sc.st().categories {
		if c.Slug == slug {
			cc := *c
			return &cc, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (r categoryRepository) List(_ context.Context) ([]*catalog.Category, error) {
	defer r.sc.lock()()
	st := r.sc.st()
	out := make([]*catalog.Category, 0, len(st.categories))
	for _, c := range st.categories {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	defer r.sc.lock()()
	for _, c := range r.sc.st().categories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r categoryRepository) NameExists(_ context.Context, name string) (bool, error) {
	defer r.sc.lock()()
	for _, c := range r.sc.st().categories {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
