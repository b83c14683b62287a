// README: Catalog service — cached lookups and product matching from free text.
package catalog

import (
	"context"
	"strings"
	"sync"

	"resbot/internal/types"
)

// Reader is the slice of the store the service needs; *Store satisfies it.
type Reader interface {
	GetCompany(ctx context.Context, id types.ID) (*Company, error)
	ListProducts(ctx context.Context, companyID types.ID) ([]Product, error)
	ListVariants(ctx context.Context, companyID types.ID) ([]Variant, error)
	GetProduct(ctx context.Context, id types.ID) (*Product, error)
	ListResources(ctx context.Context, companyID types.ID, typ string) ([]Resource, error)
}

type companyCache struct {
	company  *Company
	products []Product
	variants []Variant
}

// Service caches catalog reads per company. Caches are read-mostly and
// rebuilt by a single writer on invalidation events.
type Service struct {
	store Reader

	mu    sync.RWMutex
	cache map[types.ID]*companyCache
}

func NewService(store Reader) *Service {
	return &Service{store: store, cache: make(map[types.ID]*companyCache)}
}

// Invalidate drops one company's cache entry.
func (s *Service) Invalidate(companyID types.ID) {
	s.mu.Lock()
	delete(s.cache, companyID)
	s.mu.Unlock()
}

// InvalidateAll drops every cache entry (cache.invalidate-all events).
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[types.ID]*companyCache)
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context, companyID types.ID) (*companyCache, error) {
	s.mu.RLock()
	c, ok := s.cache[companyID]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	products, err := s.store.ListProducts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	variants, err := s.store.ListVariants(ctx, companyID)
	if err != nil {
		return nil, err
	}
	c = &companyCache{company: company, products: products, variants: variants}

	s.mu.Lock()
	s.cache[companyID] = c
	s.mu.Unlock()
	return c, nil
}

func (s *Service) Company(ctx context.Context, companyID types.ID) (*Company, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return c.company, nil
}

func (s *Service) Products(ctx context.Context, companyID types.ID) ([]Product, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return c.products, nil
}

func (s *Service) Variants(ctx context.Context, companyID types.ID) ([]Variant, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return c.variants, nil
}

// Resources lists active resources; reads pass through to the store since
// resource availability changes out-of-band.
func (s *Service) Resources(ctx context.Context, companyID types.ID, typ string) ([]Resource, error) {
	return s.store.ListResources(ctx, companyID, typ)
}

// Resolve wraps ResolveService with cached company and variants.
func (s *Service) Resolve(ctx context.Context, companyID types.ID, serviceKey string) (*ServiceConfig, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return ResolveService(c.company, c.variants, serviceKey)
}

// MatchProducts scans normalized text for product mentions and returns items
// with quantities. A spelled or digit quantity within the two tokens before
// the product name applies to it; otherwise the quantity is one.
func (s *Service) MatchProducts(ctx context.Context, companyID types.ID, text string) ([]Item, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, p := range c.products {
		pos := matchPosition(text, p)
		if pos < 0 {
			continue
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  quantityBefore(text, pos),
			UnitPrice: p.Price,
		})
	}
	return items, nil
}

// matchPosition returns the byte offset at which the product is mentioned in
// the text, or -1. The full product name takes precedence over keywords.
func matchPosition(text string, p Product) int {
	if i := strings.Index(text, strings.ToLower(p.Name)); i >= 0 {
		return i
	}
	for _, kw := range p.Keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if i := indexToken(text, kw); i >= 0 {
			return i
		}
	}
	return -1
}

// indexToken finds kw in text on token boundaries.
func indexToken(text, kw string) int {
	from := 0
	for {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return -1
		}
		i += from
		before := i == 0 || text[i-1] == ' '
		after := i+len(kw) == len(text) || text[i+len(kw)] == ' ' || isPunct(text[i+len(kw)])
		if before && after {
			return i
		}
		from = i + len(kw)
	}
}

func isPunct(b byte) bool {
	return b == ',' || b == '.' || b == '?' || b == '!' || b == ';'
}

// quantityBefore scans up to two tokens preceding pos for a count.
func quantityBefore(text string, pos int) int {
	prefix := strings.Fields(strings.TrimSpace(text[:pos]))
	for i := len(prefix) - 1; i >= 0 && i >= len(prefix)-2; i-- {
		if n, ok := smallNumber(prefix[i]); ok && n >= 1 && n <= 100 {
			return n
		}
	}
	return 1
}

var spelledCounts = map[string]int{
	"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

func smallNumber(tok string) (int, bool) {
	if n, ok := spelledCounts[tok]; ok {
		return n, true
	}
	n := 0
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if tok == "" {
		return 0, false
	}
	return n, true
}
