package catalog

import (
	"context"
	"testing"

	"resbot/internal/types"
)

type fakeReader struct {
	company  *Company
	products []Product
	variants []Variant
	loads    int
}

func (f *fakeReader) GetCompany(ctx context.Context, id types.ID) (*Company, error) {
	f.loads++
	return f.company, nil
}

func (f *fakeReader) ListProducts(ctx context.Context, companyID types.ID) ([]Product, error) {
	return f.products, nil
}

func (f *fakeReader) ListVariants(ctx context.Context, companyID types.ID) ([]Variant, error) {
	return f.variants, nil
}

func (f *fakeReader) GetProduct(ctx context.Context, id types.ID) (*Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeReader) ListResources(ctx context.Context, companyID types.ID, typ string) ([]Resource, error) {
	return nil, nil
}

func newFakeCatalog() (*Service, *fakeReader) {
	reader := &fakeReader{
		company: testCompany(),
		products: []Product{
			{ID: "p1", CompanyID: "c1", Name: "Pizza Margherita", Category: "comida", Price: 32000,
				TrackStock: true, Stock: 10, Keywords: []string{"pizza", "margherita"}, Active: true},
			{ID: "p2", CompanyID: "c1", Name: "Coca Cola", Category: "bebida", Price: 5000,
				TrackStock: true, Stock: 50, Keywords: []string{"coca", "gaseosa"}, Active: true},
			{ID: "p3", CompanyID: "c1", Name: "Lasaña", Category: "comida", Price: 28000,
				Keywords: []string{"lasaña", "lasagna"}, Active: true},
		},
		variants: testVariants(),
	}
	return NewService(reader), reader
}

func TestService_MatchProducts(t *testing.T) {
	svc, _ := newFakeCatalog()
	ctx := context.Background()

	items, err := svc.MatchProducts(ctx, "c1", "quiero una pizza margherita y una coca cola")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	byID := map[types.ID]Item{}
	for _, it := range items {
		byID[it.ProductID] = it
	}
	if byID["p1"].Quantity != 1 || byID["p2"].Quantity != 1 {
		t.Fatalf("quantities = %+v", byID)
	}
}

func TestService_MatchProductsQuantities(t *testing.T) {
	svc, _ := newFakeCatalog()
	items, err := svc.MatchProducts(context.Background(), "c1", "mandame 2 pizza margherita y tres coca cola")
	if err != nil {
		t.Fatal(err)
	}
	byID := map[types.ID]Item{}
	for _, it := range items {
		byID[it.ProductID] = it
	}
	if byID["p1"].Quantity != 2 {
		t.Fatalf("pizza quantity = %d", byID["p1"].Quantity)
	}
	if byID["p2"].Quantity != 3 {
		t.Fatalf("coca quantity = %d", byID["p2"].Quantity)
	}
}

func TestService_MatchProductsTokenBoundary(t *testing.T) {
	svc, _ := newFakeCatalog()
	// "cocacola" is not a token-boundary match for the "coca" keyword.
	items, err := svc.MatchProducts(context.Background(), "c1", "quiero cocacolada")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("unexpected matches: %+v", items)
	}
}

func TestService_CacheAndInvalidate(t *testing.T) {
	svc, reader := newFakeCatalog()
	ctx := context.Background()

	if _, err := svc.Company(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Products(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if reader.loads != 1 {
		t.Fatalf("loads = %d, want 1 (cached)", reader.loads)
	}

	svc.Invalidate("c1")
	if _, err := svc.Company(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if reader.loads != 2 {
		t.Fatalf("loads = %d, want 2 after invalidation", reader.loads)
	}
}
