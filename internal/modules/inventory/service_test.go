// README: Concurrency tests for stock reservation (run with -race; needs a live database).
package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

// setupTestStore connects to the database named by RESBOT_TEST_DB_DSN and
// skips the test when it is unset.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("RESBOT_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("RESBOT_TEST_DB_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func seedProduct(t *testing.T, s *Store, stock, minStock int) types.ID {
	t.Helper()
	ctx := context.Background()
	companyID := "test-" + uuid.NewString()
	productID := types.ID("prod-" + uuid.NewString())
	_, err := s.db.Exec(ctx, `
        INSERT INTO companies (id, name, type) VALUES ($1, 'Test Co', 'restaurant')`, companyID)
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO products (id, company_id, name, category, price, track_stock, stock, min_stock, active)
        VALUES ($1, $2, 'Last Slice', 'comida', 1000, TRUE, $3, $4, TRUE)`,
		string(productID), companyID, stock, minStock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return productID
}

// TestConcurrentReserveLastUnit exercises the FOR UPDATE NOWAIT protocol:
// two reservations race for the last unit; exactly one commits and the loser
// leaves no stock movement behind.
func TestConcurrentReserveLastUnit(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, zerolog.Nop(), nil)
	ctx := context.Background()

	productID := seedProduct(t, store, 1, 0)
	items := []catalog.Item{{ProductID: productID, Name: "Last Slice", Quantity: 1, UnitPrice: 1000}}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs <- svc.ReserveStock(ctx, items, fmt.Sprintf("res-%d", i), "u1")
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("successes = %d, want exactly 1", success)
	}

	st, err := svc.CheckStock(ctx, productID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentStock != 0 {
		t.Fatalf("stock = %d, want 0", st.CurrentStock)
	}

	// Exactly one movement exists across both correlations.
	total := 0
	for i := 0; i < 2; i++ {
		ms, err := svc.Movements(ctx, fmt.Sprintf("res-%d", i))
		if err != nil {
			t.Fatal(err)
		}
		total += len(ms)
	}
	if total != 1 {
		t.Fatalf("movements = %d, want 1 (loser must write none)", total)
	}
}

// TestMovementLedgerBalances verifies stock(t) = stock0 + Σ movement.qty.
func TestMovementLedgerBalances(t *testing.T) {
	store := setupTestStore(t)
	events := make([]LowStockEvent, 0, 1)
	svc := NewService(store, zerolog.Nop(), func(ev LowStockEvent) { events = append(events, ev) })
	ctx := context.Background()

	productID := seedProduct(t, store, 10, 3)
	items := []catalog.Item{{ProductID: productID, Name: "Last Slice", Quantity: 4, UnitPrice: 1000}}

	if err := svc.ReserveStock(ctx, items, "res-a", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ReserveStock(ctx, items, "res-b", "u1"); err != nil {
		t.Fatal(err)
	}
	// 10 - 4 - 4 = 2 <= minStock 3: the second reserve fires a low-stock event.
	if len(events) != 1 || events[0].Stock != 2 {
		t.Fatalf("low stock events = %+v", events)
	}

	if err := svc.ReleaseStock(ctx, items, "cancellation", "res-a"); err != nil {
		t.Fatal(err)
	}
	st, err := svc.CheckStock(ctx, productID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentStock != 6 {
		t.Fatalf("stock = %d, want 6", st.CurrentStock)
	}

	sum := 0
	for _, corr := range []string{"res-a", "res-b"} {
		ms, err := svc.Movements(ctx, corr)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range ms {
			sum += m.Quantity
		}
	}
	if 10+sum != st.CurrentStock {
		t.Fatalf("ledger does not balance: stock0=10 sum=%d stock=%d", sum, st.CurrentStock)
	}
}

// TestAdjustStockNeverNegative guards the administrative path.
func TestAdjustStockNeverNegative(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, zerolog.Nop(), nil)
	ctx := context.Background()

	productID := seedProduct(t, store, 2, 0)
	if err := svc.AdjustStock(ctx, productID, -5, "shrinkage"); !errors.Is(err, ErrNegativeStock) {
		t.Fatalf("err = %v, want ErrNegativeStock", err)
	}
	if err := svc.AdjustStock(ctx, productID, -2, "shrinkage"); err != nil {
		t.Fatal(err)
	}
	st, _ := svc.CheckStock(ctx, productID, 1)
	if st.CurrentStock != 0 {
		t.Fatalf("stock = %d", st.CurrentStock)
	}
}
