package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPProvider_CreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkouts" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer prv_test_123" {
			t.Errorf("auth header = %q", got)
		}
		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Amount != 3200000 || req.Reference == "" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(Checkout{
			PaymentID:  "pay_1",
			PaymentURL: "https://checkout.example/abc",
			Status:     StatusPending,
			Reference:  req.Reference,
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	out, err := p.CreateCheckout(context.Background(), "prv_test_123", CheckoutRequest{
		CompanyID: "c1", ConversationID: "conv1", Amount: 3200000,
		Description: "Pedido La Trattoria", Reference: "ref-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.PaymentURL != "https://checkout.example/abc" || out.Status != StatusPending {
		t.Fatalf("checkout = %+v", out)
	}
}

func TestHTTPProvider_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	_, err := p.CreateCheckout(context.Background(), "k", CheckoutRequest{Reference: "r"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatal("PENDING must not be terminal")
	}
	for _, s := range []Status{StatusApproved, StatusDeclined, StatusVoided, StatusExpired} {
		if !s.Terminal() {
			t.Errorf("%s not terminal", s)
		}
	}
}
