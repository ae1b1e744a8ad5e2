//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestSeededCatalog(t *testing.T) {
	resp := doGet(t, "/api/categories")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	categories := decodeJSON[[]categoryResponse](t, resp)
	names := make(map[string]int64, len(categories))
	for _, c := range categories {
		names[c.Name] = c.ID
	}
	books, ok := names["Books"]
	if !ok {
		t.Fatalf("seeded category Books missing: %v", names)
	}

	resp = doGet(t, fmt.Sprintf("/api/products/category/%d", books))
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 3 {
		t.Fatalf("expected 3 books, got %d", len(products))
	}
	for _, p := range products {
		if p.CategoryName != "Books" {
			t.Errorf("product %d categoryName: got %q", p.ID, p.CategoryName)
		}
	}
}

func TestCatalogAdmin(t *testing.T) {
	p := newProduct(t, "9.99", 4)
	if p.Price.String() != "9.99" || p.Stock != 4 {
		t.Fatalf("unexpected product: %+v", p)
	}

	token, _ := newCustomer(t)
	expectError(t, do(t, http.MethodPost, "/api/categories", token, map[string]string{"name": "nope"}),
		http.StatusForbidden, "FORBIDDEN")
	expectError(t, do(t, http.MethodPost, "/api/categories", "", map[string]string{"name": "nope"}),
		http.StatusUnauthorized, "UNAUTHORIZED")

	e := expectError(t, do(t, http.MethodPost, "/api/products", adminToken, map[string]any{
		"name": "bad", "price": -1, "stock": 1, "categoryId": p.CategoryID,
	}), http.StatusBadRequest, "INVALID_ARGUMENT")
	if e.Field != "price" {
		t.Errorf("field: got %q, want price", e.Field)
	}

	resp := do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", p.ID), adminToken, map[string]any{
		"name": p.Name, "price": "12.00", "stock": 6, "categoryId": p.CategoryID,
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if got := decodeJSON[productResponse](t, resp); got.Price.String() != "12.00" || got.Stock != 6 {
		t.Errorf("unexpected updated product: %+v", got)
	}

	expectError(t, do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", p.CategoryID), adminToken, nil),
		http.StatusConflict, "CONFLICT")

	resp = do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", p.ID), adminToken, nil)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNoContent)

	expectError(t, doGet(t, fmt.Sprintf("/api/products/%d", p.ID)), http.StatusNotFound, "NOT_FOUND")
}

func TestUnknownRoute(t *testing.T) {
	expectError(t, doGet(t, "/api/nothing"), http.StatusNotFound, "NOT_FOUND")
}
