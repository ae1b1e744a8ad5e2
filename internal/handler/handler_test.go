package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/repository/memory"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
	admin  string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokens([]byte("test-secret"), "storefront-test", time.Hour)
	require.NoError(t, err)

	users := user.NewService(store.Users(), tokens, bcrypt.MinCost)
	categories := category.NewService(store.Categories())
	orders, err := order.NewService(store.Products(), store.Orders(), store, order.WithStrictTransitions(true))
	require.NoError(t, err)

	h := NewHandler(Services{
		Users:      users,
		Categories: categories,
		Products:   product.NewService(store.Products(), store.Categories()),
		Orders:     orders,
	}, tokens)
	router := NewRouter(h, []func(http.Handler) http.Handler{
		httpmiddleware.InjectLogger(zaptest.NewLogger(t)),
	}, func(r chi.Router) {
		r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	ctx := context.Background()
	_, err = users.RegisterAdmin(ctx, user.RegisterInput{Name: "Admin", Email: "admin@shop.test", Password: "admin-pass"})
	require.NoError(t, err)
	s, err := users.Login(ctx, "admin@shop.test", "admin-pass")
	require.NoError(t, err)

	return &apiFixture{t: t, router: router, admin: s.Token}
}

type response struct {
	*httptest.ResponseRecorder
}

func (r response) object(t *testing.T) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &v), r.Body.String())
	return v
}

func (r response) array(t *testing.T) []map[string]any {
	t.Helper()
	var v []map[string]any
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &v), r.Body.String())
	return v
}

func (f *apiFixture) do(method, path, token, body string) response {
	f.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return response{w}
}

// customer registers and logs in a customer, returning its token and id.
func (f *apiFixture) customer(email string) (string, float64) {
	f.t.Helper()
	res := f.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Customer","email":"`+email+`","password":"secret1"}`)
	require.Equal(f.t, http.StatusCreated, res.Code, res.Body.String())
	id := res.object(f.t)["id"].(float64)

	res = f.do(http.MethodPost, "/api/users/login", "", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(f.t, http.StatusOK, res.Code, res.Body.String())
	return res.object(f.t)["token"].(string), id
}

// catalog creates one category and a product with the given price and stock.
func (f *apiFixture) catalog(price string, stock int) float64 {
	f.t.Helper()
	res := f.do(http.MethodPost, "/api/categories", f.admin, `{"name":"Books","description":"Paper"}`)
	require.Equal(f.t, http.StatusCreated, res.Code, res.Body.String())
	catID := res.object(f.t)["id"].(float64)

	body, err := json.Marshal(map[string]any{
		"name": "Go Book", "price": json.Number(price), "stock": stock, "categoryId": catID,
	})
	require.NoError(f.t, err)
	res = f.do(http.MethodPost, "/api/products", f.admin, string(body))
	require.Equal(f.t, http.StatusCreated, res.Code, res.Body.String())
	return res.object(f.t)["id"].(float64)
}

func formatID(id float64) string { return strconv.FormatInt(int64(id), 10) }

func assertError(t *testing.T, res response, status int, code, field string) {
	t.Helper()
	require.Equal(t, status, res.Code, res.Body.String())
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))
	body := res.object(t)
	assert.Equal(t, code, body["code"])
	assert.Equal(t, http.StatusText(status), body["error"])
	assert.NotEmpty(t, body["message"])
	if field != "" {
		assert.Equal(t, field, body["field"])
	} else {
		assert.NotContains(t, body, "field")
	}
}

func TestUsers(t *testing.T) {
	f := newAPI(t)
	token, id := f.customer("ann@shop.test")

	res := f.do(http.MethodGet, "/api/users/profile", token, "")
	require.Equal(t, http.StatusOK, res.Code)
	me := res.object(t)
	assert.Equal(t, "ann@shop.test", me["email"])
	assert.Equal(t, "CUSTOMER", me["role"])
	assert.NotContains(t, me, "password")

	assertError(t, f.do(http.MethodPost, "/api/users/register", "",
		`{"name":"Dup","email":"ANN@shop.test","password":"secret1"}`), http.StatusBadRequest, "INVALID_ARGUMENT", "email")
	assertError(t, f.do(http.MethodPost, "/api/users/login", "",
		`{"email":"ann@shop.test","password":"nope"}`), http.StatusUnauthorized, "UNAUTHORIZED", "")

	other, _ := f.customer("bob@shop.test")
	assertError(t, f.do(http.MethodGet, "/api/users/1", other, ""), http.StatusForbidden, "FORBIDDEN", "")

	res = f.do(http.MethodGet, "/api/users/"+formatID(id), f.admin, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ann@shop.test", res.object(t)["email"])
}

func TestAuthentication(t *testing.T) {
	f := newAPI(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders/my", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			assertError(t, response{w}, http.StatusUnauthorized, "UNAUTHORIZED", "")
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}

	// Catalog reads are public.
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/products", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/livez", "", "").Code)
}

func TestCatalog(t *testing.T) {
	f := newAPI(t)
	customer, _ := f.customer("ann@shop.test")
	productID := f.catalog("19.90", 3)

	res := f.do(http.MethodGet, "/api/products/"+formatID(productID), "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"price":19.90`)
	p := res.object(t)
	assert.Equal(t, "Books", p["categoryName"])
	assert.EqualValues(t, 3, p["stock"])

	catID := p["categoryId"].(float64)
	res = f.do(http.MethodGet, "/api/products/category/"+formatID(catID), "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.array(t), 1)

	assertError(t, f.do(http.MethodPost, "/api/categories", customer, `{"name":"Toys"}`),
		http.StatusForbidden, "FORBIDDEN", "")
	assertError(t, f.do(http.MethodPost, "/api/categories", f.admin, `{"name":"books"}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "name")
	assertError(t, f.do(http.MethodPost, "/api/products", f.admin, `{"name":"X","price":-1,"stock":1,"categoryId":1}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "price")
	assertError(t, f.do(http.MethodPost, "/api/products", f.admin, `{"name":"X","price":"abc","stock":1,"categoryId":1}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "price")
	assertError(t, f.do(http.MethodPost, "/api/products", f.admin, `{"name":"X","price":1e400000000,"stock":1,"categoryId":1}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "price")
	assertError(t, f.do(http.MethodPost, "/api/products", f.admin, `{"name":"X","price":1,"stock":1,"categoryId":99}`),
		http.StatusNotFound, "NOT_FOUND", "")
	assertError(t, f.do(http.MethodGet, "/api/products/abc", "", ""),
		http.StatusBadRequest, "INVALID_ARGUMENT", "id")
	assertError(t, f.do(http.MethodDelete, "/api/categories/"+formatID(catID), f.admin, ""),
		http.StatusConflict, "CONFLICT", "")

	res = f.do(http.MethodPut, "/api/categories/"+formatID(catID), f.admin, `{"name":"Novels"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Novels", res.object(t)["name"])

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/products/"+formatID(productID), f.admin, "").Code)
	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/categories/"+formatID(catID), f.admin, "").Code)
	assertError(t, f.do(http.MethodGet, "/api/categories/"+formatID(catID), "", ""),
		http.StatusNotFound, "NOT_FOUND", "")
}

func TestOrders(t *testing.T) {
	f := newAPI(t)
	ann, annID := f.customer("ann@shop.test")
	bob, _ := f.customer("bob@shop.test")
	productID := f.catalog("10.00", 5)
	pid := formatID(productID)

	res := f.do(http.MethodPost, "/api/orders", ann, `{"items":[{"productId":`+pid+`,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"totalAmount":30.00`)
	o := res.object(t)
	assert.Equal(t, "CREATED", o["status"])
	assert.Equal(t, "ann@shop.test", o["userEmail"])
	assert.Equal(t, annID, o["userId"])
	items := o["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Go Book", items[0].(map[string]any)["productName"])
	orderID := formatID(o["id"].(float64))

	stock := f.do(http.MethodGet, "/api/products/"+pid, "", "").object(t)["stock"]
	assert.EqualValues(t, 2, stock)

	assertError(t, f.do(http.MethodPost, "/api/orders", bob, `{"items":[{"productId":`+pid+`,"quantity":3}]}`),
		http.StatusConflict, "INSUFFICIENT_STOCK", "items[0].quantity")
	assertError(t, f.do(http.MethodPost, "/api/orders", bob, `{"items":[]}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "items")
	assertError(t, f.do(http.MethodPost, "/api/orders", bob, `{"items":[{"productId":`+pid+`,"quantity":0}]}`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "items[0].quantity")
	assertError(t, f.do(http.MethodPost, "/api/orders", bob, `{"items":[{"productId":999,"quantity":1}]}`),
		http.StatusNotFound, "NOT_FOUND", "")
	assertError(t, f.do(http.MethodPost, "/api/orders", bob, `{"items":`),
		http.StatusBadRequest, "INVALID_ARGUMENT", "body")
	assertError(t, f.do(http.MethodPost, "/api/orders", f.admin, `{"items":[{"productId":`+pid+`,"quantity":1}]}`),
		http.StatusForbidden, "FORBIDDEN", "")

	assertError(t, f.do(http.MethodGet, "/api/orders/"+orderID, bob, ""), http.StatusForbidden, "FORBIDDEN", "")
	assertError(t, f.do(http.MethodGet, "/api/orders/user/"+formatID(annID), bob, ""), http.StatusForbidden, "FORBIDDEN", "")
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/orders/"+orderID, ann, "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/orders/"+orderID, f.admin, "").Code)
	assert.Len(t, f.do(http.MethodGet, "/api/orders/my", ann, "").array(t), 1)
	assert.Len(t, f.do(http.MethodGet, "/api/orders/my", bob, "").array(t), 0)

	assertError(t, f.do(http.MethodPatch, "/api/orders/"+orderID+"/status?status=CONFIRMED", ann, ""),
		http.StatusForbidden, "FORBIDDEN", "")
	assertError(t, f.do(http.MethodPatch, "/api/orders/"+orderID+"/status?status=SHIPPED", f.admin, ""),
		http.StatusBadRequest, "INVALID_ARGUMENT", "status")
	assertError(t, f.do(http.MethodPatch, "/api/orders/"+orderID+"/status", f.admin, ""),
		http.StatusBadRequest, "INVALID_ARGUMENT", "status")

	res = f.do(http.MethodPatch, "/api/orders/"+orderID+"/status?status=confirmed", f.admin, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "CONFIRMED", res.object(t)["status"])

	assertError(t, f.do(http.MethodPatch, "/api/orders/"+orderID+"/status?status=CANCELLED", f.admin, ""),
		http.StatusConflict, "CONFLICT", "")

	assertError(t, f.do(http.MethodGet, "/api/orders/all", ann, ""), http.StatusForbidden, "FORBIDDEN", "")
	assert.Len(t, f.do(http.MethodGet, "/api/orders/all", f.admin, "").array(t), 1)
	assert.Len(t, f.do(http.MethodGet, "/api/orders/all?status=CONFIRMED", f.admin, "").array(t), 1)
	assert.Len(t, f.do(http.MethodGet, "/api/orders/all?status=CANCELLED", f.admin, "").array(t), 0)
}

func TestRouting(t *testing.T) {
	f := newAPI(t)
	assertError(t, f.do(http.MethodGet, "/api/nope", "", ""), http.StatusNotFound, "NOT_FOUND", "")
	assertError(t, f.do(http.MethodPut, "/api/users/login", "", ""), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "")
}
