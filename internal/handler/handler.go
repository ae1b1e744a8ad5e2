// Package handler exposes the domain services over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

// TokenVerifier resolves a bearer token to the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Services groups the domain services served by the Handler.
type Services struct {
	Users      *user.Service
	Categories *category.Service
	Products   *product.Service
	Orders     *order.Service
}

// Handler serves the /api routes.
type Handler struct {
	users      *user.Service
	categories *category.Service
	products   *product.Service
	orders     *order.Service
	tokens     TokenVerifier
}

// NewHandler constructs a Handler.
func NewHandler(s Services, tokens TokenVerifier) *Handler {
	return &Handler{
		users:      s.Users,
		categories: s.Categories,
		products:   s.Products,
		orders:     s.Orders,
		tokens:     tokens,
	}
}

// Routes registers every API route on r. Catalog reads, registration and
// login are public; everything else requires a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/profile", h.profile)
			r.Get("/{id}", h.getUser)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Get("/{id}", h.getCategory)
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/", h.createCategory)
			r.Put("/{id}", h.updateCategory)
			r.Delete("/{id}", h.deleteCategory)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Get("/category/{categoryId}", h.listProductsByCategory)
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/", h.placeOrder)
		r.Get("/my", h.myOrders)
		r.Get("/all", h.allOrders)
		r.Get("/user/{userId}", h.userOrders)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/status", h.updateOrderStatus)
	})
}

// NewRouter returns a chi router with middlewares installed and the API
// mounted under /api. Extra mounts, such as health probes, are applied
// before the API routes.
func NewRouter(h *Handler, middlewares []func(http.Handler) http.Handler, mounts func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethodNotAllowed)
	})
	if mounts != nil {
		mounts(r)
	}
	r.Route("/api", h.Routes)
	return r
}
