package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avelar/supermarket-pos/internal/billing"
	"github.com/avelar/supermarket-pos/internal/config"
	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
	"github.com/avelar/supermarket-pos/internal/store"
)

var log = logrus.New()

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Load config")
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Connect to database")
	}
	defer db.Close()

	log.Info("Connected to database")

	sessions := billing.NewSessions(cfg.Billing.SessionTTL)
	go sessions.Run(context.Background())

	catalog := billing.CatalogFunc(func(ctx context.Context, code string) (*models.Product, error) {
		return store.FindProductByCode(ctx, db, code)
	})

	r := chi.NewRouter()

	r.Post("/login", handleLogin(db))
	r.Post("/logout", handleLogout(db))

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handleListProducts(db))
		r.Post("/", handleCreateProduct(db))
		r.Get("/low-stock", handleLowStock(db, cfg.Billing.LowStockThreshold))
		r.Get("/{code}", handleGetProduct(db))
		r.Put("/{code}", handleUpdateProduct(db))
		r.Delete("/{code}", handleDeleteProduct(db))
	})

	r.Route("/roles", func(r chi.Router) {
		r.Get("/", handleListRoles(db))
		r.Post("/", handleCreateUser(db))
		r.Put("/{role}", handleUpdateRole(db))
		r.Delete("/{role}", handleDeleteRole(db))
	})

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", handleCreateCart(sessions))
		r.Get("/{id}", handleGetCart(sessions))
		r.Delete("/{id}", handleAbandonCart(sessions))
		r.Post("/{id}/items", handleAddItem(sessions, catalog))
		r.Put("/{id}/items/{code}", handleUpdateItem(sessions, catalog))
		r.Delete("/{id}/items/{code}", handleRemoveItem(sessions))
		r.Post("/{id}/checkout", handleCheckout(db, sessions))
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", handleListSales(db))
		r.Get("/{id}", handleGetSale(db))
	})

	r.Get("/reports/total-income", handleTotalIncome(db))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.WithField("port", cfg.Server.Port).Info("Server starting")
	if err := server.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("Server error")
	}
}

func handleLogin(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := store.Authenticate(r.Context(), db, req.Username, req.Password)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleLogout(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := store.SetUserStatus(r.Context(), db, req.Username, models.UserStatusOffline); err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": models.UserStatusOffline})
	}
}

func handleListProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		result, err := store.ListProducts(r.Context(), db, page, pageSize)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleCreateProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code     string  `json:"product_code"`
			Name     string  `json:"name"`
			Category string  `json:"category"`
			Price    float64 `json:"price"`
			Quantity int     `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Code == "" || req.Name == "" || req.Price < 0 || req.Quantity < 0 {
			respondError(w, http.StatusBadRequest, "Invalid product fields")
			return
		}

		price := decimal.NewFromFloat(req.Price)
		product, err := store.CreateProduct(r.Context(), db, req.Code, req.Name, req.Category, price, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, product)
	}
}

func handleGetProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := store.FindProductByCode(r.Context(), db, chi.URLParam(r, "code"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleUpdateProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string  `json:"name"`
			Category string  `json:"category"`
			Price    float64 `json:"price"`
			Quantity int     `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || req.Price < 0 || req.Quantity < 0 {
			respondError(w, http.StatusBadRequest, "Invalid product fields")
			return
		}

		price := decimal.NewFromFloat(req.Price)
		product, err := store.UpdateProduct(r.Context(), db, chi.URLParam(r, "code"), req.Name, req.Category, price, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleDeleteProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteProduct(r.Context(), db, chi.URLParam(r, "code")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLowStock(db *sql.DB, defaultThreshold int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := defaultThreshold
		if v := r.URL.Query().Get("threshold"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
				threshold = parsed
			}
		}

		products, err := store.ListLowStock(r.Context(), db, threshold)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"threshold": threshold,
			"items":     products,
		})
	}
}

func handleListRoles(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListRoles(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, users)
	}
}

func handleCreateUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
			models.Permissions
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" || req.Role == "" {
			respondError(w, http.StatusBadRequest, "Username, password and role are required")
			return
		}

		user, err := store.CreateUser(r.Context(), db, req.Username, req.Password, req.Role, req.Permissions)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, user)
	}
}

func handleUpdateRole(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.Permissions
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := store.UpdateRolePermissions(r.Context(), db, chi.URLParam(r, "role"), req); err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, req)
	}
}

func handleDeleteRole(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteRole(r.Context(), db, chi.URLParam(r, "role")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type cartView struct {
	SessionID       string          `json:"session_id"`
	Lines           []billing.Line  `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
}

func viewCart(id string, cart *billing.Cart, discount decimal.Decimal) cartView {
	subtotal := cart.Subtotal()
	return cartView{
		SessionID:       id,
		Lines:           cart.Lines(),
		Subtotal:        subtotal,
		DiscountPercent: billing.NormalizeDiscount(discount),
		DiscountedTotal: billing.DiscountedTotal(subtotal, discount),
	}
}

func handleCreateCart(sessions *billing.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, cart := sessions.Create()
		respondJSON(w, http.StatusCreated, viewCart(id, cart, decimal.Zero))
	}
}

func handleGetCart(sessions *billing.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cart, err := sessions.Get(id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		discount := billing.ParseDiscount(r.URL.Query().Get("discount"))
		respondJSON(w, http.StatusOK, viewCart(id, cart, discount))
	}
}

func handleAbandonCart(sessions *billing.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Abandon(chi.URLParam(r, "id")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddItem(sessions *billing.Sessions, catalog billing.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cart, err := sessions.Get(id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		var req struct {
			ProductCode string `json:"product_code"`
			Quantity    int    `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if _, err := cart.AddItem(r.Context(), catalog, req.ProductCode, req.Quantity); err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, viewCart(id, cart, decimal.Zero))
	}
}

func handleUpdateItem(sessions *billing.Sessions, catalog billing.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cart, err := sessions.Get(id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if _, err := cart.UpdateQuantity(r.Context(), catalog, chi.URLParam(r, "code"), req.Quantity); err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, viewCart(id, cart, decimal.Zero))
	}
}

func handleRemoveItem(sessions *billing.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cart, err := sessions.Get(id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if err := cart.RemoveItem(chi.URLParam(r, "code")); err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, viewCart(id, cart, decimal.Zero))
	}
}

func handleCheckout(db *sql.DB, sessions *billing.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cart, err := sessions.Get(id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		var req struct {
			Discount      string `json:"discount"`
			PaymentMethod string `json:"payment_method"`
			CashTendered  string `json:"cash_tendered"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tendered := decimal.Zero
		if req.PaymentMethod == models.PaymentCash {
			tendered, err = decimal.NewFromString(req.CashTendered)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid cash amount. Please enter a valid number.")
				return
			}
		}

		discount := billing.ParseDiscount(req.Discount)

		result, err := billing.Checkout(r.Context(), db, cart, discount, req.PaymentMethod, tendered)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if err := sessions.Abandon(id); err != nil {
			log.WithError(err).WithField("session", id).Warn("Drop settled session")
		}

		log.WithFields(logrus.Fields{
			"sale_id": result.Sale.ID,
			"total":   result.Sale.TotalAmount.StringFixed(2),
			"method":  result.Sale.PaymentMethod,
		}).Info("Sale settled")

		respondJSON(w, http.StatusCreated, result)
	}
}

func handleListSales(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		result, err := store.ListSalesCursor(r.Context(), db, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetSale(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sale ID")
			return
		}

		sale, err := store.GetSale(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, sale)
	}
}

func handleTotalIncome(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := store.TotalIncome(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"total_income": total.StringFixed(2)})
	}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// respondStoreError maps the billing error taxonomy onto HTTP statuses.
// Everything here is recoverable: the client reports it and the operator
// stays in the flow.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrSaleNotFound),
		errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrRoleNotFound),
		errors.Is(err, billing.ErrSessionNotFound),
		errors.Is(err, billing.ErrLineNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, database.ErrOutOfStock),
		errors.Is(err, database.ErrDuplicateProductCode):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrInsufficientPayment):
		respondError(w, http.StatusPaymentRequired, "Insufficient payment. Please enter a valid amount.")
	case errors.Is(err, billing.ErrEmptyCart),
		errors.Is(err, billing.ErrInvalidQuantity),
		errors.Is(err, billing.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Error("Internal error")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
