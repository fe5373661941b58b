package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/gomarket-cart/internal/core/domain"
	"github.com/rl1809/gomarket-cart/internal/core/service"
	"github.com/rl1809/gomarket-cart/internal/port"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 64 << 10
)

type HTTPHandler struct {
	cart   port.CartManager
	logger *slog.Logger
}

type AddToCartHTTPRequest struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `json:"price"`
}

type CartItemHTTPResponse struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type CartHTTPResponse struct {
	Products []CartItemHTTPResponse `json:"products"`
}

type ErrorHTTPResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(cart port.CartManager, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{cart: cart, logger: logger}
}

// Routes registers the cart API on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddToCart)
	mux.HandleFunc("POST /api/cart/items/{id}/increment", h.Increment)
	mux.HandleFunc("POST /api/cart/items/{id}/decrement", h.Decrement)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	products, err := h.cart.Products()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(products))
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartHTTPRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	err := h.cart.AddToCart(domain.Product{
		ID:       req.ID,
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Price:    req.Price,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) Increment(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Increment(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Decrement(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.cart.Products(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrStoreClosed):
		status = http.StatusServiceUnavailable
		message = "cart store closed"
	}

	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	h.logger.Warn("cart request failed", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "status", status, "err", err)

	writeJSON(w, status, ErrorHTTPResponse{Message: message})
}

func toCartResponse(products []domain.CartItem) CartHTTPResponse {
	resp := CartHTTPResponse{Products: make([]CartItemHTTPResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, CartItemHTTPResponse{
			ID:       p.ID,
			Title:    p.Title,
			ImageURL: p.ImageURL,
			Price:    p.Price,
			Quantity: p.Quantity,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
