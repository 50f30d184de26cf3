package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/punchamoorthee/walletops/internal/models"
	"github.com/punchamoorthee/walletops/internal/service"
	"github.com/punchamoorthee/walletops/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// identityHeader carries the authenticated account id resolved by the
// upstream identity collaborator. This service trusts it and only layers the
// distributor-role check on top.
const identityHeader = "X-Account-Id"

// Logger is the minimal logging dependency; *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type Handler struct {
	store  *store.Store
	wallet *service.Wallet
	logger Logger
}

func NewHandler(s *store.Store, w *service.Wallet) *Handler {
	return &Handler{store: s, wallet: w, logger: log.Default()}
}

// Router mounts every route of the service, /metrics and /health included.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")
	apiV1.HandleFunc("/orders", h.CreateOrderHandler).Methods("POST")
	apiV1.HandleFunc("/orders/{id}", h.GetOrderHandler).Methods("GET")
	apiV1.HandleFunc("/payments/callback", h.PaymentCallbackHandler).Methods("POST")
	apiV1.HandleFunc("/accounts/{id}/balance", h.GetAccountBalanceHandler).Methods("GET")
	apiV1.HandleFunc("/accounts/{id}/transactions", h.GetAccountTransactionsHandler).Methods("GET")
	return r
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	callerID := r.Header.Get(identityHeader)
	if callerID == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing caller identity", "POST", "/transfers")
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}

	result, err := h.wallet.Transfer(r.Context(), callerID, req)
	if err != nil {
		h.logEvent("transfer_failed", map[string]any{
			"from":   callerID,
			"to":     req.ToUserID,
			"amount": req.Amount,
			"kind":   string(service.KindOf(err)),
		})
		respondWithServiceError(w, err, "POST", "/transfers")
		return
	}

	h.logEvent("transfer_created", map[string]any{
		"entry_id": result.LedgerEntryID,
		"from":     result.FromAccountID,
		"to":       result.ToAccountID,
		"amount":   result.Amount,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/v1/accounts/%s/transactions", result.ToAccountID))
	respondWithJSON(w, http.StatusCreated, result, "POST", "/transfers")
}

func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/orders"))
	defer timer.ObserveDuration()

	accountID := r.Header.Get(identityHeader)
	if accountID == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing caller identity", "POST", "/orders")
		return
	}

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/orders")
		return
	}

	order, err := h.wallet.CreateOrder(r.Context(), accountID, req.Amount)
	if err != nil {
		respondWithServiceError(w, err, "POST", "/orders")
		return
	}

	h.logEvent("order_created", map[string]any{
		"order_id":   order.ID,
		"account_id": order.AccountID,
		"amount":     order.Amount,
	})
	respondWithJSON(w, http.StatusCreated, order, "POST", "/orders")
}

// PaymentCallbackHandler receives the gateway's asynchronous callback. The
// gateway delivers at least once and retries on non-2xx, so only terminal
// client errors (unknown order, no order id) answer 4xx; store trouble
// answers 5xx/409 to provoke a redelivery.
func (h *Handler) PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/payments/callback"))
	defer timer.ObserveDuration()

	payload, err := callbackPayload(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unreadable callback payload", "POST", "/payments/callback")
		return
	}

	result, err := h.wallet.ReconcileCallback(r.Context(), payload)
	if err != nil {
		h.logEvent("callback_rejected", map[string]any{
			"kind": string(service.KindOf(err)),
		})
		respondWithServiceError(w, err, "POST", "/payments/callback")
		return
	}

	h.logEvent("callback_reconciled", map[string]any{
		"order_id": result.OrderID,
		"status":   result.Status,
		"replayed": result.Replayed,
	})
	respondWithJSON(w, http.StatusOK, result, "POST", "/payments/callback")
}

func (h *Handler) GetAccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	acct, err := h.wallet.AccountBalance(r.Context(), accountID)
	if err != nil {
		respondWithServiceError(w, err, "GET", "/accounts/{id}/balance")
		return
	}
	respondWithJSON(w, http.StatusOK, acct, "GET", "/accounts/{id}/balance")
}

func (h *Handler) GetAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.store.TransactionsByAccount(r.Context(), accountID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/accounts/{id}/transactions")
		return
	}
	if entries == nil {
		entries = []models.WalletTransaction{}
	}
	respondWithJSON(w, http.StatusOK, entries, "GET", "/accounts/{id}/transactions")
}

func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.wallet.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, err, "GET", "/orders/{id}")
		return
	}
	respondWithJSON(w, http.StatusOK, order, "GET", "/orders/{id}")
}

// callbackPayload flattens either a form-encoded or a JSON callback body into
// a string map. Gateways disagree on encoding as much as on field names.
func callbackPayload(r *http.Request) (map[string]string, error) {
	payload := make(map[string]string)

	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				payload[k] = val
			case float64:
				payload[k] = strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				payload[k] = strconv.FormatBool(val)
			case nil:
			default:
				b, _ := json.Marshal(val)
				payload[k] = string(b)
			}
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			payload[k] = vals[0]
		}
	}
	return payload, nil
}

func respondWithServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	var svcErr *service.Error
	msg := "Internal Server Error"
	if errors.As(err, &svcErr) {
		msg = svcErr.Msg
	}
	respondWithError(w, statusForKind(service.KindOf(err)), msg, method, endpoint)
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindInvalidArgument:
		return http.StatusBadRequest
	case service.KindPermissionDenied:
		return http.StatusForbidden
	case service.KindFailedPrecondition:
		return http.StatusUnprocessableEntity
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(w http.ResponseWriter, code int, message, method, endpoint string) {
	respondWithJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
