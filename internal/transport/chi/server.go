// Package chi exposes the quota ledger over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quotaledger/internal/domain"
	logpkg "github.com/kailas-cloud/quotaledger/internal/logger"
	healthuc "github.com/kailas-cloud/quotaledger/internal/usecase/health"
	ledgeruc "github.com/kailas-cloud/quotaledger/internal/usecase/ledger"
	usageuc "github.com/kailas-cloud/quotaledger/internal/usecase/usage"
)

// ErrorCode identifies an API error category.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest    ErrorCode = "bad_request"
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeQuotaDepleted ErrorCode = "quota_depleted"
	CodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the quota services. Handlers log
// through the request-scoped logger installed in the context, so
// entries carry the request id.
type Server struct {
	ledger        ledgeruc.Ledger
	usage         *usageuc.Service
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ledger ledgeruc.Ledger,
	usage *usageuc.Service,
	health *healthuc.Service,
) *Server {
	s := &Server{
		ledger: ledger,
		usage:  usage,
		health: health,
	}
	s.errorHandlers = []errorHandler{
		quotaDepletedHandler,
		sentinelHandler(domain.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/quota/{subject}/spend", s.SpendQuota)
	r.Post("/v1/quota/{subject}/check", s.CheckQuota)
	r.Get("/v1/quota/{subject}", s.GetUsage)
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// spendRequest is the POST /spend body. Cost accepts a decimal dollar
// string ("$0.42") or an integer microcent count.
type spendRequest struct {
	Cost json.RawMessage `json:"cost"`
}

// SpendQuota handles POST /v1/quota/{subject}/spend.
func (s *Server) SpendQuota(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Cost) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "cost is required")
		return
	}

	cost, err := costFromJSON(req.Cost)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if err := s.ledger.Spend(r.Context(), subject, cost); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckQuota handles POST /v1/quota/{subject}/check.
func (s *Server) CheckQuota(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	if err := s.ledger.EnsureNotDepleted(r.Context(), subject); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// usageResponse is the GET /v1/quota/{subject} body.
type usageResponse struct {
	Subject             string `json:"subject"`
	Limit               string `json:"limit"`
	Used                string `json:"used"`
	Remaining           string `json:"remaining"`
	LimitMicrocents     int64  `json:"limit_microcents"`
	UsedMicrocents      int64  `json:"used_microcents"`
	RemainingMicrocents int64  `json:"remaining_microcents"`
	Exhausted           bool   `json:"exhausted"`
	ResetsAt            string `json:"resets_at"`
}

// GetUsage handles GET /v1/quota/{subject}.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	report, err := s.usage.GetReport(r.Context(), subject)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Subject:             report.Subject(),
		Limit:               report.Limit().String(),
		Used:                report.Used().String(),
		Remaining:           report.Remaining().String(),
		LimitMicrocents:     report.Limit().Microcents(),
		UsedMicrocents:      report.Used().Microcents(),
		RemainingMicrocents: report.Remaining().Microcents(),
		Exhausted:           report.IsExhausted(),
		ResetsAt:            report.ResetsAt().UTC().Format(time.RFC3339),
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// costFromJSON parses the cost field: a JSON string is a decimal dollar
// amount, a JSON number is an integer microcent count.
func costFromJSON(raw json.RawMessage) (domain.Money, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return domain.ParseMoney(str)
	}

	var mc int64
	if err := json.Unmarshal(raw, &mc); err == nil {
		if mc < 0 {
			return domain.Money{}, domain.ErrInvalidAmount
		}
		return domain.MoneyFromMicrocents(mc), nil
	}

	return domain.Money{}, domain.ErrInvalidAmount
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// quotaDepletedHandler maps a depletion to 429 with diagnostics and a
// Retry-After hint pointing at the window boundary.
func quotaDepletedHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrQuotaDepleted) {
		return false
	}

	var depleted *domain.QuotaDepletedError
	if errors.As(err, &depleted) {
		if retryAfter := time.Until(depleted.ResetsAt); retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"code":      CodeQuotaDepleted,
			"message":   msg,
			"used":      depleted.Used.String(),
			"limit":     depleted.Limit.String(),
			"resets_at": depleted.ResetsAt.UTC().Format(time.RFC3339),
		})
		return true
	}

	writeError(w, http.StatusTooManyRequests, CodeQuotaDepleted, msg)
	return true
}

// safeDomainMessage returns err's message only for known domain errors,
// so storage internals never leak into responses.
func safeDomainMessage(err error) string {
	for _, sentinel := range []error{domain.ErrInvalidAmount, domain.ErrQuotaDepleted} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
