package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger    *slog.Logger
	ledger    *service.LedgerService
	analytics *service.AnalyticsService
	importer  *service.Importer
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, ledger *service.LedgerService, analytics *service.AnalyticsService, importer *service.Importer) *APIHandlers {
	return &APIHandlers{
		logger:    logger,
		ledger:    ledger,
		analytics: analytics,
		importer:  importer,
	}
}

func (h *APIHandlers) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPayment(w, r)
	case http.MethodGet:
		h.listPayments(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handlePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	paymentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/payments/"), "/")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "payment ID is required")
		return
	}
	teamID := r.URL.Query().Get("teamId")

	if err := h.ledger.DeletePayment(r.Context(), teamID, paymentID); err != nil {
		h.writeServiceError(w, err, "failed to delete payment", "paymentId", paymentID)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "deleted", ID: paymentID})
}

func (h *APIHandlers) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	input, err := req.toServiceInput("")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.ledger.AppendPayment(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to append payment", "teamId", input.TeamID)
		return
	}
	respondJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *APIHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	values := r.URL.Query()

	page, err := h.ledger.ListPayments(r.Context(), service.ListPaymentsParams{
		Query:     q,
		Page:      parseInt(values.Get("page"), 1),
		PageSize:  parseInt(values.Get("pageSize"), 0),
		ClientID:  values.Get("clientId"),
		SortField: values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to list payments", "teamId", q.TeamID)
		return
	}

	items := make([]paymentResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toPaymentResponse(p))
	}
	respondJSON(w, http.StatusOK, paymentsListResponse{
		Items: items,
		Pagination: paginationResponse{
			Page:       page.Pagination.Page,
			PageSize:   page.Pagination.PageSize,
			TotalItems: page.Pagination.TotalItems,
			TotalPages: page.Pagination.TotalPages,
		},
	})
}

func (h *APIHandlers) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if h.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "import is not enabled")
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	rows := make([]service.ImportRow, 0, len(req.Rows))
	for i, row := range req.Rows {
		input, err := row.toServiceInput(req.TeamID)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("row %d: %v", i+1, err))
			return
		}
		rows = append(rows, service.ImportRow{PaymentInput: input, ChatterUsername: row.ChatterUsername})
	}

	report, err := h.importer.Import(r.Context(), req.TeamID, rows)
	resp := importResponse{
		Total:      report.Total,
		Imported:   report.Imported,
		Failed:     report.Failed,
		DurationMs: report.Duration.Milliseconds(),
		Errors:     []string{},
	}

	var taskErr *service.TaskError
	switch {
	case err == nil:
	case errors.As(err, &taskErr):
		for _, rowErr := range taskErr.Errors {
			resp.Errors = append(resp.Errors, rowErr.Error())
		}
	default:
		h.writeServiceError(w, err, "failed to import payments", "teamId", req.TeamID)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleChatters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	chatter, err := h.ledger.RegisterChatter(r.Context(), service.ChatterInput{
		ID:          req.ChatterID,
		TeamID:      req.TeamID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to register chatter", "teamId", req.TeamID)
		return
	}
	respondJSON(w, http.StatusCreated, toChatterResponse(chatter))
}

func (h *APIHandlers) handleExportPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be csv or json")
		return
	}

	payments, err := h.ledger.ExportPayments(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to export payments", "teamId", q.TeamID)
		return
	}

	filename := fmt.Sprintf("payments-%s-%s.%s", q.TeamID, time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "json" {
		items := make([]paymentResponse, 0, len(payments))
		for _, p := range payments {
			items = append(items, toPaymentResponse(p))
		}
		respondJSON(w, http.StatusOK, items)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write(paymentCSVHeader)
	for _, p := range payments {
		if err := cw.Write(paymentCSVRecord(p)); err != nil {
			h.logger.Error("failed to write csv row", "error", err, "paymentId", p.ID)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("failed to flush csv export", "error", err)
	}
}

// writeServiceError maps service errors to HTTP status codes. Unexpected
// errors are logged and reported as 500.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrTeamRequired),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidView),
		errors.Is(err, service.ErrUnknownChatter),
		errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, attrs...)...)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// parseQuery reads the common teamId/from/to/chatterId/platform parameters.
func parseQuery(r *http.Request) (service.Query, error) {
	values := r.URL.Query()
	from, err := service.ParseBound(values.Get("from"))
	if err != nil {
		return service.Query{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := service.ParseBound(values.Get("to"))
	if err != nil {
		return service.Query{}, fmt.Errorf("invalid to: %w", err)
	}
	return service.Query{
		TeamID:    values.Get("teamId"),
		From:      from,
		To:        to,
		ChatterID: values.Get("chatterId"),
		Platform:  values.Get("platform"),
	}, nil
}

func parseTimestamp(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmtError("invalid " + field)
	}
	ts = ts.UTC()
	return &ts, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func fmtError(msg string) error {
	return errors.New(msg)
}
