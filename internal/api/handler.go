package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/clients/cache"
	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/logger"
	"max.ks1230/rates-bot/internal/model/customerr"
)

type ratesStorage interface {
	GetByDate(ctx context.Context, date time.Time) (rate.Record, error)
	GetLatest(ctx context.Context) (rate.Record, error)
	GetRange(ctx context.Context, from, to *time.Time) ([]rate.Record, error)
}

// ResponseCache stores rendered JSON bodies. Optional: a nil cache means
// every request goes to storage.
type ResponseCache interface {
	GetRates(key string) ([]byte, error)
	CacheRates(key string, body []byte) error
}

type Handler struct {
	storage ratesStorage
	cache   ResponseCache
	loc     *time.Location
}

func NewHandler(storage ratesStorage, respCache ResponseCache, timezone string) *Handler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Handler{
		storage: storage,
		cache:   respCache,
		loc:     loc,
	}
}

// RateResponse keeps the historical JSON field names; the numeric values are
// the stored subunits divided by 100.
type RateResponse struct {
	Date        string  `json:"date"`
	UstRub      float64 `json:"ust_rub"`
	CnyRub      float64 `json:"cny_rub"`
	UstRubPlus1 float64 `json:"ust_rub_plus1"`
	CnyRubPlus2 float64 `json:"cny_rub_plus2p"`
}

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	today := time.Now().In(h.loc)
	h.serveSingle(w, r, cache.TodayKey(today.Format(rate.DateLayout)), func(ctx context.Context) (rate.Record, error) {
		return h.storage.GetByDate(ctx, today)
	})
}

func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	h.serveSingle(w, r, cache.LatestKey, func(ctx context.Context) (rate.Record, error) {
		return h.storage.GetLatest(ctx)
	})
}

func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(rate.DateLayout, chi.URLParam(r, "date"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, InvalidDateFormat)
		return
	}

	// per-date lookups are rare and cheap, no caching here
	rec, err := h.storage.GetByDate(r.Context(), date)
	if err != nil {
		h.storageErrorResponse(w, err)
		return
	}
	successResponse(w, mapToRateResponse(rec))
}

func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	from, err := parseBound(r.URL.Query().Get("from_date"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, InvalidDateFormat)
		return
	}
	to, err := parseBound(r.URL.Query().Get("to_date"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, InvalidDateFormat)
		return
	}

	recs, err := h.storage.GetRange(r.Context(), from, to)
	if err != nil {
		h.storageErrorResponse(w, err)
		return
	}

	resp := make([]RateResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, mapToRateResponse(rec))
	}
	successResponse(w, resp)
}

func (h *Handler) serveSingle(w http.ResponseWriter, r *http.Request, cacheKey string,
	get func(ctx context.Context) (rate.Record, error)) {
	if body, ok := h.cached(cacheKey); ok {
		rawResponse(w, body)
		return
	}

	rec, err := get(r.Context())
	if err != nil {
		h.storageErrorResponse(w, err)
		return
	}

	body, err := json.Marshal(mapToRateResponse(rec))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, ServerInternalError)
		return
	}

	h.store(cacheKey, body)
	rawResponse(w, body)
}

func (h *Handler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, err := h.cache.GetRates(key)
	if err != nil {
		return nil, false
	}
	return body, true
}

func (h *Handler) store(key string, body []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.CacheRates(key, body); err != nil {
		logger.Warn("failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (h *Handler) storageErrorResponse(w http.ResponseWriter, err error) {
	if errors.Is(err, customerr.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, RatesNotFound)
		return
	}
	logger.Error("storage failure", zap.Error(err))
	errorResponse(w, http.StatusInternalServerError, ServerInternalError)
}

func parseBound(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(rate.DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func mapToRateResponse(rec rate.Record) RateResponse {
	return RateResponse{
		Date:        rec.Key(),
		UstRub:      float64(rec.UstBaseSubunits) / 100,
		CnyRub:      float64(rec.CnyBaseSubunits) / 100,
		UstRubPlus1: float64(rec.UstMarkupSubunits) / 100,
		CnyRubPlus2: float64(rec.CnyMarkupSubunits) / 100,
	}
}

func successResponse(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func rawResponse(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func errorResponse(w http.ResponseWriter, code int, svcErrorMsg ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: svcErrorMsg}); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
