package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/affiliate-product-fetcher/internal/jobs"
	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/queue"
	"github.com/maltedev/affiliate-product-fetcher/internal/scraper"
	"github.com/maltedev/affiliate-product-fetcher/internal/storage"
)

const maxBodyBytes = 10 << 20

// ProductService is the fetch pipeline as the handlers use it.
type ProductService interface {
	Fetcher(name string) (scraper.Fetcher, error)
	FetchByURL(ctx context.Context, rawURL, storeHint string) (*models.Product, error)
	Search(ctx context.Context, keywords, store string, max int) ([]*models.Product, error)
	FetchCategory(ctx context.Context, categoryURL string, max int) (*scraper.WalkResult, error)
}

type JobService interface {
	Submit(ctx context.Context, p *models.SavedProduct) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

type Handlers struct {
	products     ProductService
	saved        storage.Repository
	jobs         JobService
	defaultStore string
	walkMax      int
	now          func() time.Time
	logger       *slog.Logger
}

func NewHandlers(products ProductService, saved storage.Repository, jobs JobService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		products:     products,
		saved:        saved,
		jobs:         jobs,
		defaultStore: string(models.StoreAmazon),
		walkMax:      scraper.DefaultWalkMax,
		now:          time.Now,
		logger:       logger.With("component", "api"),
	}
}

// WithDefaults sets the store used when a request names none and the
// category walk cap used when a request omits max_products.
func (h *Handlers) WithDefaults(store string, walkMax int) *Handlers {
	if store != "" {
		h.defaultStore = store
	}
	if walkMax > 0 {
		h.walkMax = walkMax
	}
	return h
}

type FetchURLRequest struct {
	URL   string `json:"url"`
	Store string `json:"store"`
}

func (h *Handlers) FetchByURL(w http.ResponseWriter, r *http.Request) {
	var req FetchURLRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	p, err := h.products.FetchByURL(r.Context(), req.URL, req.Store)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": p,
		"store":   p.Store,
	})
}

// GetProduct serves a saved product when one exists and fetches it otherwise.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if saved, err := h.saved.Get(r.Context(), id); err == nil {
		h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "product": saved, "source": "saved"})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.respondErr(w, err)
		return
	}

	store := r.URL.Query().Get("store")
	if store == "" {
		store = h.defaultStore
	}
	f, err := h.products.Fetcher(store)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	p, err := f.FetchByID(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "product": p, "source": "fetched"})
}

type SearchRequest struct {
	Keywords   string `json:"keywords"`
	Store      string `json:"store"`
	MaxResults int    `json:"max_results"`
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Keywords) == "" {
		h.respondError(w, http.StatusBadRequest, "keywords are required")
		return
	}
	if req.Store == "" {
		req.Store = h.defaultStore
	}

	products, err := h.products.Search(r.Context(), req.Keywords, req.Store, req.MaxResults)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}

type CategoryRequest struct {
	URL         string `json:"url"`
	MaxProducts int    `json:"max_products"`
}

func (h *Handlers) FetchCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.MaxProducts <= 0 {
		req.MaxProducts = h.walkMax
	}

	result, err := h.products.FetchCategory(r.Context(), req.URL, req.MaxProducts)
	if err != nil {
		h.logger.Warn("category walk failed", "url", req.URL, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": result.Products,
		"count":    len(result.Products),
		"found":    result.Found,
		"failed":   result.Failed,
	})
}

func (h *Handlers) ListSaved(w http.ResponseWriter, r *http.Request) {
	products, err := h.saved.List(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}

type AddSavedRequest struct {
	URL           string               `json:"url"`
	AffiliateLink string               `json:"affiliate_link"`
	Product       *models.SavedProduct `json:"product"`
}

// AddSaved stores a product given either its record or a link to fetch.
func (h *Handlers) AddSaved(w http.ResponseWriter, r *http.Request) {
	var req AddSavedRequest
	if !h.decode(w, r, &req) {
		return
	}

	link := req.URL
	if link == "" {
		link = req.AffiliateLink
	}

	product := req.Product
	if product == nil {
		if strings.TrimSpace(link) == "" {
			h.respondError(w, http.StatusBadRequest, "product or url is required")
			return
		}
		p, err := h.products.FetchByURL(r.Context(), link, "")
		if err != nil {
			if errors.Is(err, scraper.ErrNotFound) {
				h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to fetch product: %v", err))
				return
			}
			h.respondErr(w, err)
			return
		}
		product = &models.SavedProduct{Product: *p}
	}

	saved, err := h.saved.Add(r.Context(), product)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"product":      saved,
		"is_affiliate": isAffiliate(link),
	})
}

func isAffiliate(raw string) bool {
	if raw == "" {
		return false
	}
	rules, ok := links.RulesFor(links.DetectStore(raw))
	return ok && links.Classify(rules, raw) == models.KindAffiliateProduct
}

func (h *Handlers) UpdateSaved(w http.ResponseWriter, r *http.Request) {
	var patch models.Patch
	if !h.decode(w, r, &patch) {
		return
	}

	p, err := h.saved.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

func (h *Handlers) RemoveSaved(w http.ResponseWriter, r *http.Request) {
	if err := h.saved.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type SavedSearchRequest struct {
	Query string `json:"query"`
}

func (h *Handlers) SearchSaved(w http.ResponseWriter, r *http.Request) {
	var req SavedSearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	products, err := h.saved.Search(r.Context(), req.Query)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if products == nil {
		products = []*models.SavedProduct{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}

func (h *Handlers) ExportSaved(w http.ResponseWriter, r *http.Request) {
	export, err := h.saved.Export(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	filename := fmt.Sprintf("products_export_%s.json", h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := storage.WriteJSON(w, export); err != nil {
		h.logger.Error("failed to encode export", "error", err)
	}
}

func (h *Handlers) ImportSaved(w http.ResponseWriter, r *http.Request) {
	products, err := storage.DecodeImport(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid import file")
		return
	}

	n, err := h.saved.Import(r.Context(), products)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": n,
		"skipped":  len(products) - n,
	})
}

type VideoRequest struct {
	ID      string               `json:"id"`
	Product *models.SavedProduct `json:"product"`
}

func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req VideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	product := req.Product
	switch {
	case product != nil:
		if err := storage.EnsureID(product); err != nil {
			h.respondErr(w, err)
			return
		}
	case req.ID != "":
		p, err := h.saved.Get(r.Context(), req.ID)
		if err != nil {
			h.respondErr(w, err)
			return
		}
		product = p
	default:
		h.respondError(w, http.StatusBadRequest, "product or id is required")
		return
	}

	job, err := h.jobs.Submit(r.Context(), product)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"job_id":  job.ID,
		"status":  job.Status,
	})
}

func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   h.now().UTC(),
	})
}

// decode reads a JSON body into v and answers 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondErr maps domain errors onto status codes.
func (h *Handlers) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scraper.ErrUnknownStore),
		errors.Is(err, storage.ErrMissingID):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scraper.ErrNotFound),
		errors.Is(err, scraper.ErrRejected),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scraper.ErrNoIdentifier):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrQueueClosed):
		h.respondError(w, http.StatusServiceUnavailable, "video queue is closed")
	case errors.Is(err, context.DeadlineExceeded):
		h.respondError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Error("request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]any{"success": false, "error": message})
}
