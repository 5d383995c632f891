package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/settings"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

type Handler struct {
	runner        SyncRunner
	archiver      Archiver
	content       ContentStore
	downloads     DownloadStore
	subscriptions SubscriptionStore
	syncLogs      SyncLogStore
	settings      SettingsManager
	harvest       HarvestQueue
	intake        AssetIntake
	importer      Importer
	logger        *slog.Logger
	now           func() time.Time
}

func NewHandler(
	runner SyncRunner,
	archiver Archiver,
	content ContentStore,
	downloads DownloadStore,
	subscriptions SubscriptionStore,
	syncLogs SyncLogStore,
	runtimeSettings SettingsManager,
	harvest HarvestQueue,
	intake AssetIntake,
	importer Importer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		runner:        runner,
		archiver:      archiver,
		content:       content,
		downloads:     downloads,
		subscriptions: subscriptions,
		syncLogs:      syncLogs,
		settings:      runtimeSettings,
		harvest:       harvest,
		intake:        intake,
		importer:      importer,
		logger:        logger.With("component", "api"),
		now:           time.Now,
	}
}

func errorBody(msg string) gin.H {
	return gin.H{"ok": false, "error": msg}
}

// fail maps domain errors onto HTTP statuses. Anything unexpected is logged
// and reported as a 500 with the error text.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSyncRunning), errors.Is(err, domain.ErrNoCookie):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedPlatform):
		status = http.StatusNotImplemented
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorBody(err.Error()))
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody(msg))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(domain.ErrInvalidID.Error()))
		return 0, false
	}
	return id, true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now().UTC().Format(time.RFC3339)})
}

// StartSync launches a background sync. A sync needs a Patreon cookie, so
// the request is rejected up front when none is configured.
func (h *Handler) StartSync(c *gin.Context) {
	ctx := c.Request.Context()
	current, err := h.settings.Resolve(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !current.HasCookie() {
		h.fail(c, domain.ErrNoCookie)
		return
	}

	if err := h.runner.Start(ctx); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "status": h.runner.Status(ctx)})
}

func (h *Handler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": h.runner.Status(c.Request.Context())})
}

func (h *Handler) ArchiveContent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.archiver.Archive(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "downloaded": result.Downloaded, "localPath": result.LocalPath})
}

func (h *Handler) MarkSeen(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.content.MarkSeen(c.Request.Context(), id, h.now()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ListFiles(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.content.Get(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	files, err := h.downloads.ListByContent(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "files": files})
}

type enqueueRequest struct {
	Kind domain.HarvestKind `json:"kind"`
}

// EnqueueHarvest queues (or re-queues) a harvest job for an item. Without a
// kind the headless asset discovery job is used.
func (h *Handler) EnqueueHarvest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req enqueueRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}
	if req.Kind == "" {
		req.Kind = domain.KindHeadlessAssetDiscover
	}
	if !req.Kind.Valid() {
		h.badRequest(c, "unknown harvest kind")
		return
	}

	if err := h.harvest.Enqueue(c.Request.Context(), id, req.Kind); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "kind": req.Kind})
}

type subscriptionSettingsRequest struct {
	SyncEnabled         *bool   `json:"syncEnabled"`
	AutoDownloadEnabled *bool   `json:"autoDownloadEnabled"`
	TierName            *string `json:"tierName"`
	CostCents           *int    `json:"costCents"`
	Currency            *string `json:"currency"`
}

func (r subscriptionSettingsRequest) normalize() domain.SubscriptionSettings {
	out := domain.SubscriptionSettings{
		SyncEnabled:         r.SyncEnabled,
		AutoDownloadEnabled: r.AutoDownloadEnabled,
		TierName:            r.TierName,
	}
	if r.CostCents != nil {
		cost := max(*r.CostCents, 0)
		out.CostCents = &cost
	}
	if r.Currency != nil {
		if currency := strings.ToUpper(strings.TrimSpace(*r.Currency)); currency != "" {
			out.Currency = &currency
		}
	}
	return out
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req subscriptionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	update := req.normalize()
	if update.Empty() {
		h.badRequest(c, "no settings provided")
		return
	}

	sub, err := h.subscriptions.UpdateSettings(c.Request.Context(), id, update)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "subscription": gin.H{
		"id":                  sub.ID,
		"syncEnabled":         sub.SyncEnabled,
		"autoDownloadEnabled": sub.AutoDownloadEnabled,
		"tierName":            sub.TierName,
		"costCents":           sub.CostCents,
		"currency":            sub.Currency,
	}})
}

func (h *Handler) ListSyncLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxLogLimit)
	}

	ctx := c.Request.Context()
	if _, err := h.subscriptions.Get(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	logs, err := h.syncLogs.ListBySubscription(ctx, id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "logs": logs})
}

func (h *Handler) GetSettings(c *gin.Context) {
	view, err := h.settings.View(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "settings": view})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settings.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.settings.Update(ctx, req); err != nil {
		h.fail(c, err)
		return
	}
	h.GetSettings(c)
}
