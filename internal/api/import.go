package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const invalidImportPayload = "Invalid payload. Expected { creators: [...] }"

func (h *Handler) ImportJSON(c *gin.Context) {
	var payload domain.ImportPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Creators == nil {
		h.badRequest(c, invalidImportPayload)
		return
	}

	result, err := h.importer.ImportJSON(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

type newSubscriptionRequest struct {
	CreatorName string          `json:"creatorName"`
	CreatorSlug string          `json:"creatorSlug"`
	Platform    domain.Platform `json:"platform"`
	TierName    *string         `json:"tierName"`
	CostCents   *float64        `json:"costCents"`
	Currency    string          `json:"currency"`
}

// CreateSubscription adds a subscription by hand. Posting the same creator
// slug and platform again returns the stored subscription.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req newSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}

	in := domain.NewSubscription{
		CreatorName: req.CreatorName,
		CreatorSlug: req.CreatorSlug,
		Platform:    req.Platform,
		TierName:    req.TierName,
		Currency:    req.Currency,
	}
	if req.CostCents != nil && !math.IsNaN(*req.CostCents) && !math.IsInf(*req.CostCents, 0) {
		in.CostCents = int(math.Trunc(*req.CostCents))
	}

	created, err := h.importer.CreateSubscription(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if created.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"ok":             true,
		"creatorId":      created.CreatorID,
		"subscriptionId": created.SubscriptionID,
	})
}
