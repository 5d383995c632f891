package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type claimRequest struct {
	Kind domain.HarvestKind `json:"kind"`
}

type claimedJob struct {
	ID            int64              `json:"id"`
	ContentItemID int64              `json:"contentItemId"`
	Kind          domain.HarvestKind `json:"kind"`
	AttemptCount  int                `json:"attemptCount"`
	ExternalID    string             `json:"externalId"`
	ExternalURL   *string            `json:"externalUrl"`
	Title         string             `json:"title"`
}

// ClaimJob hands the calling worker at most one job. Without a kind the
// headless asset discovery queue is used.
func (h *Handler) ClaimJob(c *gin.Context) {
	var req claimRequest
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

	claimed, err := h.harvest.Claim(c.Request.Context(), req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	if claimed == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "job": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "job": claimedJob{
		ID:            claimed.Job.ID,
		ContentItemID: claimed.Job.ContentItemID,
		Kind:          claimed.Job.Kind,
		AttemptCount:  claimed.Job.AttemptCount,
		ExternalID:    claimed.ExternalID,
		ExternalURL:   claimed.ExternalURL,
		Title:         claimed.Title,
	}})
}

type completeRequest struct {
	JobID int64  `json:"jobId"`
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (h *Handler) CompleteJob(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	if err := h.harvest.Complete(c.Request.Context(), req.JobID, req.OK, req.Error); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type assetsRequest struct {
	ContentItemID int64                    `json:"contentItemId"`
	Assets        []domain.DiscoveredAsset `json:"assets"`
}

func (h *Handler) AddAssets(c *gin.Context) {
	var req assetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	attempted, inserted, err := h.intake.Add(c.Request.Context(), req.ContentItemID, req.Assets)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "attempted": attempted, "inserted": inserted})
}
