package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/catalogd/internal/webhook/domain"
)

type createWebhookRequest struct {
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	IsActive  *bool  `json:"is_active"`
}

func (s *Server) CreateWebhook(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.webhookSvc.Create(c.Request.Context(), webhookdomain.CreateRequest{
		URL:       strings.TrimSpace(req.URL),
		EventType: strings.TrimSpace(req.EventType),
		IsActive:  req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListWebhooks(c *gin.Context) {
	resp, err := s.webhookSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetWebhookByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.webhookSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateWebhookRequest struct {
	URL       *string `json:"url"`
	EventType *string `json:"event_type"`
	IsActive  *bool   `json:"is_active"`
}

func (s *Server) UpdateWebhook(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.webhookSvc.Update(c.Request.Context(), webhookdomain.UpdateRequest{
		ID:        id,
		URL:       req.URL,
		EventType: req.EventType,
		IsActive:  req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteWebhook(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.webhookSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// TestWebhook queues a delivery of the webhook's own event with a
// sentinel resource id so the receiver can be exercised end to end.
func (s *Server) TestWebhook(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.webhookSvc.Test(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "Test delivery queued"})
}
