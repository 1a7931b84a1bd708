package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nandorodriques37/planejamento-compras-app/internal/approval"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
)

type ApprovalHandler struct {
	service *approval.Service
}

func NewApprovalHandler(service *approval.Service) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// CreateApproval submits the selected week blocks for approval.
func (h *ApprovalHandler) CreateApproval(c *gin.Context) {
	var in approval.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	req, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "failed to create approval request")
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *ApprovalHandler) ListApprovals(c *gin.Context) {
	filter := repository.ApprovalFilter{
		Limit:  parsePositiveIntWithDefault(c.Query("limit"), 50),
		Offset: parseNonNegativeInt(c.Query("offset")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := domain.ParseApprovalStatus(raw)
		if !ok {
			respondError(c, domain.ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}}, "invalid query")
			return
		}
		filter.Status = status
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list approval requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "limit": filter.Limit, "offset": filter.Offset})
}

func (h *ApprovalHandler) GetApproval(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to fetch approval request")
		return
	}
	c.JSON(http.StatusOK, req)
}

type decisionRequest struct {
	Status string `json:"status" binding:"required"`
}

// DecideApproval approves or rejects a pending request.
func (h *ApprovalHandler) DecideApproval(c *gin.Context) {
	var body decisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	next, ok := domain.ParseApprovalStatus(body.Status)
	if !ok {
		respondError(c, domain.ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown status %q", body.Status)}}, "invalid decision")
		return
	}

	req, err := h.service.Decide(c.Request.Context(), c.Param("id"), next)
	if err != nil {
		respondError(c, err, "failed to decide approval request")
		return
	}
	c.JSON(http.StatusOK, req)
}
