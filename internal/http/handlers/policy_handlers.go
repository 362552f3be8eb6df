package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/http/middleware"
)

// PolicyHandlers manages the route policies enforced by casbin
type PolicyHandlers struct {
	policy domain.PolicyService
	events domain.SecurityEventLog
	debug  bool
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policy domain.PolicyService, events domain.SecurityEventLog, debug bool) *PolicyHandlers {
	return &PolicyHandlers{policy: policy, events: events, debug: debug}
}

type policyReq struct {
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// List returns every stored policy as role, resource, action triples
func (h *PolicyHandlers) List(c *gin.Context) {
	policies := h.policy.GetPolicies()
	if policies == nil {
		policies = [][]string{}
	}
	c.JSON(http.StatusOK, gin.H{"data": policies})
}

// Add stores a new policy
func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role, resource and action are required"})
		return
	}
	if err := h.policy.AddPolicy(r.Role, r.Resource, r.Action); err != nil {
		respondError(c, err, "Failed to add policy.", h.debug)
		return
	}
	h.recordChange(c, "Policy added: ", r)
	c.Status(http.StatusNoContent)
}

// Remove deletes a policy
func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role, resource and action are required"})
		return
	}
	if err := h.policy.RemovePolicy(r.Role, r.Resource, r.Action); err != nil {
		respondError(c, err, "Failed to remove policy.", h.debug)
		return
	}
	h.recordChange(c, "Policy removed: ", r)
	c.Status(http.StatusNoContent)
}

func (h *PolicyHandlers) recordChange(c *gin.Context, prefix string, r policyReq) {
	client := middleware.ClientFrom(c)
	event := domain.NewSecurityEvent(domain.PolicyChangedEvent, prefix+r.Role+" "+r.Resource+" "+r.Action).
		WithClientContext(&client).WithSeverity(domain.SeverityWarning)
	if user := middleware.CurrentUserFrom(c); user != nil {
		event.WithUser(user.ID)
	}
	if err := h.events.Record(c.Request.Context(), event); err != nil {
		log.WithError(err).Error("failed to record policy change")
	}
}
