package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const auditPageSize = 25

// AuditController shows the audit trail to administrators.
type AuditController struct {
	events AuditLog
	logger *zap.Logger
}

func NewAuditController(events AuditLog, logger *zap.Logger) *AuditController {
	return &AuditController{events: events, logger: logger}
}

// EventTypeOption is one entry of the event type filter.
type EventTypeOption struct {
	Value string
	Label string
}

var eventTypes = []EventTypeOption{
	{Value: "", Label: "All events"},
	{Value: string(entities.AuditEventCreate), Label: "Create"},
	{Value: string(entities.AuditEventUpdate), Label: "Update"},
	{Value: string(entities.AuditEventDelete), Label: "Delete"},
	{Value: string(entities.AuditEventLoan), Label: "Loans"},
	{Value: string(entities.AuditEventReport), Label: "Reports"},
	{Value: string(entities.AuditEventAuth), Label: "Authentication"},
}

func auditFilter(c *gin.Context) auditrepo.Filter {
	return auditrepo.Filter{
		EventType: entities.AuditEventType(c.Query("type")),
		EntityID:  c.Query("entity"),
	}
}

// AuditLogPage handles GET /catalog/audit/
func (ac *AuditController) AuditLogPage(c *gin.Context) {
	page, err := parsePage(c, auditPageSize)
	if err != nil {
		renderNotFound(c, "Invalid page.")
		return
	}

	events, err := ac.events.GetEvents(c.Request.Context(), auditFilter(c), page)
	if err != nil {
		renderLookupError(c, ac.logger, err, "Page")
		return
	}

	render(c, http.StatusOK, "audit", gin.H{
		"Title":      "Audit log",
		"Page":       events,
		"EventType":  c.Query("type"),
		"EventTypes": eventTypes,
	})
}

// GetAuditEvents handles GET /api/audit
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, err := parsePage(c, auditPageSize)
	if err != nil {
		respondNotFound(c, "page")
		return
	}

	events, err := ac.events.GetEvents(c.Request.Context(), auditFilter(c), page)
	if err != nil {
		respondLookupError(c, ac.logger, err, "page")
		return
	}
	c.JSON(http.StatusOK, newPageResponse(events))
}
