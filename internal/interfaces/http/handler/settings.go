package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

// SettingsHandler exposes per-tenant sync configuration
type SettingsHandler struct {
	BaseHandler
	settingsRepo storefront.SettingsRepository
	logger       *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsRepo storefront.SettingsRepository, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// RegisterRoutes registers settings routes
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("", h.GetSettings)
		settings.PUT("", h.UpdateSettings)
	}
}

// GetSettings returns the tenant's sync settings; tenants that never
// customized anything get the defaults
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	settings, err := h.settingsRepo.FindByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SettingsResponseFromDomain(settings))
}

// UpdateSettings replaces the tenant's sync settings in full
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	settings := req.ToDomain(tenantID)
	if err := settings.Validate(); err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.settingsRepo.Save(c.Request.Context(), settings); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("tenant sync settings updated",
		zap.String("tenant_id", tenantID.String()))
	h.Success(c, dto.SettingsResponseFromDomain(settings))
}
