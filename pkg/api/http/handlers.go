package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/internal/application/intents"
	"github.com/aescanero/datafabric/internal/application/workers"
	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
	"github.com/aescanero/datafabric/pkg/unit"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// CapabilityResponse is a registered capability card with its asset registry id
type CapabilityResponse struct {
	domain.CapabilityCard
	AssetID string `json:"asset_id"`
}

// DecomposeRequest represents an intent decomposition request.
// A missing intent_id is generated.
type DecomposeRequest struct {
	IntentID string                 `json:"intent_id"`
	Params   map[string]interface{} `json:"params"`
}

// LocalityRequest carries placement hints for one intent instance
type LocalityRequest struct {
	IntentID string                  `json:"intent_id" binding:"required"`
	Signals  []domain.LocalitySignal `json:"signals" binding:"required,min=1"`
}

// CompletionRequest reports that one execution unit finished
type CompletionRequest struct {
	IntentID string                 `json:"intent_id" binding:"required"`
	Tenant   domain.TenantContext   `json:"tenant"`
	Success  *bool                  `json:"success" binding:"required"`
	Result   map[string]interface{} `json:"result"`
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{
		"lifecycle": string(s.lifecycle.State()),
	}
	if s.workers != nil {
		checks["workers"] = s.workers.Health().Healthy
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleReady reports 200 once startup finished and until shutdown begins
func (s *Server) handleReady(c *gin.Context) {
	state := s.lifecycle.State()
	if !state.Serving() {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "data fabric is "+string(state), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "state": state})
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{
		"lifecycle": s.lifecycle.Status(),
		"intents":   s.intents.Count(),
		"signals":   s.signals.Counts(),
		"emissions": s.emitter.EmissionStats(),
	}
	if s.workers != nil {
		resp["workers"] = gin.H{
			"health": s.workers.Health(),
			"stats":  s.workers.Stats(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleListCapabilities lists the cards this instance registered, or with
// remote=true what the asset registry holds for the domain
func (s *Server) handleListCapabilities(c *gin.Context) {
	if c.Query("remote") == "true" {
		remote, err := s.capabilities.ListRemote(c.Request.Context())
		if err != nil {
			s.logger.Error("failed to list remote capabilities", zap.Error(err))
			respondError(c, http.StatusBadGateway, "REGISTRY_ERROR", "Failed to list capabilities from the asset registry", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"domain": s.capabilities.Domain(),
			"data":   remote,
			"total":  len(remote),
		})
		return
	}

	cards := s.capabilities.Profiles()
	data := make([]CapabilityResponse, len(cards))
	for i, card := range cards {
		id, _ := s.capabilities.RegisteredID(card.Name)
		data[i] = CapabilityResponse{CapabilityCard: card, AssetID: id}
	}
	c.JSON(http.StatusOK, gin.H{
		"domain": s.capabilities.Domain(),
		"data":   data,
		"total":  len(data),
	})
}

func (s *Server) handleGetCapability(c *gin.Context) {
	name := c.Param("name")
	card, ok := s.capabilities.GetProfile(name)
	if !ok {
		respondError(c, http.StatusNotFound, "CAPABILITY_NOT_FOUND", "Capability not registered: "+name, nil)
		return
	}
	id, _ := s.capabilities.RegisteredID(name)
	c.JSON(http.StatusOK, gin.H{"data": CapabilityResponse{CapabilityCard: card, AssetID: id}})
}

func (s *Server) handleListUnits(c *gin.Context) {
	units := unit.All()
	c.JSON(http.StatusOK, gin.H{"data": units, "total": len(units)})
}

func (s *Server) handleGetUnit(c *gin.Context) {
	name := c.Param("name")
	d, ok := unit.Lookup(name)
	if !ok {
		respondError(c, http.StatusNotFound, "UNIT_NOT_FOUND", "Unknown execution unit: "+name, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d})
}

func (s *Server) handleUnitSignals(c *gin.Context) {
	name := c.Param("name")
	defs := s.signals.GetForUnit(name)
	if defs == nil {
		defs = []domain.SignalDefinition{}
	}
	c.JSON(http.StatusOK, gin.H{"unit": name, "data": defs, "total": len(defs)})
}

// handleCompletion emits the feedback signals of a finished unit. With
// async=true the completion is queued on the event bus for the worker pool.
func (s *Server) handleCompletion(c *gin.Context) {
	name := c.Param("name")

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	intentID, err := uuid.Parse(req.IntentID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid intent_id: "+err.Error(), nil)
		return
	}

	completion := domain.CompletionEvent{
		Unit:     name,
		IntentID: intentID,
		Tenant:   tenantFromRequest(c, req.Tenant),
		Success:  *req.Success,
		Result:   req.Result,
	}

	if c.Query("async") == "true" {
		s.publishCompletion(c, completion)
		return
	}

	results := s.emitter.EmitForExecutionUnit(c.Request.Context(), completion.Unit, completion.IntentID,
		completion.Tenant, completion.Result, completion.Success)
	if results == nil {
		results = []domain.EmissionResult{}
	}
	c.JSON(http.StatusOK, gin.H{
		"unit":      name,
		"intent_id": intentID,
		"results":   results,
		"total":     len(results),
	})
}

func (s *Server) publishCompletion(c *gin.Context, completion domain.CompletionEvent) {
	if s.eventBus == nil {
		respondError(c, http.StatusServiceUnavailable, "ASYNC_NOT_AVAILABLE", "Event bus is not configured", nil)
		return
	}
	event, err := workers.EncodeCompletion(completion)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	// the request context ends with the 202; delivery must outlive it
	if err := s.eventBus.Publish(context.WithoutCancel(c.Request.Context()), ports.TopicCompletions, event); err != nil {
		s.logger.Error("failed to publish completion",
			zap.String("unit", completion.Unit),
			zap.Error(err))
		respondError(c, http.StatusBadGateway, "PUBLISH_FAILED", "Failed to queue completion", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"event_id": event.ID,
	})
}

// tenantFromRequest fills empty tenant fields from the tenant headers
func tenantFromRequest(c *gin.Context, t domain.TenantContext) domain.TenantContext {
	if t.OrganizationID == "" {
		t.OrganizationID = c.GetHeader(headerOrganization)
	}
	if t.WorkspaceID == "" {
		t.WorkspaceID = c.GetHeader(headerWorkspace)
	}
	if t.UserID == "" {
		t.UserID = c.GetHeader(headerUser)
	}
	return t
}

func (s *Server) handleListIntents(c *gin.Context) {
	types := s.intents.SupportedIntents()
	data := make([]gin.H, 0, len(types))
	for _, t := range types {
		refs, _ := s.intents.UnitsFor(t)
		data = append(data, gin.H{
			"intent_type":     t,
			"execution_units": refs,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "total": len(data)})
}

func (s *Server) handleGetIntent(c *gin.Context) {
	intentType := c.Param("type")
	refs, ok := s.intents.UnitsFor(intentType)
	if !ok {
		respondError(c, http.StatusNotFound, intents.ErrUnsupportedIntent, "Unsupported intent type: "+intentType, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"intent_type":     intentType,
		"execution_units": refs,
	}})
}

// handleDecompose decomposes one intent instance. An empty body decomposes
// without parameters under a generated intent id.
func (s *Server) handleDecompose(c *gin.Context) {
	var req DecomposeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	intentID := uuid.New()
	if req.IntentID != "" {
		parsed, err := uuid.Parse(req.IntentID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid intent_id: "+err.Error(), nil)
			return
		}
		intentID = parsed
	}

	d := s.intents.Decompose(c.Request.Context(), intentID, c.Param("type"), req.Params)
	if d.Success {
		c.JSON(http.StatusOK, d)
		return
	}

	status := http.StatusUnprocessableEntity
	switch d.ErrorCode {
	case intents.ErrUnsupportedIntent:
		status = http.StatusNotFound
	case intents.ErrSubmissionFailed:
		status = http.StatusBadGateway
	}
	respondError(c, status, d.ErrorCode, d.Error, d)
}

// handleListSignals lists signal definitions, optionally filtered by type
func (s *Server) handleListSignals(c *gin.Context) {
	defs := s.signals.All()
	if t := c.Query("type"); t != "" {
		signalType := domain.SignalType(t)
		if !signalType.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_SIGNAL_TYPE", "Signal type must be metric, outcome or advisor", nil)
			return
		}
		defs = s.signals.GetByType(signalType)
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   defs,
		"total":  len(defs),
		"counts": s.signals.Counts(),
	})
}

func (s *Server) handleGetSignal(c *gin.Context) {
	name := c.Param("name")
	def, ok := s.signals.Get(name)
	if !ok {
		respondError(c, http.StatusNotFound, "SIGNAL_NOT_FOUND", "Unknown signal: "+name, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": def})
}

func (s *Server) handleListEmissions(c *gin.Context) {
	emissions := s.emitter.Emissions()
	c.JSON(http.StatusOK, gin.H{
		"data":  emissions,
		"total": len(emissions),
		"stats": s.emitter.EmissionStats(),
	})
}

func (s *Server) handleClearEmissions(c *gin.Context) {
	s.emitter.ClearEmissions()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleWorkers(c *gin.Context) {
	if s.workers == nil {
		respondError(c, http.StatusServiceUnavailable, "WORKERS_NOT_AVAILABLE", "Worker pool is not configured", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"workers": s.workers.GetStatus(),
			"health":  s.workers.Health(),
			"stats":   s.workers.Stats(),
		},
	})
}

func (s *Server) handleLocality(c *gin.Context) {
	if s.provider == nil {
		respondError(c, http.StatusServiceUnavailable, "LOCALITY_NOT_AVAILABLE", "Capability provider is not configured", nil)
		return
	}

	var req LocalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	intentID, err := uuid.Parse(req.IntentID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid intent_id: "+err.Error(), nil)
		return
	}
	for i, sig := range req.Signals {
		if sig.AssetRef == "" || sig.EnvironmentID == "" {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("signal %d: asset_ref and environment_id are required", i), nil)
			return
		}
	}

	if !s.provider.ProvideLocalitySignals(c.Request.Context(), intentID, req.Signals) {
		respondError(c, http.StatusBadGateway, "SCHEDULER_REJECTED", "Scheduler did not accept the locality signals", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":    "accepted",
		"intent_id": intentID,
		"signals":   len(req.Signals),
	})
}
