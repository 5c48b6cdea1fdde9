package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/orbgate-go/internal/application/services"
	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		LogDirectory:    t.TempDir(),
	})
	require.NoError(t, err)

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cacheManager := manager.NewManager(logger)
	cacheManager.InitializeTenant("default")

	tenantCtx := &tenant.Context{
		TenantID:     "default",
		Config:       &tenant.Config{TenantID: "default"},
		Database:     &tenant.Database{Conn: db.DB, TenantID: "default"},
		Status:       "active",
		CacheManager: cacheManager,
		Logger:       logger,
	}
	require.NoError(t, tenantCtx.EnsureSchema())

	policyConfig := monetization.DefaultPolicyConfig()
	perfTracker := performance.NewTracker(nil)

	readinessService := services.NewReadinessService(policyConfig, logger)
	attemptService := services.NewAttemptService(policyConfig, logger, perfTracker)
	envelopeService := services.NewEnvelopeService(policyConfig, readinessService, attemptService, logger, perfTracker)
	messageService := services.NewMessageService(policyConfig, readinessService, attemptService, envelopeService, logger, perfTracker)

	handlers := NewPolicyHandlers(
		services.NewClassifierService(logger, perfTracker),
		services.NewSignalService(logger, perfTracker),
		attemptService,
		envelopeService,
		messageService,
		services.NewContextService(logger, perfTracker),
		nil,
		logger,
		perfTracker,
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenant", tenantCtx)
		c.Set("tenantId", "default")
		c.Next()
	})

	policy := r.Group("/api/v1/monetization")
	{
		policy.POST("/detect", handlers.PostDetect)
		policy.POST("/message", handlers.PostMessage)
		policy.POST("/compute-context", handlers.PostComputeContext)
		policy.POST("/signals", handlers.PostSignal)
		policy.POST("/attempts", handlers.PostAttempt)
		policy.GET("/envelope", handlers.GetEnvelope)
		policy.GET("/history", handlers.GetHistory)
		policy.GET("/context", handlers.GetContext)
		policy.GET("/orb-context", handlers.GetOrbContext)
	}
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Orbgate-Session-ID", sessionID)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPostDetect(t *testing.T) {
	r := newTestRouter(t)

	t.Run("classifies without recording", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/detect", "", gin.H{"message": "this is exactly what i needed"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		signals, ok := body["valueSignals"].([]any)
		require.True(t, ok)
		assert.Len(t, signals, 1)

		history := doRequest(t, r, http.MethodGet, "/api/v1/monetization/history", "session-1", nil)
		require.Equal(t, http.StatusOK, history.Code)
		assert.Empty(t, decodeBody(t, history)["signals"])
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/detect", "", gin.H{"message": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPostMessage(t *testing.T) {
	r := newTestRouter(t)

	t.Run("requires a session header", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/message", "", gin.H{"message": "hello"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("records signals and returns the envelope", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/message", "session-1", gin.H{"message": "love this, happy to pay"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		signals, ok := body["signals"].([]any)
		require.True(t, ok)
		assert.Len(t, signals, 2)
		envelope, ok := body["envelope"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "READY", envelope["reason"])
	})
}

func TestPostComputeContext(t *testing.T) {
	r := newTestRouter(t)

	t.Run("requires a session header", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/compute-context", "", gin.H{"message": "hello"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("processes the message and renders context in one call", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/compute-context", "session-cc", gin.H{"message": "love this, happy to pay"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		signals, ok := body["signals"].([]any)
		require.True(t, ok)
		assert.Len(t, signals, 2)

		envelope, ok := body["envelope"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "READY", envelope["reason"])

		assert.Equal(t, true, body["has_context"])
		context, ok := body["context"].(string)
		require.True(t, ok)
		assert.Contains(t, context, "Monetization is currently allowed")
		orb, ok := body["orb_context"].(string)
		require.True(t, ok)
		assert.Contains(t, orb, "ALLOWED")
		assert.Contains(t, orb, "state=current")
	})

	t.Run("neutral message still returns a rendered decision", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/compute-context", "session-cc-neutral", gin.H{"message": "what time is it"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Empty(t, body["signals"])
		assert.Equal(t, true, body["has_context"])
		envelope, ok := body["envelope"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "READINESS_LOW", envelope["reason"])
	})
}

func TestPostSignalAndAttempt(t *testing.T) {
	r := newTestRouter(t)

	t.Run("valid signal is recorded", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/signals", "session-1", gin.H{
			"signalType": "value_perceived",
			"indicator":  "positive",
			"context":    "loved the export feature",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotEmpty(t, decodeBody(t, w)["id"])
	})

	t.Run("unknown signal type is a vocabulary error", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/signals", "session-1", gin.H{
			"signalType": "purchase_intent",
			"indicator":  "positive",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "invalid signal type")
	})

	t.Run("attempt outcome is recorded", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/attempts", "session-1", gin.H{
			"attemptType": "upsell",
			"outcome":     "rejected",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["cooldownTriggered"])
	})

	t.Run("unknown outcome is a vocabulary error", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/v1/monetization/attempts", "session-1", gin.H{
			"attemptType": "upsell",
			"outcome":     "maybe",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetEnvelope(t *testing.T) {
	r := newTestRouter(t)

	t.Run("fresh session is below threshold", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/envelope", "session-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, false, body["allowPaid"])
		assert.Equal(t, "READINESS_LOW", body["reason"])
	})

	t.Run("unknown product type is rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/envelope?productType=donation", "session-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing session is rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/envelope", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetHistoryAndContext(t *testing.T) {
	r := newTestRouter(t)

	t.Run("limit must be an integer", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/history?limit=ten", "session-1", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "limit must be an integer", decodeBody(t, w)["error"])
	})

	t.Run("negative limit is a domain error", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/history?limit=-1", "session-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("absent context is not a denial", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/context", "session-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["has_context"])
	})

	t.Run("context appears after a decision", func(t *testing.T) {
		envelope := doRequest(t, r, http.MethodGet, "/api/v1/monetization/envelope", "session-2", nil)
		require.Equal(t, http.StatusOK, envelope.Code)

		w := doRequest(t, r, http.MethodGet, "/api/v1/monetization/orb-context", "session-2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, true, body["has_context"])
		assert.Contains(t, body["orb_context"], "DENIED")
	})
}
