// Package services provides sysop dashboard operations
package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
)

// SysOpService handles sysop dashboard operations following DI pattern
type SysOpService struct {
	cacheManager  *manager.Manager
	tenantManager *tenant.Manager
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewSysOpService creates a new sysop service with injected dependencies
func NewSysOpService(
	cacheManager *manager.Manager,
	tenantManager *tenant.Manager,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *SysOpService {
	return &SysOpService{
		cacheManager:  cacheManager,
		tenantManager: tenantManager,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GraphNode represents a node in the activity graph
type GraphNode struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Label         string `json:"label,omitempty"`
	Size          int    `json:"size"`
	LastActivity  string `json:"lastActivity,omitempty"`  // "X minutes ago"
	ActivityLevel string `json:"activityLevel,omitempty"` // "active", "recent", "dormant"
	AllowPaid     bool   `json:"allowPaid,omitempty"`
	Stale         bool   `json:"stale,omitempty"`
}

// GraphLink represents a link between nodes in the activity graph
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// ActivityGraphResponse represents the complete activity graph response
type ActivityGraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
	Stats GraphStats  `json:"stats"`
}

// GraphStats provides summary statistics for the activity graph
type GraphStats struct {
	Sessions        int    `json:"sessions"`
	EnvelopesCached int    `json:"envelopesCached"`
	EnvelopesValid  int    `json:"envelopesValid"`
	ReadySessions   int    `json:"readySessions"`
	BlockedSessions int    `json:"blockedSessions"`
	Nodes           int    `json:"nodes"`
	Links           int    `json:"links"`
	Timeframe       string `json:"timeframe"`
}

// GetActivityGraph returns real-time session/decision graph data. Each
// session active in the last hour links to the reason node of its last
// cached decision, so the dashboard shows the live decision mix.
func (s *SysOpService) GetActivityGraph(tenantID string) (*ActivityGraphResponse, error) {
	marker := s.perfTracker.StartOperation("get_activity_graph", tenantID)
	defer marker.Complete()

	s.logger.System().Debug("Starting activity graph generation", "tenantId", tenantID)

	now := time.Now()
	oneHourAgo := now.Add(-1 * time.Hour)

	sessionIDs := s.cacheManager.GetAllSessionIDs(tenantID)

	s.logger.System().Debug("Retrieved cache IDs",
		"tenantId", tenantID,
		"sessions", len(sessionIDs))

	nodes := []GraphNode{}
	links := []GraphLink{}
	reasonNodes := make(map[string]int)
	stats := GraphStats{
		Timeframe: "last_hour",
	}

	for _, sessionID := range sessionIDs {
		state, exists := s.cacheManager.GetSessionState(tenantID, sessionID)
		if !exists {
			continue
		}

		if state.LastActivity.Before(oneHourAgo) {
			continue
		}

		stats.Sessions++

		sessionNode := GraphNode{
			ID:            sessionID,
			Type:          "session",
			Size:          3,
			LastActivity:  formatTimeAgo(state.LastActivity, now),
			ActivityLevel: getActivityLevel(state.LastActivity, now),
		}

		envelope, hasEnvelope := s.cacheManager.GetEnvelope(tenantID, sessionID)
		if hasEnvelope {
			stats.EnvelopesCached++
			sessionNode.AllowPaid = envelope.AllowPaid
			sessionNode.Stale = envelope.Expired(now)

			if !envelope.Expired(now) {
				stats.EnvelopesValid++
			}
			if envelope.AllowPaid {
				stats.ReadySessions++
			} else {
				stats.BlockedSessions++
			}

			reason := string(envelope.Reason)
			reasonNodes[reason]++
			links = append(links, GraphLink{
				Source: sessionID,
				Target: "reason:" + reason,
				Type:   "decided",
			})
		}

		nodes = append(nodes, sessionNode)
	}

	for reason, count := range reasonNodes {
		nodes = append(nodes, GraphNode{
			ID:    "reason:" + reason,
			Type:  "reason",
			Label: reason,
			Size:  3 + count,
		})
	}

	stats.Nodes = len(nodes)
	stats.Links = len(links)

	s.logger.System().Debug("Activity graph generated",
		"tenantId", tenantID,
		"nodes", stats.Nodes,
		"links", stats.Links)

	return &ActivityGraphResponse{
		Nodes: nodes,
		Links: links,
		Stats: stats,
	}, nil
}

// GetTenantOverview summarizes cache activity across all known tenants.
func (s *SysOpService) GetTenantOverview() map[string]any {
	tenantIDs := s.cacheManager.GetTenantIDs()
	overview := make(map[string]any, len(tenantIDs))

	for _, tenantID := range tenantIDs {
		sessionIDs := s.cacheManager.GetAllSessionIDs(tenantID)
		cached := 0
		for _, sessionID := range sessionIDs {
			if _, exists := s.cacheManager.GetEnvelope(tenantID, sessionID); exists {
				cached++
			}
		}
		entry := map[string]any{
			"sessions":        len(sessionIDs),
			"envelopesCached": cached,
		}
		if lastAccessed, ok := s.cacheManager.GetTenantLastAccessed(tenantID); ok {
			entry["lastAccessed"] = lastAccessed
		}
		overview[tenantID] = entry
	}

	return overview
}

func formatTimeAgo(t, now time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	switch {
	case minutes < 1:
		return "just now"
	case minutes == 1:
		return "1 minute ago"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	default:
		return fmt.Sprintf("%d hours ago", minutes/60)
	}
}

func getActivityLevel(t, now time.Time) string {
	elapsed := now.Sub(t)
	switch {
	case elapsed < 5*time.Minute:
		return "active"
	case elapsed < 30*time.Minute:
		return "recent"
	default:
		return "dormant"
	}
}
