package messaging

import (
	"encoding/json"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/tenant"
	"github.com/gorilla/websocket"
)

// SysOpClient represents a single connected sysop dashboard client.
type SysOpClient struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// SessionState represents the detailed state of a single user session for visualization.
type SessionState struct {
	HasEnvelope  bool      `json:"hasEnvelope"`
	AllowPaid    bool      `json:"allowPaid"`
	LastActivity time.Time `json:"lastActivity"`
}

// SessionStatePayload is the complete data structure sent to the frontend on each tick.
type SessionStatePayload struct {
	SessionStates []SessionState `json:"sessionStates"`
	DisplayMode   string         `json:"displayMode"` // "1:1" or "PROPORTIONAL"
	TotalCount    int            `json:"totalCount"`
	ReadyCount    int            `json:"readyCount"`
	ActiveCount   int            `json:"activeCount"`
	DormantCount  int            `json:"dormantCount"`
	DecidedCount  int            `json:"decidedCount"`
}

// sessionStats holds the raw counts for proportional calculation.
type sessionStats struct{ Total, Ready, Active, Dormant, Decided int }

// SysOpBroadcaster manages all connected sysop clients and broadcasts data.
type SysOpBroadcaster struct {
	tenantClients map[string]map[*SysOpClient]bool
	register      chan *SysOpClient
	unregister    chan *SysOpClient
	cacheManager  *manager.Manager
	tenantManager *tenant.Manager
	mu            sync.RWMutex
}

// NewSysOpBroadcaster creates a new broadcaster instance.
func NewSysOpBroadcaster(tm *tenant.Manager, cm *manager.Manager) *SysOpBroadcaster {
	return &SysOpBroadcaster{
		tenantClients: make(map[string]map[*SysOpClient]bool),
		register:      make(chan *SysOpClient),
		unregister:    make(chan *SysOpClient),
		cacheManager:  cm,
		tenantManager: tm,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *SysOpBroadcaster) Run() {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*SysOpClient]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			log.Printf("SysOp client registered for tenant: %s", client.TenantID)
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			log.Printf("SysOp client unregistered for tenant: %s", client.TenantID)
			b.mu.Unlock()

		case <-ticker.C:
			b.broadcastSessionMaps()
		}
	}
}

// Register queues a client for registration.
func (b *SysOpBroadcaster) Register(client *SysOpClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *SysOpBroadcaster) Unregister(client *SysOpClient) {
	b.unregister <- client
}

// broadcastSessionMaps gathers and sends the session state for all tenants with active clients.
func (b *SysOpBroadcaster) broadcastSessionMaps() {
	b.mu.RLock()
	tenantIDs := make([]string, 0, len(b.tenantClients))
	for tenantID := range b.tenantClients {
		tenantIDs = append(tenantIDs, tenantID)
	}
	b.mu.RUnlock()

	for _, tenantID := range tenantIDs {
		fullStateList := b.getSessionStatesForTenant(tenantID)
		payload := b.preparePayload(fullStateList)

		message, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Error marshaling session state for tenant %s: %v", tenantID, err)
			continue
		}

		b.mu.RLock()
		if clients, ok := b.tenantClients[tenantID]; ok {
			for client := range clients {
				select {
				case client.Send <- message:
				default:
				}
			}
		}
		b.mu.RUnlock()
	}
}

// getSessionStatesForTenant is the core logic for calculating the state of each session.
func (b *SysOpBroadcaster) getSessionStatesForTenant(tenantID string) []SessionState {
	sessionIDs := b.cacheManager.GetAllSessionIDs(tenantID)

	states := make([]SessionState, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		state, found := b.cacheManager.GetSessionState(tenantID, sessionID)
		if !found {
			continue
		}

		hasEnvelope := state.Envelope != nil
		allowPaid := hasEnvelope && state.Envelope.AllowPaid
		states = append(states, SessionState{
			HasEnvelope:  hasEnvelope,
			AllowPaid:    allowPaid,
			LastActivity: state.LastActivity,
		})
	}
	return states
}

// preparePayload handles the logic for proportional scaling.
func (b *SysOpBroadcaster) preparePayload(fullStateList []SessionState) SessionStatePayload {
	stats := b.calculateStats(fullStateList)
	var displayStates []SessionState
	displayMode := "1:1"

	// Switch to proportional mode if session count is high
	if stats.Total > 200 {
		displayMode = "PROPORTIONAL"
		displayStates = b.calculateProportionalStates(fullStateList, 200)
	} else {
		displayStates = fullStateList
	}

	return SessionStatePayload{
		SessionStates: displayStates,
		DisplayMode:   displayMode,
		TotalCount:    stats.Total,
		ReadyCount:    stats.Ready,
		ActiveCount:   stats.Active,
		DormantCount:  stats.Dormant,
		DecidedCount:  stats.Decided,
	}
}

// calculateStats calculates aggregate statistics from the full session list.
func (b *SysOpBroadcaster) calculateStats(fullStateList []SessionState) (stats sessionStats) {
	stats.Total = len(fullStateList)
	now := time.Now()
	for _, s := range fullStateList {
		if s.HasEnvelope {
			stats.Decided++
		}
		if s.AllowPaid {
			stats.Ready++
		}
		if now.Sub(s.LastActivity).Minutes() <= 45 {
			stats.Active++
		} else {
			stats.Dormant++
		}
	}
	return stats
}

// calculateProportionalStates derives display proportions from the 5-tier activity decay.
func (b *SysOpBroadcaster) calculateProportionalStates(fullStateList []SessionState, displayCount int) []SessionState {
	total := len(fullStateList)
	if total == 0 {
		return []SessionState{}
	}

	now := time.Now()
	// Representative timestamps for each activity tier to trigger the correct CSS on the frontend.
	timeTiers := map[string]time.Time{
		"ultra":   now,
		"bright":  now.Add(-10 * time.Minute),
		"medium":  now.Add(-20 * time.Minute),
		"light":   now.Add(-40 * time.Minute),
		"dormant": now.Add(-60 * time.Minute),
	}

	// 1. Group sessions into detailed buckets based on type and activity tier.
	counts := make(map[string]int)
	for _, s := range fullStateList {
		minutesSince := now.Sub(s.LastActivity).Minutes()

		var tier string
		if minutesSince < 1 {
			tier = "ultra"
		} else if minutesSince <= 15 {
			tier = "bright"
		} else if minutesSince <= 30 {
			tier = "medium"
		} else if minutesSince <= 45 {
			tier = "light"
		} else {
			tier = "dormant"
		}

		var categoryPrefix string
		if s.AllowPaid {
			categoryPrefix = "ready"
		} else if s.HasEnvelope {
			categoryPrefix = "decided"
		} else {
			categoryPrefix = "anon"
		}
		counts[categoryPrefix+"_"+tier]++
	}

	// 2. Build the final list of 200 states based on the calculated proportions.
	proportionalStates := make([]SessionState, 0, displayCount)
	categoryOrder := []string{ // Define order for consistent display
		"ready_ultra", "ready_bright", "ready_medium", "ready_light", "ready_dormant",
		"decided_ultra", "decided_bright", "decided_medium", "decided_light", "decided_dormant",
		"anon_ultra", "anon_bright", "anon_medium", "anon_light", "anon_dormant",
	}

	// Helper to create multiple copies of a state
	repeatState := func(num int, state SessionState) {
		for i := 0; i < num; i++ {
			proportionalStates = append(proportionalStates, state)
		}
	}

	for _, category := range categoryOrder {
		categoryCount := counts[category]
		if categoryCount == 0 {
			continue
		}

		// Determine the representative SessionState template for this category
		var template SessionState
		switch {
		case strings.HasPrefix(category, "ready"):
			template.HasEnvelope = true
			template.AllowPaid = true
		case strings.HasPrefix(category, "decided"):
			template.HasEnvelope = true
		default: // "anon"
			// HasEnvelope and AllowPaid are already false
		}

		tier := strings.Split(category, "_")[1]
		template.LastActivity = timeTiers[tier]

		// Calculate how many blocks this category gets and add them to the list
		numBlocks := int(math.Round((float64(categoryCount) / float64(total)) * float64(displayCount)))
		if numBlocks > 0 {
			repeatState(numBlocks, template)
		}
	}

	// 3. Shuffle and adjust for rounding errors to ensure a clean visual mix and exact count.
	sort.SliceStable(proportionalStates, func(i, j int) bool {
		// A simple sort to group types, which looks better than pure random
		if proportionalStates[i].AllowPaid != proportionalStates[j].AllowPaid {
			return proportionalStates[i].AllowPaid
		}
		return proportionalStates[i].HasEnvelope
	})

	if len(proportionalStates) > displayCount {
		return proportionalStates[:displayCount]
	}
	for len(proportionalStates) < displayCount {
		// Pad with the most common "anonymous dormant" state if we're short due to rounding
		proportionalStates = append(proportionalStates, SessionState{LastActivity: timeTiers["dormant"]})
	}

	return proportionalStates
}
