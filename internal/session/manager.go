package session

import (
	"context"
	"sync"
	"time"
)

// State tracks one device conversation. A trigger phrase arms
// WaitingForMedication; the next distinct utterance is treated as the
// medication details. LastProcessed guards against the device resending
// the same transcript segment.
type State struct {
	ID                   string    `json:"session_id"`
	UID                  string    `json:"uid"`
	WaitingForMedication bool      `json:"waiting_for_medication"`
	LastProcessed        string    `json:"-"`
	TriggerTime          time.Time `json:"trigger_time"`
	StartedAt            time.Time `json:"started_at"`
	LastActivityAt       time.Time `json:"last_activity_at"`
}

// idleRetention bounds how long an inactive session is kept around.
const idleRetention = time.Hour

type Manager struct {
	mu          sync.RWMutex
	states      map[string]*State
	waitTimeout time.Duration
	onExpire    func(*State)
}

func NewManager(waitTimeout time.Duration) *Manager {
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}
	return &Manager{
		states:      make(map[string]*State),
		waitTimeout: waitTimeout,
	}
}

// WaitTimeout is how long an armed session waits for medication details.
func (m *Manager) WaitTimeout() time.Duration {
	return m.waitTimeout
}

func (m *Manager) SetExpireHook(hook func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Observe creates the session on first sight and touches its activity time.
func (m *Manager) Observe(sessionID, uid string) State {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[sessionID]
	if !ok {
		s = &State{ID: sessionID, StartedAt: now}
		m.states[sessionID] = s
	}
	if uid != "" {
		s.UID = uid
	}
	s.LastActivityAt = now
	return *s
}

// Arm puts the session into the waiting-for-medication state.
func (m *Manager) Arm(sessionID, processedText string) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[sessionID]
	if !ok {
		return
	}
	s.WaitingForMedication = true
	s.LastProcessed = processedText
	s.TriggerTime = now
	s.LastActivityAt = now
}

// Disarm clears the waiting state after the details arrived (or timed out).
func (m *Manager) Disarm(sessionID, processedText string) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[sessionID]
	if !ok {
		return
	}
	s.WaitingForMedication = false
	s.TriggerTime = time.Time{}
	if processedText != "" {
		s.LastProcessed = processedText
	}
	s.LastActivityAt = now
}

func (m *Manager) WaitingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.states {
		if s.WaitingForMedication {
			count++
		}
	}
	return count
}

// StartJanitor periodically clears waiting states that outlived the wait
// timeout and drops long-idle sessions.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Manager) sweep() {
	now := time.Now().UTC()
	var expired []*State

	m.mu.Lock()
	for id, s := range m.states {
		if s.WaitingForMedication && now.Sub(s.TriggerTime) > m.waitTimeout {
			s.WaitingForMedication = false
			s.TriggerTime = time.Time{}
			c := *s
			expired = append(expired, &c)
		}
		if now.Sub(s.LastActivityAt) > idleRetention {
			delete(m.states, id)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}
