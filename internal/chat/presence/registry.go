package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

var (
	ErrUnknownAgent = errors.New("agent not registered")
	ErrAtCapacity   = errors.New("agent at maximum concurrent chats")
)

// Mirror publishes presence changes to an external store (Redis). Every call
// is best-effort; the registry never fails an operation because the mirror is
// unreachable.
type Mirror interface {
	SetOnline(ctx context.Context, agentID uint, online bool) error
	Heartbeat(ctx context.Context, agentID uint) error
}

// entry serializes all mutations for one agent. Unrelated agents never
// contend on each other's locks.
type entry struct {
	mu    sync.Mutex
	agent models.ChatAgent
}

// Registry is the authoritative in-process view of agent presence and load.
// The outer lock guards only the map; per-agent state is guarded per entry so
// a capacity check and the matching increment form one critical section.
type Registry struct {
	mu     sync.RWMutex
	agents map[uint]*entry

	repo   repository.AgentRepository
	mirror Mirror
	log    *logger.Logger
}

func NewRegistry(repo repository.AgentRepository, log *logger.Logger) *Registry {
	return &Registry{
		agents: make(map[uint]*entry),
		repo:   repo,
		log:    log,
	}
}

// SetMirror attaches the optional external presence mirror.
func (r *Registry) SetMirror(m Mirror) {
	r.mirror = m
}

// Load hydrates the registry from the agent store at startup.
func (r *Registry) Load() error {
	agents, err := r.repo.List()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		r.agents[a.ID] = &entry{agent: a}
	}
	r.log.Info("presence registry loaded", "agents", len(agents))
	return nil
}

// Register adds or replaces an agent record, e.g. after an agent profile is
// created through the admin API.
func (r *Registry) Register(agent models.ChatAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = &entry{agent: agent}
}

func (r *Registry) Remove(agentID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
}

func (r *Registry) lookup(agentID uint) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[agentID]
	return e, ok
}

// Get returns a copy of the agent's current state.
func (r *Registry) Get(agentID uint) (models.ChatAgent, bool) {
	e, ok := r.lookup(agentID)
	if !ok {
		return models.ChatAgent{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agent, true
}

// Snapshot returns a copy of every agent record.
func (r *Registry) Snapshot() []models.ChatAgent {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.agents))
	for _, e := range r.agents {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]models.ChatAgent, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.agent)
		e.mu.Unlock()
	}
	return out
}

// Candidates returns agents eligible for assignment: online, available and
// below their concurrency ceiling.
func (r *Registry) Candidates() []models.ChatAgent {
	var out []models.ChatAgent
	for _, a := range r.Snapshot() {
		if a.IsOnline && a.IsAvailable && a.ActiveChats < a.MaxConcurrentChats {
			out = append(out, a)
		}
	}
	return out
}

// Reserve atomically checks capacity and increments the agent's load. The
// write-through to the store happens inside the same critical section, so no
// observer sees a reserved slot without the persisted counter.
func (r *Registry) Reserve(agentID uint) error {
	e, ok := r.lookup(agentID)
	if !ok {
		return ErrUnknownAgent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.agent.IsOnline || !e.agent.IsAvailable {
		return ErrAtCapacity
	}
	if e.agent.ActiveChats >= e.agent.MaxConcurrentChats {
		return ErrAtCapacity
	}

	e.agent.ActiveChats++
	e.agent.LastActiveAt = time.Now()
	if err := r.repo.Update(&e.agent); err != nil {
		e.agent.ActiveChats--
		return err
	}
	return nil
}

// Unreserve undoes a Reserve whose room-side write failed. Unlike Release it
// does not count the chat as handled.
func (r *Registry) Unreserve(agentID uint) {
	e, ok := r.lookup(agentID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.agent.ActiveChats > 0 {
		e.agent.ActiveChats--
	}
	if err := r.repo.Update(&e.agent); err != nil {
		r.log.Warn("unreserve write-through failed", "agent_id", agentID, "error", err.Error())
	}
}

// Release decrements the agent's load after a room is resolved or closed and
// folds the outcome into the agent's running statistics.
func (r *Registry) Release(agentID uint, rating *int, responseTime time.Duration) error {
	e, ok := r.lookup(agentID)
	if !ok {
		return ErrUnknownAgent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.agent
	if e.agent.ActiveChats > 0 {
		e.agent.ActiveChats--
	}
	handled := float64(e.agent.TotalChatsHandled)
	e.agent.TotalChatsHandled++
	if responseTime > 0 {
		e.agent.AverageResponseTime = (e.agent.AverageResponseTime*handled + responseTime.Seconds()) / (handled + 1)
	}
	if rating != nil {
		e.agent.AverageRating = (e.agent.AverageRating*handled + float64(*rating)) / (handled + 1)
	}
	e.agent.LastActiveAt = time.Now()

	if err := r.repo.Update(&e.agent); err != nil {
		e.agent = prev
		return err
	}
	return nil
}

// SetStatus updates the agent's online/available flags.
func (r *Registry) SetStatus(agentID uint, online, available bool) error {
	e, ok := r.lookup(agentID)
	if !ok {
		return ErrUnknownAgent
	}

	e.mu.Lock()
	e.agent.IsOnline = online
	e.agent.IsAvailable = available
	e.agent.LastActiveAt = time.Now()
	agent := e.agent
	err := r.repo.Update(&e.agent)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if r.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if merr := r.mirror.SetOnline(ctx, agent.ID, online); merr != nil {
			r.log.Warn("presence mirror update failed", "agent_id", agent.ID, "error", merr.Error())
		}
	}
	return nil
}

// Heartbeat refreshes LastActiveAt without touching load or flags.
func (r *Registry) Heartbeat(agentID uint) {
	e, ok := r.lookup(agentID)
	if !ok {
		return
	}
	e.mu.Lock()
	e.agent.LastActiveAt = time.Now()
	e.mu.Unlock()

	if r.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.mirror.Heartbeat(ctx, agentID); err != nil {
			r.log.Debug("presence heartbeat mirror failed", "agent_id", agentID, "error", err.Error())
		}
	}
}
