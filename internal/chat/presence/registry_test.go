package presence

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memAgentRepo struct {
	mu     sync.Mutex
	agents map[uint]models.ChatAgent
}

func newMemAgentRepo() *memAgentRepo {
	return &memAgentRepo{agents: make(map[uint]models.ChatAgent)}
}

func (r *memAgentRepo) Create(agent *models.ChatAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent.ID == 0 {
		agent.ID = uint(len(r.agents) + 1)
	}
	r.agents[agent.ID] = *agent
	return nil
}

func (r *memAgentRepo) GetByID(id uint) (*models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := agent
	return &out, nil
}

func (r *memAgentRepo) GetByUserID(userID uint) (*models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.UserID == userID {
			out := agent
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAgentRepo) Update(agent *models.ChatAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = *agent
	return nil
}

func (r *memAgentRepo) List() ([]models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ChatAgent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent)
	}
	return out, nil
}

func (r *memAgentRepo) ListOnline() ([]models.ChatAgent, error) {
	all, _ := r.List()
	var out []models.ChatAgent
	for _, agent := range all {
		if agent.IsOnline {
			out = append(out, agent)
		}
	}
	return out, nil
}

type recordingMirror struct {
	mu         sync.Mutex
	online     map[uint]bool
	heartbeats int
}

func (m *recordingMirror) SetOnline(ctx context.Context, agentID uint, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == nil {
		m.online = make(map[uint]bool)
	}
	m.online[agentID] = online
	return nil
}

func (m *recordingMirror) Heartbeat(ctx context.Context, agentID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *memAgentRepo) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	repo := newMemAgentRepo()
	return NewRegistry(repo, log), repo
}

func seedAgent(t *testing.T, registry *Registry, repo *memAgentRepo, maxChats int) models.ChatAgent {
	t.Helper()
	agent := &models.ChatAgent{
		UserID:             uint(100),
		IsOnline:           true,
		IsAvailable:        true,
		MaxConcurrentChats: maxChats,
	}
	require.NoError(t, repo.Create(agent))
	registry.Register(*agent)
	return *agent
}

func TestReserveUnknownAgent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	assert.ErrorIs(t, registry.Reserve(42), ErrUnknownAgent)
}

func TestReserveEnforcesCapacity(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 2)

	require.NoError(t, registry.Reserve(agent.ID))
	require.NoError(t, registry.Reserve(agent.ID))
	assert.ErrorIs(t, registry.Reserve(agent.ID), ErrAtCapacity)

	// The persisted record mirrors the in-memory count.
	stored, err := repo.GetByID(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ActiveChats)
}

func TestReserveRejectsOfflineAgent(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 2)

	require.NoError(t, registry.SetStatus(agent.ID, false, false))
	assert.ErrorIs(t, registry.Reserve(agent.ID), ErrAtCapacity)
}

func TestConcurrentReserveNeverOverbooks(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 3)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- registry.Reserve(agent.ID)
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 3, ok)

	current, found := registry.Get(agent.ID)
	require.True(t, found)
	assert.Equal(t, 3, current.ActiveChats)
}

func TestReleaseFoldsRunningStats(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 3)

	require.NoError(t, registry.Reserve(agent.ID))
	require.NoError(t, registry.Reserve(agent.ID))

	five := 5
	require.NoError(t, registry.Release(agent.ID, &five, 100*time.Second))
	three := 3
	require.NoError(t, registry.Release(agent.ID, &three, 200*time.Second))

	current, _ := registry.Get(agent.ID)
	assert.Equal(t, 0, current.ActiveChats)
	assert.Equal(t, 2, current.TotalChatsHandled)
	assert.InDelta(t, 150.0, current.AverageResponseTime, 0.001)
	assert.InDelta(t, 4.0, current.AverageRating, 0.001)
}

func TestReleaseWithoutRatingKeepsAverage(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 3)

	require.NoError(t, registry.Reserve(agent.ID))
	require.NoError(t, registry.Release(agent.ID, nil, 0))

	current, _ := registry.Get(agent.ID)
	assert.Equal(t, 1, current.TotalChatsHandled)
	assert.Zero(t, current.AverageRating)
	assert.Zero(t, current.AverageResponseTime)
}

func TestCandidatesFiltering(t *testing.T) {
	registry, repo := newTestRegistry(t)

	free := seedAgent(t, registry, repo, 2)

	busy := &models.ChatAgent{UserID: 101, IsOnline: true, IsAvailable: true, MaxConcurrentChats: 1, ActiveChats: 1}
	require.NoError(t, repo.Create(busy))
	registry.Register(*busy)

	offline := &models.ChatAgent{UserID: 102, IsOnline: false, IsAvailable: true, MaxConcurrentChats: 2}
	require.NoError(t, repo.Create(offline))
	registry.Register(*offline)

	candidates := registry.Candidates()
	require.Len(t, candidates, 1)
	assert.Equal(t, free.ID, candidates[0].ID)
}

func TestSetStatusNotifiesMirror(t *testing.T) {
	registry, repo := newTestRegistry(t)
	agent := seedAgent(t, registry, repo, 2)

	mirror := &recordingMirror{}
	registry.SetMirror(mirror)

	require.NoError(t, registry.SetStatus(agent.ID, true, true))
	registry.Heartbeat(agent.ID)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	assert.True(t, mirror.online[agent.ID])
	assert.Equal(t, 1, mirror.heartbeats)
}

func TestLoadHydratesFromStore(t *testing.T) {
	registry, repo := newTestRegistry(t)

	require.NoError(t, repo.Create(&models.ChatAgent{UserID: 1, IsOnline: true, IsAvailable: true, MaxConcurrentChats: 3}))
	require.NoError(t, repo.Create(&models.ChatAgent{UserID: 2, MaxConcurrentChats: 3}))

	require.NoError(t, registry.Load())
	assert.Len(t, registry.Snapshot(), 2)
	assert.Len(t, registry.Candidates(), 1)
}
