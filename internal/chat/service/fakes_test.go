package service

import (
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"

	"gorm.io/gorm"
)

// In-memory repositories backing the service tests. They mimic the Gorm
// implementations closely enough for lifecycle and ordering semantics,
// including returning gorm.ErrRecordNotFound for missing rows.

type fakeRoomRepo struct {
	mu        sync.Mutex
	nextID    uint
	rooms     map[uint]models.ChatRoom
	updateErr error
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{nextID: 1, rooms: make(map[uint]models.ChatRoom)}
}

func (r *fakeRoomRepo) Create(room *models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room.ID = r.nextID
	r.nextID++
	room.CreatedAt = time.Now()
	r.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) GetByID(id uint) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := room
	return &out, nil
}

func (r *fakeRoomRepo) Update(room *models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.rooms[room.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rooms[room.ID] = *room
	return nil
}

// setUpdateErr makes every subsequent Update fail with err.
func (r *fakeRoomRepo) setUpdateErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

func (r *fakeRoomRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
	return nil
}

func (r *fakeRoomRepo) ListByStatus(status models.RoomStatus, limit, offset int) ([]models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatRoom
	for _, room := range r.rooms {
		if room.Status == status {
			out = append(out, room)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRoomRepo) ListWaiting() ([]models.ChatRoom, error) {
	return r.ListByStatus(models.RoomWaiting, 0, 0)
}

func (r *fakeRoomRepo) ListByCustomer(customerID uint) ([]models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatRoom
	for _, room := range r.rooms {
		if room.CustomerID != nil && *room.CustomerID == customerID {
			out = append(out, room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) ListByAgent(agentID uint) ([]models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatRoom
	for _, room := range r.rooms {
		if room.AgentID != nil && *room.AgentID == agentID {
			out = append(out, room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) CountByStatus() (map[models.RoomStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[models.RoomStatus]int64)
	for _, room := range r.rooms {
		out[room.Status]++
	}
	return out, nil
}

func (r *fakeRoomRepo) CountByCategory() (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for _, room := range r.rooms {
		if room.Category != "" {
			out[room.Category]++
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages []models.ChatMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1}
}

func (r *fakeMessageRepo) Create(message *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = r.nextID
	r.nextID++
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeMessageRepo) GetByID(id uint) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			out := m
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) ListByRoom(roomID uint) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range r.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListByRoomPaginated(roomID uint, limit, offset int) ([]models.ChatMessage, error) {
	all, _ := r.ListByRoom(roomID)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMessageRepo) MarkRead(roomID uint, readerID *uint, readerIsAgentSide bool, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.RoomID != roomID || m.IsRead {
			continue
		}
		if readerIsAgentSide {
			if m.IsFromAdmin || m.IsFromBot {
				continue
			}
		} else {
			if !m.IsFromAdmin && !m.IsFromBot {
				continue
			}
		}
		if readerID != nil && m.SenderID != nil && *m.SenderID == *readerID {
			continue
		}
		m.IsRead = true
		readAt := at
		m.ReadAt = &readAt
		n++
	}
	return n, nil
}

func (r *fakeMessageRepo) UnreadCount(roomID uint, readerIsAgentSide bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.RoomID != roomID || m.IsRead {
			continue
		}
		fromAgentSide := m.IsFromAdmin || m.IsFromBot
		if readerIsAgentSide != fromAgentSide {
			n++
		}
	}
	return n, nil
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	nextID uint
	agents map[uint]models.ChatAgent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{nextID: 1, agents: make(map[uint]models.ChatAgent)}
}

func (r *fakeAgentRepo) Create(agent *models.ChatAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent.ID = r.nextID
	r.nextID++
	r.agents[agent.ID] = *agent
	return nil
}

func (r *fakeAgentRepo) GetByID(id uint) (*models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := agent
	return &out, nil
}

func (r *fakeAgentRepo) GetByUserID(userID uint) (*models.ChatAgent, error) {
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

func (r *fakeAgentRepo) Update(agent *models.ChatAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.agents[agent.ID] = *agent
	return nil
}

func (r *fakeAgentRepo) List() ([]models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ChatAgent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent)
	}
	return out, nil
}

func (r *fakeAgentRepo) ListOnline() ([]models.ChatAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatAgent
	for _, agent := range r.agents {
		if agent.IsOnline {
			out = append(out, agent)
		}
	}
	return out, nil
}

type fakeBotRepo struct {
	mu     sync.Mutex
	nextID uint
	rules  map[uint]models.ChatbotResponse
}

func newFakeBotRepo() *fakeBotRepo {
	return &fakeBotRepo{nextID: 1, rules: make(map[uint]models.ChatbotResponse)}
}

func (r *fakeBotRepo) Create(rule *models.ChatbotResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == 0 {
		rule.ID = r.nextID
		r.nextID++
	} else if rule.ID >= r.nextID {
		r.nextID = rule.ID + 1
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeBotRepo) GetByID(id uint) (*models.ChatbotResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := rule
	return &out, nil
}

func (r *fakeBotRepo) Update(rule *models.ChatbotResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeBotRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *fakeBotRepo) ListActive() ([]models.ChatbotResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatbotResponse
	for id := uint(1); id < r.nextID; id++ {
		if rule, ok := r.rules[id]; ok && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeBotRepo) ListActiveByCategory(category string) ([]models.ChatbotResponse, error) {
	all, _ := r.ListActive()
	var out []models.ChatbotResponse
	for _, rule := range all {
		if rule.Category == category {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeBotRepo) IncrementHitCount(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rule.HitCount++
	r.rules[id] = rule
	return nil
}
