package service

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/events"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/cache"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	rooms    *fakeRoomRepo
	messages *fakeMessageRepo
	agents   *fakeAgentRepo
	bots     *fakeBotRepo
	registry *presence.Registry
	hub      *events.Hub
	matcher  *BotMatcher
	service  *RoomService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	env := &testEnv{
		rooms:    newFakeRoomRepo(),
		messages: newFakeMessageRepo(),
		agents:   newFakeAgentRepo(),
		bots:     newFakeBotRepo(),
	}
	env.registry = presence.NewRegistry(env.agents, log)
	env.hub = events.NewHub(log)
	env.matcher = NewBotMatcher(env.bots, cache.New(time.Minute, 0), log)
	assigner := NewAssigner(env.rooms, env.registry, log)
	env.service = NewRoomService(env.rooms, env.messages, env.registry, env.matcher, assigner, env.hub, log)
	return env
}

func (e *testEnv) addAgent(t *testing.T, maxChats int, specializations string) *models.ChatAgent {
	t.Helper()
	agent := &models.ChatAgent{
		UserID:             uint(100 + len(e.registry.Snapshot())),
		IsOnline:           true,
		IsAvailable:        true,
		MaxConcurrentChats: maxChats,
		Specializations:    specializations,
	}
	require.NoError(t, e.agents.Create(agent))
	e.registry.Register(*agent)
	return agent
}

func (e *testEnv) addRule(t *testing.T, keywords, answer string, priority int) {
	t.Helper()
	require.NoError(t, e.bots.Create(&models.ChatbotResponse{
		Keywords: keywords,
		Answer:   answer,
		Priority: priority,
		IsActive: true,
	}))
	e.matcher.InvalidateRules()
}

func (e *testEnv) seedRoom(t *testing.T, status models.RoomStatus, agentID *uint) *models.ChatRoom {
	t.Helper()
	customerID := uint(1)
	room := &models.ChatRoom{CustomerID: &customerID, Status: models.RoomOpen}
	require.NoError(t, e.rooms.Create(room))
	room.Status = status
	if agentID != nil {
		now := time.Now()
		room.AgentID = agentID
		room.AssignedAt = &now
	}
	require.NoError(t, e.rooms.Update(room))
	return room
}

func customerActor(id uint) Actor { return Actor{UserID: &id} }
func agentActor(id uint) Actor    { return Actor{UserID: &id, IsAgent: true} }
func adminActor(id uint) Actor    { return Actor{UserID: &id, IsAgent: true, IsAdmin: true} }

func TestCreateRoomBotAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.addRule(t, "kargo,nerede", "Kargonuz yolda, takip numaranızı sipariş sayfasında bulabilirsiniz.", 2)

	customerID := uint(7)
	result, err := env.service.CreateRoom(CreateRoomInput{
		CustomerID:     &customerID,
		Category:       "shipping",
		InitialMessage: "Kargom nerede acaba?",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoomOpen, result.Room.Status)
	require.NotNil(t, result.BotReply)
	assert.True(t, result.BotReply.IsFromBot)
	assert.Nil(t, result.Agent)

	messages, err := env.service.ListMessages(result.Room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Kargom nerede acaba?", messages[0].Content)
	assert.True(t, messages[1].IsFromBot)
}

func TestCreateRoomEscalatesWhenNoRuleMatches(t *testing.T) {
	env := newTestEnv(t)

	customerID := uint(7)
	result, err := env.service.CreateRoom(CreateRoomInput{
		CustomerID:     &customerID,
		InitialMessage: "insanla konuşmak istiyorum",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoomWaiting, result.Room.Status)
	assert.Nil(t, result.BotReply)
	assert.Nil(t, result.Agent)
	assert.True(t, result.Match.ShouldEscalate)
}

func TestCreateRoomAssignsFreeAgent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")

	customerID := uint(7)
	result, err := env.service.CreateRoom(CreateRoomInput{
		CustomerID:     &customerID,
		InitialMessage: "siparişim hiç gelmedi ve çok kızgınım",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoomAssigned, result.Room.Status)
	require.NotNil(t, result.Room.AgentID)
	assert.Equal(t, agent.ID, *result.Room.AgentID)
	require.NotNil(t, result.Agent)
	assert.Equal(t, 1, result.Agent.ActiveChats)
	assert.NotNil(t, result.Room.AssignedAt)
}

func TestPostMessageClosedRoomWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomClosed, nil)

	_, err := env.service.PostMessage(room.ID, customerActor(1), "hello?", "")
	assert.ErrorIs(t, err, ErrRoomClosed)

	messages, _ := env.messages.ListByRoom(room.ID)
	assert.Empty(t, messages)

	stored, _ := env.rooms.GetByID(room.ID)
	assert.Equal(t, 0, stored.MessageCount)
}

func TestPostMessageUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.PostMessage(999, customerActor(1), "hi", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPostMessageOrdering(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	for _, content := range []string{"first", "second", "third"} {
		_, err := env.service.PostMessage(room.ID, customerActor(1), content, "")
		require.NoError(t, err)
	}

	messages, err := env.service.ListMessages(room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)

	stored, _ := env.rooms.GetByID(room.ID)
	assert.Equal(t, 3, stored.MessageCount)
	assert.NotNil(t, stored.LastMessageAt)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    models.RoomStatus
		to      models.RoomStatus
		allowed bool
	}{
		{models.RoomOpen, models.RoomWaiting, true},
		{models.RoomOpen, models.RoomClosed, true},
		{models.RoomOpen, models.RoomResolved, false},
		{models.RoomWaiting, models.RoomClosed, true},
		{models.RoomWaiting, models.RoomResolved, false},
		{models.RoomAssigned, models.RoomResolved, true},
		{models.RoomAssigned, models.RoomClosed, true},
		{models.RoomAssigned, models.RoomWaiting, false},
		{models.RoomResolved, models.RoomClosed, true},
		{models.RoomResolved, models.RoomWaiting, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			env := newTestEnv(t)
			var agentID *uint
			if tc.from == models.RoomAssigned || tc.from == models.RoomResolved {
				agent := env.addAgent(t, 3, "")
				agentID = &agent.ID
				if tc.from == models.RoomAssigned {
					require.NoError(t, env.registry.Reserve(agent.ID))
				}
			}
			room := env.seedRoom(t, tc.from, agentID)

			to := tc.to
			_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{Status: &to})
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestBareAssignedStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomWaiting, nil)

	to := models.RoomAssigned
	_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{Status: &to})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateClosedRoomFails(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomClosed, nil)

	to := models.RoomWaiting
	_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{Status: &to})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestResolveRequiresAgentRole(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	require.NoError(t, env.registry.Reserve(agent.ID))
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	to := models.RoomResolved
	_, err := env.service.UpdateRoom(room.ID, customerActor(1), RoomUpdate{Status: &to})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestResolveKeepsAgentAndReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	require.NoError(t, env.registry.Reserve(agent.ID))
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	to := models.RoomResolved
	rating := 5
	updated, err := env.service.UpdateRoom(room.ID, agentActor(50), RoomUpdate{Status: &to, Rating: &rating})
	require.NoError(t, err)

	assert.Equal(t, models.RoomResolved, updated.Status)
	require.NotNil(t, updated.AgentID)
	assert.Equal(t, agent.ID, *updated.AgentID)
	assert.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.SatisfactionRating)
	assert.Equal(t, 5, *updated.SatisfactionRating)

	released, ok := env.registry.Get(agent.ID)
	require.True(t, ok)
	assert.Equal(t, 0, released.ActiveChats)
	assert.Equal(t, 1, released.TotalChatsHandled)
	assert.InDelta(t, 5.0, released.AverageRating, 0.001)
}

func TestForceCloseRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	require.NoError(t, env.registry.Reserve(agent.ID))
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	to := models.RoomClosed
	_, err := env.service.UpdateRoom(room.ID, agentActor(50), RoomUpdate{Status: &to})
	assert.ErrorIs(t, err, ErrForbidden)

	note := "duplicate ticket"
	updated, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{Status: &to, ClosingNote: &note})
	require.NoError(t, err)

	assert.Equal(t, models.RoomClosed, updated.Status)
	assert.Nil(t, updated.AgentID)
	assert.Equal(t, "duplicate ticket", updated.ClosingNote)
	assert.NotNil(t, updated.ClosedAt)

	released, _ := env.registry.Get(agent.ID)
	assert.Equal(t, 0, released.ActiveChats)
}

func TestAssignSpecificAgentAtCapacity(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 1, "")
	require.NoError(t, env.registry.Reserve(agent.ID))
	room := env.seedRoom(t, models.RoomWaiting, nil)

	_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{AgentID: &agent.ID})
	assert.ErrorIs(t, err, ErrAgentAtCapacity)
}

func TestAssignSpecificUnknownAgent(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomWaiting, nil)

	missing := uint(404)
	_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{AgentID: &missing})
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestManualAssignRequiresAgentRole(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	room := env.seedRoom(t, models.RoomWaiting, nil)

	_, err := env.service.UpdateRoom(room.ID, customerActor(1), RoomUpdate{AgentID: &agent.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.service.UpdateRoom(room.ID, Actor{}, RoomUpdate{AgentID: &agent.ID})
	assert.ErrorIs(t, err, ErrForbidden, "anonymous guests cannot bind agents either")

	stored, _ := env.rooms.GetByID(room.ID)
	assert.Equal(t, models.RoomWaiting, stored.Status)
	assert.Nil(t, stored.AgentID)

	live, _ := env.registry.Get(agent.ID)
	assert.Equal(t, 0, live.ActiveChats)
}

func TestPriorityChangeRequiresAgentRole(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomWaiting, nil)

	high := models.PriorityHigh
	_, err := env.service.UpdateRoom(room.ID, customerActor(1), RoomUpdate{Priority: &high})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := env.service.UpdateRoom(room.ID, agentActor(50), RoomUpdate{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
}

func TestManualAssignRollsBackOnWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	room := env.seedRoom(t, models.RoomWaiting, nil)
	env.rooms.setUpdateErr(errors.New("connection reset"))

	_, err := env.service.UpdateRoom(room.ID, adminActor(9), RoomUpdate{AgentID: &agent.ID})
	assert.Error(t, err)

	live, _ := env.registry.Get(agent.ID)
	assert.Equal(t, 0, live.ActiveChats, "reservation undone when the room write fails")

	env.rooms.setUpdateErr(nil)
	stored, _ := env.rooms.GetByID(room.ID)
	assert.Equal(t, models.RoomWaiting, stored.Status)
	assert.Nil(t, stored.AgentID)
}

func TestResolveKeepsSlotOnWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	require.NoError(t, env.registry.Reserve(agent.ID))
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)
	env.rooms.setUpdateErr(errors.New("connection reset"))

	to := models.RoomResolved
	_, err := env.service.UpdateRoom(room.ID, agentActor(50), RoomUpdate{Status: &to})
	assert.Error(t, err)

	live, _ := env.registry.Get(agent.ID)
	assert.Equal(t, 1, live.ActiveChats, "slot stays held while the room is still assigned")
	assert.Equal(t, 0, live.TotalChatsHandled)

	env.rooms.setUpdateErr(nil)
	stored, _ := env.rooms.GetByID(room.ID)
	assert.Equal(t, models.RoomAssigned, stored.Status)
}

func TestRequestHumanLifecycle(t *testing.T) {
	env := newTestEnv(t)

	open := env.seedRoom(t, models.RoomOpen, nil)
	room, agent, err := env.service.RequestHuman(open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomWaiting, room.Status)
	assert.Nil(t, agent)

	_, _, err = env.service.RequestHuman(open.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	closed := env.seedRoom(t, models.RoomClosed, nil)
	_, _, err = env.service.RequestHuman(closed.ID)
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestMarkReadScopedToOtherSide(t *testing.T) {
	env := newTestEnv(t)
	agent := env.addAgent(t, 3, "")
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	_, err := env.service.PostMessage(room.ID, customerActor(1), "customer question", "")
	require.NoError(t, err)
	_, err = env.service.PostMessage(room.ID, agentActor(50), "agent answer", "")
	require.NoError(t, err)

	// The customer's read receipt covers the agent's message only.
	require.NoError(t, env.service.MarkRead(room.ID, customerActor(1)))

	messages, _ := env.service.ListMessages(room.ID)
	require.Len(t, messages, 2)
	assert.False(t, messages[0].IsRead, "own message must stay unread")
	assert.True(t, messages[1].IsRead)

	// The agent's receipt then covers the customer's message.
	require.NoError(t, env.service.MarkRead(room.ID, agentActor(50)))
	messages, _ = env.service.ListMessages(room.ID)
	assert.True(t, messages[0].IsRead)
}

func TestRatingRequiresResolvedRoom(t *testing.T) {
	env := newTestEnv(t)
	room := env.seedRoom(t, models.RoomOpen, nil)

	rating := 4
	_, err := env.service.UpdateRoom(room.ID, customerActor(1), RoomUpdate{Rating: &rating})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	bad := 9
	agent := env.addAgent(t, 3, "")
	resolved := env.seedRoom(t, models.RoomResolved, &agent.ID)
	_, err = env.service.UpdateRoom(resolved.ID, customerActor(1), RoomUpdate{Rating: &bad})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	good := 4
	updated, err := env.service.UpdateRoom(resolved.ID, customerActor(1), RoomUpdate{Rating: &good})
	require.NoError(t, err)
	require.NotNil(t, updated.SatisfactionRating)
	assert.Equal(t, 4, *updated.SatisfactionRating)
}

func TestCustomerMessageInAssignedRoomSkipsBot(t *testing.T) {
	env := newTestEnv(t)
	env.addRule(t, "kargo", "otomatik cevap", 1)
	agent := env.addAgent(t, 3, "")
	room := env.seedRoom(t, models.RoomAssigned, &agent.ID)

	_, err := env.service.PostMessage(room.ID, customerActor(1), "kargo ne zaman gelir", "")
	require.NoError(t, err)

	messages, _ := env.service.ListMessages(room.ID)
	require.Len(t, messages, 1, "no bot reply once a human holds the room")
}
