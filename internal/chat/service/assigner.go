package service

import (
	"errors"
	"sort"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

// Assigner binds waiting rooms to available agents. The capacity check and
// the load increment happen inside the registry's per-agent critical section,
// and the room update plus that increment form one logical unit: a failed
// room write rolls the reservation back.
type Assigner struct {
	rooms    repository.RoomRepository
	registry *presence.Registry
	log      *logger.Logger
}

func NewAssigner(rooms repository.RoomRepository, registry *presence.Registry, log *logger.Logger) *Assigner {
	return &Assigner{rooms: rooms, registry: registry, log: log}
}

// Assign picks the best candidate for the room and commits the assignment.
// The caller must hold the room's lock and the room must be in waiting.
// Returns ErrNoAgentAvailable when no eligible candidate exists; the room is
// left untouched in that case.
func (a *Assigner) Assign(room *models.ChatRoom) (*models.ChatAgent, error) {
	if room.Status != models.RoomWaiting {
		return nil, ErrInvalidTransition
	}

	candidates := a.registry.Candidates()
	if len(candidates) == 0 {
		return nil, ErrNoAgentAvailable
	}
	rankCandidates(candidates, room.Category)

	for i := range candidates {
		agent := candidates[i]

		err := a.registry.Reserve(agent.ID)
		if errors.Is(err, presence.ErrAtCapacity) {
			// Lost the race for this agent's last slot; try the next one.
			continue
		}
		if err != nil {
			return nil, err
		}

		now := time.Now()
		prevAgent, prevStatus, prevAssigned := room.AgentID, room.Status, room.AssignedAt
		room.AgentID = &agent.ID
		room.Status = models.RoomAssigned
		room.AssignedAt = &now

		if err := a.rooms.Update(room); err != nil {
			room.AgentID, room.Status, room.AssignedAt = prevAgent, prevStatus, prevAssigned
			a.registry.Unreserve(agent.ID)
			return nil, err
		}

		reserved, _ := a.registry.Get(agent.ID)
		a.log.Info("room assigned",
			"room_id", room.ID,
			"agent_id", agent.ID,
			"active_chats", reserved.ActiveChats,
			"category", room.Category,
		)
		return &reserved, nil
	}

	return nil, ErrNoAgentAvailable
}

// rankCandidates orders agents by routing preference: specialization match on
// the room's category, then lightest load, then fastest responder, then the
// agent idle longest.
func rankCandidates(agents []models.ChatAgent, category string) {
	sort.SliceStable(agents, func(i, j int) bool {
		ai, aj := &agents[i], &agents[j]

		if category != "" {
			si, sj := ai.HasSpecialization(category), aj.HasSpecialization(category)
			if si != sj {
				return si
			}
		}
		if ai.ActiveChats != aj.ActiveChats {
			return ai.ActiveChats < aj.ActiveChats
		}
		if ai.AverageResponseTime != aj.AverageResponseTime {
			return ai.AverageResponseTime < aj.AverageResponseTime
		}
		return ai.LastActiveAt.Before(aj.LastActiveAt)
	})
}
