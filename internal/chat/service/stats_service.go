package service

import (
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
)

// statsSample caps how many finished rooms feed the rolling averages.
const statsSample = 200

// AgentStatus is one line of the online-agent list.
type AgentStatus struct {
	AgentID     uint    `json:"agent_id"`
	UserID      uint    `json:"user_id"`
	IsAvailable bool    `json:"is_available"`
	ActiveChats int     `json:"active_chats"`
	MaxChats    int     `json:"max_concurrent_chats"`
	AvgRating   float64 `json:"average_rating"`
}

// Stats is the on-demand aggregate over current room and agent state.
type Stats struct {
	RoomsByStatus   map[models.RoomStatus]int64 `json:"rooms_by_status"`
	RoomsByCategory map[string]int64            `json:"rooms_by_category"`
	WaitingRooms    int64                       `json:"waiting_rooms"`
	ActiveRooms     int64                       `json:"active_rooms"`
	ResolvedRooms   int64                       `json:"resolved_rooms"`

	AvgWaitSeconds     float64 `json:"avg_wait_seconds"`
	AvgResponseSeconds float64 `json:"avg_response_seconds"`
	AvgSatisfaction    float64 `json:"avg_satisfaction"`

	OnlineAgents []AgentStatus `json:"online_agents"`
}

// StatsService derives counts and averages from current room states. It is
// read-only and recomputes on every call; nothing here blocks room mutation.
type StatsService struct {
	rooms    repository.RoomRepository
	registry *presence.Registry
}

func NewStatsService(rooms repository.RoomRepository, registry *presence.Registry) *StatsService {
	return &StatsService{rooms: rooms, registry: registry}
}

// Aggregate computes the current snapshot.
func (s *StatsService) Aggregate() (*Stats, error) {
	byStatus, err := s.rooms.CountByStatus()
	if err != nil {
		return nil, err
	}
	byCategory, err := s.rooms.CountByCategory()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		RoomsByStatus:   byStatus,
		RoomsByCategory: byCategory,
		WaitingRooms:    byStatus[models.RoomWaiting],
		ActiveRooms:     byStatus[models.RoomAssigned],
		ResolvedRooms:   byStatus[models.RoomResolved] + byStatus[models.RoomClosed],
	}

	// Wait and satisfaction averages come from a bounded sample of rooms
	// that made it past assignment.
	var (
		waitSum, waitN float64
		rateSum, rateN float64
	)
	for _, status := range []models.RoomStatus{models.RoomAssigned, models.RoomResolved, models.RoomClosed} {
		rooms, err := s.rooms.ListByStatus(status, statsSample, 0)
		if err != nil {
			return nil, err
		}
		for i := range rooms {
			r := &rooms[i]
			if r.AssignedAt != nil {
				waitSum += r.AssignedAt.Sub(r.CreatedAt).Seconds()
				waitN++
			}
			if r.SatisfactionRating != nil {
				rateSum += float64(*r.SatisfactionRating)
				rateN++
			}
		}
	}
	if waitN > 0 {
		stats.AvgWaitSeconds = waitSum / waitN
	}
	if rateN > 0 {
		stats.AvgSatisfaction = rateSum / rateN
	}

	var respSum, respN float64
	for _, a := range s.registry.Snapshot() {
		if a.AverageResponseTime > 0 {
			respSum += a.AverageResponseTime
			respN++
		}
		if a.IsOnline {
			stats.OnlineAgents = append(stats.OnlineAgents, AgentStatus{
				AgentID:     a.ID,
				UserID:      a.UserID,
				IsAvailable: a.IsAvailable,
				ActiveChats: a.ActiveChats,
				MaxChats:    a.MaxConcurrentChats,
				AvgRating:   a.AverageRating,
			})
		}
	}
	if respN > 0 {
		stats.AvgResponseSeconds = respSum / respN
	}
	return stats, nil
}
