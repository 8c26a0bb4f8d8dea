package service

import (
	"errors"
	"strings"
	"unicode"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/cache"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"gorm.io/gorm"
)

const activeRulesCacheKey = "chatbot:active_rules"

// minKeywordHits is the threshold a rule must clear to win a match.
const minKeywordHits = 1

// MatchResult is the matcher's verdict on one inbound message. The matcher
// never touches room state; the caller decides whether to post the answer
// and/or escalate to a human.
type MatchResult struct {
	Matched        bool     `json:"matched"`
	RuleID         uint     `json:"rule_id,omitempty"`
	Answer         string   `json:"answer,omitempty"`
	QuickReplies   []string `json:"quick_replies,omitempty"`
	ActionType     string   `json:"action_type,omitempty"`
	ActionData     string   `json:"action_data,omitempty"`
	Score          int      `json:"score"`
	ShouldEscalate bool     `json:"should_escalate"`
}

// BotMatcher scores inbound text against the active chatbot rule catalog.
// Matching is a pure function of the rule set and the input, so repeated
// calls with the same state give the same answer.
type BotMatcher struct {
	rules repository.BotResponseRepository
	cache *cache.Cache
	log   *logger.Logger
}

func NewBotMatcher(rules repository.BotResponseRepository, c *cache.Cache, log *logger.Logger) *BotMatcher {
	return &BotMatcher{rules: rules, cache: c, log: log}
}

// Match normalizes the text, scores every active rule and returns the best
// match above the threshold, or an escalation recommendation.
func (m *BotMatcher) Match(text string) (*MatchResult, error) {
	rules, err := m.activeRules()
	if err != nil {
		return nil, err
	}

	normalized := normalizeText(text)
	if normalized == "" {
		return &MatchResult{ShouldEscalate: true}, nil
	}

	var best *models.ChatbotResponse
	bestScore := 0
	for i := range rules {
		rule := &rules[i]
		hits := 0
		for _, kw := range rule.KeywordList() {
			if strings.Contains(normalized, kw) {
				hits++
			}
		}
		if hits < minKeywordHits {
			continue
		}
		score := hits * rule.Priority

		// Ties go to the higher-priority rule, then to the lower id, so the
		// outcome is reproducible for identical inputs.
		if best == nil || score > bestScore ||
			(score == bestScore && rule.Priority > best.Priority) ||
			(score == bestScore && rule.Priority == best.Priority && rule.ID < best.ID) {
			best = rule
			bestScore = score
		}
	}

	if best == nil {
		return &MatchResult{ShouldEscalate: true}, nil
	}

	// Popularity hint only; a lost increment under concurrency is acceptable.
	if err := m.rules.IncrementHitCount(best.ID); err != nil {
		m.log.Debug("hit count bump failed", "rule_id", best.ID, "error", err.Error())
	}

	return &MatchResult{
		Matched:      true,
		RuleID:       best.ID,
		Answer:       best.Answer,
		QuickReplies: best.QuickReplyList(),
		ActionType:   best.ActionType,
		ActionData:   best.ActionData,
		Score:        bestScore,
	}, nil
}

// activeRules reads the rule catalog through the TTL cache.
func (m *BotMatcher) activeRules() ([]models.ChatbotResponse, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(activeRulesCacheKey); ok {
			if rules, ok := v.([]models.ChatbotResponse); ok {
				return rules, nil
			}
		}
	}

	rules, err := m.rules.ListActive()
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.Set(activeRulesCacheKey, rules)
	}
	return rules, nil
}

// InvalidateRules drops the cached rule set after the catalog changes.
func (m *BotMatcher) InvalidateRules() {
	if m.cache != nil {
		m.cache.Delete(activeRulesCacheKey)
	}
}

// CreateRule adds a rule to the catalog and invalidates the cached set.
func (m *BotMatcher) CreateRule(rule *models.ChatbotResponse) error {
	rule.Keywords = strings.ToLower(rule.Keywords)
	if err := m.rules.Create(rule); err != nil {
		return err
	}
	m.InvalidateRules()
	return nil
}

// UpdateRule saves a rule and invalidates the cached set.
func (m *BotMatcher) UpdateRule(rule *models.ChatbotResponse) error {
	if _, err := m.rules.GetByID(rule.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	rule.Keywords = strings.ToLower(rule.Keywords)
	if err := m.rules.Update(rule); err != nil {
		return err
	}
	m.InvalidateRules()
	return nil
}

// DeleteRule removes a rule and invalidates the cached set.
func (m *BotMatcher) DeleteRule(id uint) error {
	if _, err := m.rules.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	if err := m.rules.Delete(id); err != nil {
		return err
	}
	m.InvalidateRules()
	return nil
}

// normalizeText lowercases the input and strips punctuation, keeping letters,
// digits and spaces so Turkish and other non-ASCII text survives intact.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
