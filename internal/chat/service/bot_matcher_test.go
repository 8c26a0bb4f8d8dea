package service

import (
	"io"
	"testing"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/cache"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) (*BotMatcher, *fakeBotRepo) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	repo := newFakeBotRepo()
	return NewBotMatcher(repo, cache.New(time.Minute, 0), log), repo
}

func seedRule(t *testing.T, repo *fakeBotRepo, keywords, answer string, priority int) uint {
	t.Helper()
	rule := &models.ChatbotResponse{
		Keywords: keywords,
		Answer:   answer,
		Priority: priority,
		IsActive: true,
	}
	require.NoError(t, repo.Create(rule))
	return rule.ID
}

func TestMatchKeywordsInsidePunctuatedText(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	seedRule(t, repo, "kargo,nerede", "Kargonuz yolda.", 2)

	// "kargom" contains "kargo", so suffixed forms still hit.
	result, err := matcher.Match("Kargom NEREDE?!")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "Kargonuz yolda.", result.Answer)
	assert.Equal(t, 4, result.Score, "two keyword hits at priority 2")
	assert.False(t, result.ShouldEscalate)
}

func TestMatchPicksHighestScore(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	seedRule(t, repo, "iade", "İade süreci 14 gündür.", 1)
	seedRule(t, repo, "iade,ücret", "Ücret iadesi 3 iş günü sürer.", 3)

	result, err := matcher.Match("iade ücret ne zaman yatar")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "Ücret iadesi 3 iş günü sürer.", result.Answer)
	assert.Equal(t, 6, result.Score)
}

func TestMatchTieBreaksAreDeterministic(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	// Same score (1 hit x priority 2); the lower id must win every time.
	first := seedRule(t, repo, "kupon", "Kupon kodunuzu sepette girin.", 2)
	seedRule(t, repo, "kupon", "Kuponlar kampanya sayfasında.", 2)

	for i := 0; i < 10; i++ {
		result, err := matcher.Match("kupon nasıl kullanılır")
		require.NoError(t, err)
		require.True(t, result.Matched)
		assert.Equal(t, first, result.RuleID)
	}
}

func TestMatchPriorityBeatsEqualScoreFromMoreHits(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	// 2 hits x priority 1 == 1 hit x priority 2; higher priority wins the tie.
	seedRule(t, repo, "sipariş,durum", "Sipariş durumunuz hesabınızda.", 1)
	winner := seedRule(t, repo, "sipariş", "Siparişinizi kontrol ediyorum.", 2)

	result, err := matcher.Match("sipariş durum")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, winner, result.RuleID)
}

func TestMatchEscalatesWithoutRules(t *testing.T) {
	matcher, _ := newTestMatcher(t)

	result, err := matcher.Match("insanla konuşmak istiyorum")
	require.NoError(t, err)

	assert.False(t, result.Matched)
	assert.True(t, result.ShouldEscalate)
}

func TestMatchEscalatesOnEmptyText(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	seedRule(t, repo, "kargo", "Kargonuz yolda.", 1)

	for _, text := range []string{"", "   ", "?!..."} {
		result, err := matcher.Match(text)
		require.NoError(t, err)
		assert.True(t, result.ShouldEscalate, "input %q", text)
	}
}

func TestMatchBumpsHitCount(t *testing.T) {
	matcher, repo := newTestMatcher(t)
	id := seedRule(t, repo, "kargo", "Kargonuz yolda.", 1)

	_, err := matcher.Match("kargo")
	require.NoError(t, err)

	rule, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.HitCount)
}

func TestRuleChangesInvalidateCache(t *testing.T) {
	matcher, _ := newTestMatcher(t)

	// Warm the cache with an empty catalog.
	miss, err := matcher.Match("fatura")
	require.NoError(t, err)
	assert.False(t, miss.Matched)

	require.NoError(t, matcher.CreateRule(&models.ChatbotResponse{
		Keywords: "FATURA",
		Answer:   "Faturanız e-posta adresinize gönderildi.",
		Priority: 1,
		IsActive: true,
	}))

	hit, err := matcher.Match("fatura")
	require.NoError(t, err)
	assert.True(t, hit.Matched, "new rule must be visible immediately")
}

func TestCreateRuleLowercasesKeywords(t *testing.T) {
	matcher, repo := newTestMatcher(t)

	rule := &models.ChatbotResponse{Keywords: "IADE,KARGO", Answer: "x", Priority: 1, IsActive: true}
	require.NoError(t, matcher.CreateRule(rule))

	stored, err := repo.GetByID(rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "iade,kargo", stored.Keywords)
}
