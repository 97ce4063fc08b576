package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Keyword-only hits are scored KeywordBaseScore plus KeywordWordBonus per matched word.
const (
	KeywordBaseScore = 0.4
	KeywordWordBonus = 0.1
)

// ScoredChat is a semantic hit.
type ScoredChat struct {
	Message *models.Message
	Score   float64
}

// KeywordHit is a message found by the keyword path. MatchedWords may be empty
// when the message qualified through a crypto, foreign-number or suspicious-term match.
type KeywordHit struct {
	Message      *models.Message
	MatchedWords []string
}

// KeywordScore is the baseline score for a keyword-only hit.
func KeywordScore(matchedWords int) float64 {
	return KeywordBaseScore + KeywordWordBonus*float64(matchedWords)
}

// MergeRanked unions semantic and keyword hits by message id. A message found by
// both paths keeps its semantic score and gains the matched words. The result is
// sorted by score descending (stable, so ties keep semantic-then-keyword order)
// and capped at limit.
func MergeRanked(semantic []ScoredChat, keyword []KeywordHit, limit int) []models.ChatResult {
	merged := make([]models.ChatResult, 0, len(semantic)+len(keyword))
	index := make(map[uuid.UUID]int, len(semantic)+len(keyword))

	for _, hit := range semantic {
		if hit.Message == nil {
			continue
		}
		if _, dup := index[hit.Message.ID]; dup {
			continue
		}
		score := hit.Score
		index[hit.Message.ID] = len(merged)
		merged = append(merged, models.ChatResult{
			Message:   *hit.Message,
			Score:     &score,
			MatchType: models.MatchSemantic,
		})
	}

	for _, hit := range keyword {
		if hit.Message == nil {
			continue
		}
		if i, ok := index[hit.Message.ID]; ok {
			if len(merged[i].MatchedWords) == 0 {
				merged[i].MatchedWords = hit.MatchedWords
			}
			continue
		}
		score := KeywordScore(len(hit.MatchedWords))
		index[hit.Message.ID] = len(merged)
		merged = append(merged, models.ChatResult{
			Message:      *hit.Message,
			Score:        &score,
			MatchType:    models.MatchKeyword,
			MatchedWords: hit.MatchedWords,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return *merged[i].Score > *merged[j].Score
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
