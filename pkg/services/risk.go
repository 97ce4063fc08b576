package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Risk flag names.
const (
	FlagCryptoActivity    = "crypto_activity"
	FlagForeignContacts   = "foreign_contacts"
	FlagHighDeletion      = "high_deletion"
	FlagSuspiciousContent = "suspicious_content"
	FlagUnusualHours      = "unusual_hours"
)

// Risk thresholds. A flag fires when its measure is strictly greater.
const (
	cryptoMessageThreshold     = 5
	foreignNumberThreshold     = 3
	deletionRatioThreshold     = 0.15
	suspiciousMessageThreshold = 10
	unusualHourThreshold       = 50
	maxRiskScore               = 100
)

var (
	cryptoTermPattern     = regexp.MustCompile(`(?i)\b(?:bitcoin|btc|ethereum|eth|crypto\w*|wallets?|usdt|binance|blockchain)\b`)
	suspiciousTermPattern = regexp.MustCompile(`(?i)\b(?:transfer|payment|deal|package|delivery|cash|money|account|offshore|anonymous)`)
)

// AnalyzeRisk scores chats and calls with additive heuristics. Hours are read in loc.
func AnalyzeRisk(chats []*models.Message, calls []*models.Call, phones *extraction.PhoneClassifier, loc *time.Location) models.RiskReport {
	if loc == nil {
		loc = time.Local
	}

	stats := models.RiskStats{
		TotalMessages: len(chats),
		TotalCalls:    len(calls),
	}

	foreign := make(map[string]bool)
	noteForeign := func(number string) {
		if number != "" && phones.IsForeign(number) {
			foreign[extraction.Normalize(number)] = true
		}
	}

	for _, m := range chats {
		if cryptoTermPattern.MatchString(m.Body) || extraction.CryptoPattern.MatchString(m.Body) {
			stats.CryptoMessages++
		}
		if suspiciousTermPattern.MatchString(m.Body) {
			stats.SuspiciousMessages++
		}
		if m.Deleted {
			stats.DeletedMessages++
		}
		if h := m.SentAt.In(loc).Hour(); h >= 23 || h < 6 {
			stats.UnusualHourCount++
		}
		noteForeign(m.ParticipantNumber)
	}
	for _, c := range calls {
		noteForeign(c.PhoneNumber)
	}
	stats.ForeignNumbers = len(foreign)
	if stats.TotalMessages > 0 {
		stats.DeletionRatio = float64(stats.DeletedMessages) / float64(stats.TotalMessages)
	}

	flags := []models.RiskFlag{}
	score := 0
	raise := func(flag, severity string, points int, value float64, description string) {
		flags = append(flags, models.RiskFlag{
			Flag:        flag,
			Severity:    severity,
			Points:      points,
			Value:       value,
			Description: description,
		})
		score += points
	}

	if stats.CryptoMessages > cryptoMessageThreshold {
		raise(FlagCryptoActivity, models.SeverityHigh, 30, float64(stats.CryptoMessages),
			fmt.Sprintf("%d messages reference cryptocurrency", stats.CryptoMessages))
	}
	if stats.ForeignNumbers > foreignNumberThreshold {
		raise(FlagForeignContacts, models.SeverityMedium, 20, float64(stats.ForeignNumbers),
			fmt.Sprintf("%d distinct foreign numbers contacted", stats.ForeignNumbers))
	}
	if stats.DeletionRatio > deletionRatioThreshold {
		raise(FlagHighDeletion, models.SeverityMedium, 15, stats.DeletionRatio,
			fmt.Sprintf("%.0f%% of messages were deleted", stats.DeletionRatio*100))
	}
	if stats.SuspiciousMessages > suspiciousMessageThreshold {
		raise(FlagSuspiciousContent, models.SeverityMedium, 15, float64(stats.SuspiciousMessages),
			fmt.Sprintf("%d messages contain suspicious terms", stats.SuspiciousMessages))
	}
	if stats.UnusualHourCount > unusualHourThreshold {
		raise(FlagUnusualHours, models.SeverityLow, 10, float64(stats.UnusualHourCount),
			fmt.Sprintf("%d messages sent between 23:00 and 06:00", stats.UnusualHourCount))
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}

	return models.RiskReport{
		RiskScore: score,
		RiskLevel: RiskLevel(score),
		Flags:     flags,
		Stats:     stats,
	}
}

// RiskLevel maps a score to high (>50), medium (>25) or low.
func RiskLevel(score int) string {
	switch {
	case score > 50:
		return models.RiskHigh
	case score > 25:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
