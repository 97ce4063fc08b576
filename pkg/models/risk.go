package models

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Risk flag severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RiskFlag is one triggered heuristic.
type RiskFlag struct {
	Flag        string  `json:"flag"`
	Severity    string  `json:"severity"`
	Points      int     `json:"points"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// RiskStats are the aggregates the heuristics are computed from.
type RiskStats struct {
	TotalMessages      int     `json:"totalMessages"`
	TotalCalls         int     `json:"totalCalls"`
	CryptoMessages     int     `json:"cryptoMessages"`
	ForeignNumbers     int     `json:"foreignNumbers"`
	DeletedMessages    int     `json:"deletedMessages"`
	DeletionRatio      float64 `json:"deletionRatio"`
	SuspiciousMessages int     `json:"suspiciousMessages"`
	UnusualHourCount   int     `json:"unusualHourMessages"`
}

// RiskReport is the additive behaviour score for a set of chats and calls.
type RiskReport struct {
	RiskScore int        `json:"riskScore"`
	RiskLevel string     `json:"riskLevel"`
	Flags     []RiskFlag `json:"flags"`
	Stats     RiskStats  `json:"stats"`
}

// CaseOverview counts records in a case.
type CaseOverview struct {
	Devices         int            `json:"devices"`
	Messages        int            `json:"messages"`
	DeletedMessages int            `json:"deletedMessages"`
	Calls           int            `json:"calls"`
	Contacts        int            `json:"contacts"`
	Media           int            `json:"media"`
	Platforms       map[string]int `json:"platforms"`
	CallTypes       map[string]int `json:"callTypes"`
}

// CaseAnalytics is the analytics view of a case.
type CaseAnalytics struct {
	Overview CaseOverview `json:"overview"`
	Risk     RiskReport   `json:"risk"`
}
