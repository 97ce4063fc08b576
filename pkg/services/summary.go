package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// NarrativeGenerator turns a prompt into narrative text.
type NarrativeGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	// FallbackSummary is returned when the narrative generator is missing or fails.
	FallbackSummary = "AI summary is currently unavailable. Please review the raw search results below for detailed findings."
	// NoResultsSummary is returned when every facet came back empty.
	NoResultsSummary = "No matching records were found for this query in the selected scope."
)

// Context bounds.
const (
	contextChatLimit    = 20
	contextCallLimit    = 10
	contextContactLimit = 10
	contextEntityLimit  = 5
	contextBodyLimit    = 200
)

// SummarySystemPrompt instructs the generator to produce the four-section report.
const SummarySystemPrompt = `You are a senior digital forensic analyst assisting a law-enforcement investigation.
You are given the investigator's question and records retrieved from seized mobile devices.
Write a concise, factual report using only the records provided. Do not invent names, numbers or events.

Structure the report with exactly these four sections, each as a level-two markdown heading:

## Key Findings
The most relevant facts that answer the question, citing participants, numbers and timestamps.

## Anomalies & Red Flags
Suspicious patterns such as cryptocurrency references, foreign numbers, deleted messages or activity at unusual hours.

## Connections
Relationships between people, numbers, devices and events, including calls followed by chats.

## Recommended Next Steps
Concrete follow-up actions for the investigator.

Use short bullet points starting with "- ". If a section has nothing to report, say so in one line.`

// BuildContext renders results into the bounded prompt sent to the generator.
func BuildContext(query string, results *models.FacetResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investigator query: %q\n", query)

	if len(results.Chats) > 0 {
		fmt.Fprintf(&b, "\nCHAT MESSAGES (showing %d of %d):\n", min(len(results.Chats), contextChatLimit), len(results.Chats))
		for i, c := range results.Chats {
			if i >= contextChatLimit {
				break
			}
			deleted := ""
			if c.Deleted {
				deleted = " [deleted]"
			}
			fmt.Fprintf(&b, "%d. [%s] %s %s (%s) at %s%s: %q\n",
				i+1, c.Platform, c.Direction, displayName(c.ParticipantName), c.ParticipantNumber,
				formatTime(c.SentAt), deleted, truncate(c.Body, contextBodyLimit))
		}
	}

	if len(results.Calls) > 0 {
		fmt.Fprintf(&b, "\nCALL RECORDS (showing %d of %d):\n", min(len(results.Calls), contextCallLimit), len(results.Calls))
		for i, c := range results.Calls {
			if i >= contextCallLimit {
				break
			}
			foreign := ""
			if c.IsForeign {
				foreign = " [foreign]"
			}
			fmt.Fprintf(&b, "%d. %s call with %s (%s)%s at %s, duration %s\n",
				i+1, c.CallType, displayName(c.ContactName), c.PhoneNumber, foreign,
				formatTime(c.CalledAt), time.Duration(c.DurationSeconds)*time.Second)
		}
	}

	if len(results.Contacts) > 0 {
		fmt.Fprintf(&b, "\nCONTACTS (showing %d of %d):\n", min(len(results.Contacts), contextContactLimit), len(results.Contacts))
		for i, c := range results.Contacts {
			if i >= contextContactLimit {
				break
			}
			fmt.Fprintf(&b, "%d. %s: phones %s; emails %s\n",
				i+1, displayName(c.Name), joinOrNone(c.PhoneNumbers), joinOrNone(c.Emails))
		}
	}

	if len(results.Media) > 0 {
		fmt.Fprintf(&b, "\nMEDIA FILES: %d matching files\n", len(results.Media))
	}

	if results.Entities.Total() > 0 {
		b.WriteString("\nEXTRACTED ENTITIES:\n")
		for _, t := range models.EntityTypes {
			list := *results.Entities.List(t)
			if len(list) == 0 {
				continue
			}
			values := make([]string, 0, contextEntityLimit)
			for i, m := range list {
				if i >= contextEntityLimit {
					break
				}
				values = append(values, m.Value)
			}
			fmt.Fprintf(&b, "- %s (%d): %s\n", t, len(list), strings.Join(values, ", "))
		}
	}

	if results.Connections.Total() > 0 {
		conn := results.Connections
		b.WriteString("\nCONNECTIONS:\n")
		for i, fn := range conn.TopContacts {
			if i >= contextEntityLimit {
				break
			}
			fmt.Fprintf(&b, "- frequent: %s (%s) %d calls, %s total\n",
				fn.PhoneNumber, displayName(fn.ContactName), fn.CallCount, time.Duration(fn.TotalDuration)*time.Second)
		}
		for i, sc := range conn.SharedContacts {
			if i >= contextEntityLimit {
				break
			}
			fmt.Fprintf(&b, "- shared: %s saved on %d devices as %s\n", sc.PhoneNumber, sc.DeviceCount, joinOrNone(sc.Names))
		}
		for i, c := range conn.Correlations {
			if i >= contextEntityLimit {
				break
			}
			fmt.Fprintf(&b, "- correlated: call with %s at %s and chat %.1f minutes apart\n",
				c.Call.PhoneNumber, formatTime(c.Call.CalledAt), c.TimeGap)
		}
	}

	return b.String()
}

var (
	headerPattern = regexp.MustCompile(`^\s*(#{1,6})\s*(\S.*)$`)
	bulletPattern = regexp.MustCompile(`^(\s*)(?:[•–]\s*|[*+-]\s+)(\S.*)$`)
	blankRuns     = regexp.MustCompile(`\n{4,}`)
)

// NormalizeFormatting tidies generated markdown: bullets become "- ", headings get
// a space after the hashes and a blank line around them, and three or more
// consecutive blank lines collapse to two.
func NormalizeFormatting(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	out := make([]string, 0, len(lines))
	afterHeading := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			out = append(out, m[1]+" "+strings.TrimSpace(m[2]), "")
			afterHeading = true
			continue
		}
		if afterHeading && line == "" {
			continue
		}
		afterHeading = false
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			line = m[1] + "- " + m[2]
		}
		out = append(out, line)
	}

	text = strings.Join(out, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n\n")
	return strings.TrimSpace(text)
}

// SummaryComposer writes the narrative summary of a query's results.
type SummaryComposer struct {
	generator NarrativeGenerator
	logger    *zap.Logger
}

// NewSummaryComposer creates a composer. A nil generator always yields FallbackSummary.
func NewSummaryComposer(generator NarrativeGenerator, logger *zap.Logger) *SummaryComposer {
	return &SummaryComposer{
		generator: generator,
		logger:    logger.Named("summary-composer"),
	}
}

// Compose returns a summary for results. It never fails: generator errors and
// blank output yield FallbackSummary.
func (c *SummaryComposer) Compose(ctx context.Context, query string, results *models.FacetResults) string {
	if results == nil || results.IsEmpty() {
		return NoResultsSummary
	}
	if c.generator == nil {
		return FallbackSummary
	}

	text, err := c.generator.Generate(ctx, SummarySystemPrompt, BuildContext(query, results))
	if err != nil {
		c.logger.Warn("Narrative generation failed, using fallback summary", zap.Error(err))
		metrics.Degraded(metrics.DependencyNarrative)
		return FallbackSummary
	}

	summary := NormalizeFormatting(text)
	if summary == "" {
		metrics.Degraded(metrics.DependencyNarrative)
		return FallbackSummary
	}
	return summary
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unknown"
	}
	return name
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
