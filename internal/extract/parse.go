package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"action-items/internal/model"
)

// Candidate is an action item proposed by the model, already normalized.
type Candidate struct {
	Title         string
	Description   *string
	Category      model.Category
	Priority      model.Priority
	DueDate       *string
	SourceAuthor  *string
	SourceContext *string
}

type rawCandidate struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	Priority      *string `json:"priority"`
	DueDate       *string `json:"dueDate"`
	SourceAuthor  *string `json:"sourceAuthor"`
	SourceContext *string `json:"sourceContext"`
}

type rawResponse struct {
	ActionItems []rawCandidate `json:"actionItems"`
}

var (
	fenceOpen  = regexp.MustCompile("^```\\w*\\n?")
	fenceClose = regexp.MustCompile("\\n?```$")
)

// stripFence removes a surrounding ``` or ```json fence. Both the language
// tag and the newline after it are optional.
func stripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = fenceOpen.ReplaceAllString(cleaned, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// parseCandidates decodes the model reply and applies the field defaults.
func parseCandidates(text string) ([]Candidate, error) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(stripFence(text)), &resp); err != nil {
		return nil, fmt.Errorf("parse model JSON: %w", err)
	}

	out := make([]Candidate, 0, len(resp.ActionItems))
	for _, item := range resp.ActionItems {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		c := Candidate{
			Title:         title,
			Description:   item.Description,
			Category:      model.CategoryOther,
			Priority:      model.PriorityMedium,
			SourceAuthor:  item.SourceAuthor,
			SourceContext: item.SourceContext,
		}
		if item.Category != nil {
			if cat, ok := model.ParseCategory(*item.Category); ok {
				c.Category = cat
			}
		}
		if item.Priority != nil {
			if p, ok := model.ParsePriority(*item.Priority); ok {
				c.Priority = p
			}
		}
		if item.DueDate != nil {
			if d, ok := model.ParseDueDate(*item.DueDate); ok {
				c.DueDate = &d
			}
		}
		out = append(out, c)
	}
	return out, nil
}
