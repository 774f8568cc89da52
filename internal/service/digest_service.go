package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"action-items/internal/model"
)

const (
	digestSoonWindow     = 48 * time.Hour
	digestMaxTitle       = 200
	digestMaxDescription = 500
)

// TaskLister is the read side of the store used for digests.
type TaskLister interface {
	List(ctx context.Context) ([]model.Task, error)
}

// DigestService builds human-readable summaries of the open action items.
type DigestService struct {
	tasks TaskLister
}

func NewDigestService(tasks TaskLister) *DigestService {
	return &DigestService{tasks: tasks}
}

// Pages renders the task list, in store order, as Telegram HTML split at
// task boundaries so that no page is longer than limit UTF-16 code units,
// the unit Telegram counts in.
func (s *DigestService) Pages(ctx context.Context, now time.Time, limit int) ([]string, error) {
	blocks, err := s.blocks(ctx, now)
	if err != nil {
		return nil, err
	}

	var pages []string
	var page strings.Builder
	size := 0
	for _, block := range blocks {
		n := textLen(block)
		if size > 0 && size+n > limit {
			pages = append(pages, strings.TrimSpace(page.String()))
			page.Reset()
			size = 0
		}
		page.WriteString(block)
		size += n
	}
	if size > 0 {
		pages = append(pages, strings.TrimSpace(page.String()))
	}
	return pages, nil
}

// blocks returns the header followed by one block per task.
func (s *DigestService) blocks(ctx context.Context, now time.Time) ([]string, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	var header strings.Builder
	header.WriteString("📋 <b>Action items</b>\n")
	header.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	if len(tasks) == 0 {
		header.WriteString("— nothing open. Run /sync to scan Slack.\n")
		return []string{header.String()}, nil
	}

	counts := map[model.Priority]int{}
	for _, task := range tasks {
		counts[task.Priority]++
	}
	header.WriteString(fmt.Sprintf("🔴 %d high · 🟠 %d medium · 🟢 %d low\n\n",
		counts[model.PriorityHigh], counts[model.PriorityMedium], counts[model.PriorityLow]))

	blocks := make([]string, 0, len(tasks)+1)
	blocks = append(blocks, header.String())
	for _, task := range tasks {
		blocks = append(blocks, formatTask(task, now))
	}
	return blocks, nil
}

func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// clip bounds free text taken from the model so one task always fits a page.
func clip(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes-1]) + "…"
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟠"
	}
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	title := html.EscapeString(clip(task.Title, digestMaxTitle))
	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", priorityIcon(task.Priority), title, html.EscapeString(string(task.Category))))

	if task.DueDate != nil {
		if due, err := time.ParseInLocation(model.DateLayout, *task.DueDate, now.Location()); err == nil {
			// A due date covers the whole day.
			end := due.AddDate(0, 0, 1)
			switch {
			case now.After(end):
				sb.WriteString(fmt.Sprintf("\n   ⚠️ due %s, <b>overdue</b>", *task.DueDate))
			case end.Sub(now) <= digestSoonWindow:
				sb.WriteString(fmt.Sprintf("\n   ⏳ due %s, soon", *task.DueDate))
			default:
				sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", *task.DueDate))
			}
		}
	}

	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(clip(*task.Description, digestMaxDescription))))
	}

	if from := sourceLine(task); from != "" {
		sb.WriteString("\n   💬 " + html.EscapeString(clip(from, digestMaxTitle)))
	}

	sb.WriteString(fmt.Sprintf("\n   <code>%s</code>\n", task.ID))
	return sb.String()
}

func sourceLine(task model.Task) string {
	if task.SourceAuthor == nil && task.SourceContext == nil {
		return ""
	}
	author := "?"
	if task.SourceAuthor != nil && *task.SourceAuthor != "" {
		author = *task.SourceAuthor
	}
	line := "From " + author
	if task.SourceContext != nil && *task.SourceContext != "" {
		line += " · " + *task.SourceContext
	}
	return line
}
