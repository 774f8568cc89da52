package extract

import (
	"fmt"
	"strings"
	"time"

	"action-items/internal/model"
)

const outputShape = `{
  "actionItems": [
    {
      "title": "short task title",
      "description": "optional longer description",
      "category": "Work|Personal|Follow-up|Meeting|Review|Other",
      "priority": "high|medium|low",
      "dueDate": "YYYY-MM-DD or null",
      "sourceAuthor": "display name if known",
      "sourceContext": "channel or conversation name"
    }
  ]
}`

func systemPrompt(highPriorityAuthor string) string {
	var b strings.Builder
	b.WriteString("You are an assistant that extracts action items from conversation transcripts.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only output action items that are clearly tasks for the user (the person whose conversations these are). ")
	b.WriteString("Ignore general discussion, questions without a clear task, or tasks assigned to others.\n")
	b.WriteString("- Categorize each action item into one of: Work, Personal, Follow-up, Meeting, Review, Other. Use your judgment.\n")
	b.WriteString("- Assign priority: high, medium, or low. ")
	if highPriorityAuthor != "" {
		fmt.Fprintf(&b, "If the author of the message is %q, always set priority to high. Otherwise infer", highPriorityAuthor)
	} else {
		b.WriteString("Infer")
	}
	b.WriteString(` from words like "urgent", "ASAP", "when you can", "no rush", or context.` + "\n")
	b.WriteString(`- If a due date or deadline is mentioned (e.g. "by Friday", "EOD", "next week"), output it as an ISO date (YYYY-MM-DD). Otherwise output null.` + "\n")
	b.WriteString("- Output valid JSON only, no markdown or extra text.")
	return b.String()
}

func userPrompt(label, transcript string, today time.Time) string {
	return fmt.Sprintf(
		"Conversation: %s\nToday's date: %s (%s)\n\nTranscript:\n%s\n\nExtract all action items for the user. Reply with JSON in this exact shape: %s",
		label, today.Format(model.DateLayout), today.Weekday(), transcript, outputShape,
	)
}

// buildTranscript renders one "[author]: text" line per message, in order.
func buildTranscript(msgs []model.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		author := m.AuthorName
		if author == "" {
			author = m.User
		}
		if author == "" {
			author = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("[%s]: %s", author, m.Text))
	}
	return strings.Join(lines, "\n")
}
