package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-items/internal/model"
)

type staticLister struct {
	tasks []model.Task
	err   error
}

func (s staticLister) List(context.Context) ([]model.Task, error) { return s.tasks, s.err }

// onePage renders the whole digest with no practical size limit.
func onePage(t *testing.T, svc *DigestService, now time.Time) string {
	t.Helper()
	pages, err := svc.Pages(context.Background(), now, 1<<20)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	return pages[0]
}

func TestDigest_Empty(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	text := onePage(t, NewDigestService(staticLister{}), now)
	assert.Contains(t, text, "Mon, 19 Oct 2026")
	assert.Contains(t, text, "nothing open")
}

func TestDigest_Tasks(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "a", Title: "Send <report>", Category: model.CategoryWork, Priority: model.PriorityHigh, DueDate: strPtr("2026-10-20"), SourceAuthor: strPtr("Dhara Tanwani"), SourceContext: strPtr("DM with Dhara Tanwani")},
		{ID: "b", Title: "File expenses", Category: model.CategoryPersonal, Priority: model.PriorityMedium, DueDate: strPtr("2026-10-10")},
		{ID: "c", Title: "Read RFC", Category: model.CategoryReview, Priority: model.PriorityLow, DueDate: strPtr("2026-11-30"), Description: strPtr("the caching one"), SourceContext: strPtr("#eng")},
	}

	text := onePage(t, NewDigestService(staticLister{tasks: tasks}), now)

	assert.Contains(t, text, "🔴 1 high · 🟠 1 medium · 🟢 1 low")
	assert.Contains(t, text, "🔴 Send &lt;report&gt; <i>(Work)</i>\n   ⏳ due 2026-10-20, soon")
	assert.Contains(t, text, "💬 From Dhara Tanwani · DM with Dhara Tanwani")
	assert.Contains(t, text, "⚠️ due 2026-10-10, <b>overdue</b>")
	assert.Contains(t, text, "⏰ due 2026-11-30")
	assert.Contains(t, text, "📝 the caching one")
	assert.Contains(t, text, "💬 From ? · #eng")
	assert.Contains(t, text, "<code>a</code>")
}

func TestDigest_StoreError(t *testing.T) {
	_, err := NewDigestService(staticLister{err: errors.New("locked")}).Pages(context.Background(), time.Now(), 4096)
	assert.EqualError(t, err, "locked")
}

func TestDigest_PagesStayWithinLimit(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	var tasks []model.Task
	for i := 0; i < 45; i++ {
		tasks = append(tasks, model.Task{
			ID:            fmt.Sprintf("2f6c1a0e-0000-4000-8000-%012d", i),
			Title:         fmt.Sprintf("Follow up with the vendor about invoice #%d", i),
			Description:   strPtr(strings.Repeat("Check the numbers against the Q3 forecast. ", 4)),
			Category:      model.CategoryFollowUp,
			Priority:      model.PriorityMedium,
			DueDate:       strPtr("2026-10-23"),
			SourceAuthor:  strPtr("Sam Lee"),
			SourceContext: strPtr("#finance"),
		})
	}
	svc := NewDigestService(staticLister{tasks: tasks})

	require.Greater(t, textLen(onePage(t, svc, now)), 4096)

	pages, err := svc.Pages(context.Background(), now, 4096)
	require.NoError(t, err)
	require.Greater(t, len(pages), 1)

	for i, page := range pages {
		assert.LessOrEqual(t, textLen(page), 4096, "page %d", i)
		assert.Equal(t, i == 0, strings.Contains(page, "<b>Action items</b>"), "page %d", i)
	}
	joined := strings.Join(pages, "\n")
	for _, task := range tasks {
		assert.Equal(t, 1, strings.Count(joined, "<code>"+task.ID+"</code>"))
	}
}

func TestDigest_PagesClipLongModelText(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: "a", Title: strings.Repeat("x", 5000), Description: strPtr(strings.Repeat("y", 5000))}}

	pages, err := NewDigestService(staticLister{tasks: tasks}).Pages(context.Background(), now, 4096)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.LessOrEqual(t, textLen(pages[0]), 4096)
	assert.Contains(t, pages[0], strings.Repeat("x", digestMaxTitle-1)+"…")
}

func TestDigest_EmptyIsOnePage(t *testing.T) {
	pages, err := NewDigestService(staticLister{}).Pages(context.Background(), time.Now(), 4096)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "nothing open")
}
