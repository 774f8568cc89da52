package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"action-items/internal/config"
	"action-items/internal/extract"
	"action-items/internal/model"
)

const (
	historyLimit  = 50
	historyWindow = 28 * 24 * time.Hour
)

// ErrMissingCredentials is returned before any I/O when a sync secret is unset.
var ErrMissingCredentials = errors.New("missing credentials")

// MessageSource is the messaging platform a pass reads from.
type MessageSource interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	History(ctx context.Context, conversationID string, limit int, oldest time.Time) ([]model.Message, error)
	ResolveDisplayNames(ctx context.Context, userIDs []string) map[string]string
}

// Extractor turns a conversation into action item candidates.
type Extractor interface {
	Extract(ctx context.Context, label string, msgs []model.Message) ([]extract.Candidate, error)
}

// TaskStore is the persistence a pass writes to.
type TaskStore interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, task *model.Task) error
}

// OutcomeStatus tells how a single conversation went.
type OutcomeStatus string

const (
	OutcomeSynced OutcomeStatus = "synced"
	OutcomeEmpty  OutcomeStatus = "empty"
	OutcomeFailed OutcomeStatus = "failed"
)

// ConversationOutcome is the result of one conversation within a pass.
type ConversationOutcome struct {
	ConversationID string
	Label          string
	Status         OutcomeStatus
	Added          int
	Err            error
}

// SyncResult summarizes a pass.
type SyncResult struct {
	TasksAdded int
	Outcomes   []ConversationOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed counts conversations that were skipped because of an error.
func (r *SyncResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			n++
		}
	}
	return n
}

// SyncDeps wires a SyncService.
type SyncDeps struct {
	Store              TaskStore
	Credentials        func() config.Credentials
	NewSource          func(slackToken string) MessageSource
	NewExtractor       func(anthropicKey string) Extractor
	HighPriorityAuthor string
	Now                func() time.Time
}

// SyncService runs sync passes: conversations in, action items out.
type SyncService struct {
	deps SyncDeps
}

func NewSyncService(deps SyncDeps) *SyncService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &SyncService{deps: deps}
}

// Run performs one sequential pass over every visible conversation.
// Setup failures abort the pass; a failing conversation is only skipped.
func (s *SyncService) Run(ctx context.Context) (*SyncResult, error) {
	creds := s.deps.Credentials()
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, " or "))
	}

	result := &SyncResult{StartedAt: s.deps.Now()}

	if err := s.deps.Store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	source := s.deps.NewSource(creds.SlackToken)
	extractor := s.deps.NewExtractor(creds.AnthropicKey)

	conversations, err := source.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	log.Printf("[info] sync started conversations=%d", len(conversations))

	var counterparts []string
	for _, c := range conversations {
		if c.User != "" {
			counterparts = append(counterparts, c.User)
		}
	}
	counterpartNames := source.ResolveDisplayNames(ctx, counterparts)

	oldest := time.Unix(result.StartedAt.Add(-historyWindow).Unix(), 0)
	for _, conv := range conversations {
		outcome := s.processConversation(ctx, source, extractor, conv, counterpartNames, oldest)
		if outcome.Status == OutcomeFailed {
			log.Printf("[warn] skip conversation %s: %v", conv.ID, outcome.Err)
		}
		result.TasksAdded += outcome.Added
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.FinishedAt = s.deps.Now()
	log.Printf("[info] sync finished added=%d failed=%d took=%s",
		result.TasksAdded, result.Failed(), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return result, nil
}

func (s *SyncService) processConversation(
	ctx context.Context,
	source MessageSource,
	extractor Extractor,
	conv model.Conversation,
	counterpartNames map[string]string,
	oldest time.Time,
) ConversationOutcome {
	label := conversationLabel(conv, counterpartNames)
	outcome := ConversationOutcome{ConversationID: conv.ID, Label: label}

	msgs, err := source.History(ctx, conv.ID, historyLimit, oldest)
	if err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, err
		return outcome
	}
	if len(msgs) == 0 {
		outcome.Status = OutcomeEmpty
		return outcome
	}

	authors := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.User != "" {
			authors = append(authors, m.User)
		}
	}
	authorNames := source.ResolveDisplayNames(ctx, authors)
	for i := range msgs {
		if name, ok := authorNames[msgs[i].User]; ok {
			msgs[i].AuthorName = name
		}
	}

	candidates, err := extractor.Extract(ctx, label, msgs)
	if err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, err
		return outcome
	}

	for _, c := range candidates {
		task := s.taskFromCandidate(c, label)
		if err := s.deps.Store.Create(ctx, task); err != nil {
			outcome.Status, outcome.Err = OutcomeFailed, err
			return outcome
		}
		outcome.Added++
	}
	outcome.Status = OutcomeSynced
	return outcome
}

func (s *SyncService) taskFromCandidate(c extract.Candidate, label string) *model.Task {
	priority := c.Priority
	if c.SourceAuthor != nil && isHighPriorityAuthor(*c.SourceAuthor, s.deps.HighPriorityAuthor) {
		priority = model.PriorityHigh
	}

	sourceContext := c.SourceContext
	if sourceContext == nil {
		sourceContext = &label
	}

	return &model.Task{
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Priority:      priority,
		DueDate:       c.DueDate,
		SourceAuthor:  c.SourceAuthor,
		SourceContext: sourceContext,
	}
}

// isHighPriorityAuthor is a case-insensitive substring match; an empty
// configured name disables the override.
func isHighPriorityAuthor(author, configured string) bool {
	if strings.TrimSpace(configured) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(author), strings.ToLower(strings.TrimSpace(configured)))
}

func conversationLabel(conv model.Conversation, names map[string]string) string {
	if conv.IsIM && conv.User != "" {
		name := names[conv.User]
		if name == "" {
			name = conv.User
		}
		return "DM with " + name
	}
	if conv.Name != "" {
		return conv.Name
	}
	return conv.ID
}
