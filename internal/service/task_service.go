package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"action-items/internal/model"
)

// ErrInvalidInput marks a rejected task update.
var ErrInvalidInput = errors.New("invalid input")

// TaskRepository is what TaskService needs from the store.
type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	FindByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, id string, updates map[string]any) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

// TaskService wraps task-related business logic for the presentation layers.
type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies a JSON merge-style patch. Keys absent from patch are left
// untouched; an explicit null clears description or due_date.
// A missing task yields repository.ErrNotFound.
func (s *TaskService) Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*model.Task, error) {
	updates, err := parsePatch(patch)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, updates)
}

// Delete removes a task; a missing id is fine.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func parsePatch(patch map[string]json.RawMessage) (map[string]any, error) {
	if raw, ok := patch["dueDate"]; ok {
		if _, dup := patch["due_date"]; !dup {
			patch["due_date"] = raw
		}
	}

	updates := map[string]any{}
	for _, key := range []string{"title", "description", "category", "priority", "due_date"} {
		raw, ok := patch[key]
		if !ok {
			continue
		}

		value, isNull, err := decodeNullableString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a string or null", ErrInvalidInput, key)
		}

		switch key {
		case "title":
			if isNull || strings.TrimSpace(value) == "" {
				return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
			}
			updates[key] = strings.TrimSpace(value)
		case "description":
			if isNull {
				updates[key] = nil
			} else {
				updates[key] = value
			}
		case "category":
			c, ok := model.ParseCategory(value)
			if isNull || !ok {
				return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, value)
			}
			updates[key] = c
		case "priority":
			p, ok := model.ParsePriority(value)
			if isNull || !ok {
				return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, value)
			}
			updates[key] = p
		case "due_date":
			if isNull || strings.TrimSpace(value) == "" {
				updates[key] = nil
				continue
			}
			d, ok := model.ParseDueDate(value)
			if !ok {
				return nil, fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidInput)
			}
			updates[key] = d
		}
	}
	return updates, nil
}

func decodeNullableString(raw json.RawMessage) (string, bool, error) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", true, nil
	}
	return *v, false, nil
}
