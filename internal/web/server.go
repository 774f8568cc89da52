// Package web serves the task list page and the JSON task/sync endpoints.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"

	"github.com/gin-gonic/gin"

	"action-items/internal/model"
	"action-items/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Tasks is the task API the handlers need.
type Tasks interface {
	List(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

// Syncer runs one sync pass.
type Syncer interface {
	Run(ctx context.Context) (*service.SyncResult, error)
}

// Server is the action items web server.
type Server struct {
	tasks  Tasks
	syncer Syncer
	router *gin.Engine
}

// NewServer creates the router and registers every route.
func NewServer(tasks Tasks, syncer Syncer) *Server {
	router := gin.Default()

	s := &Server{
		tasks:  tasks,
		syncer: syncer,
		router: router,
	}

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/", s.handleIndex)

	router.GET("/tasks", s.handleListTasks)
	router.PATCH("/tasks/:id", s.handleUpdateTask)
	router.DELETE("/tasks/:id", s.handleDeleteTask)
	router.POST("/sync", s.handleSync)

	return s
}

// Handler exposes the router, e.g. for http.Server or tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
