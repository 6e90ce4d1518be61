package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Task is a minimal project-management work item managed through the builtin
// task tools.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Notes       []string  `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskService is the collaborator behind the builtin task tools. Production
// deployments back it with their task store; tests and examples use
// InMemoryTaskService.
type TaskService interface {
	CreateTask(ctx context.Context, title, description string) (*Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	AddNote(ctx context.Context, taskID, note string) error
}

// Fetcher retrieves external content for the search_web tool.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (string, error)
}

// Sandbox executes untrusted code for the run_code tool.
type Sandbox interface {
	Run(ctx context.Context, language, code string) (string, error)
}

// NewCreateTaskTool exposes TaskService.CreateTask as a tool.
func NewCreateTaskTool(svc TaskService) *FunctionTool {
	return NewFunctionTool(
		"create_task",
		"Create a new task with a title and optional description",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       map[string]any{"type": "string", "description": "Short task title"},
				"description": map[string]any{"type": "string", "description": "Longer task description"},
			},
			"required": []string{"title"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			title, _ := args["title"].(string)
			description, _ := args["description"].(string)
			return svc.CreateTask(ctx, title, description)
		},
		func(o *FunctionToolOptions) {
			o.Tags = []string{"tasks"}
			o.RequiredCapability = core.CapabilityModifyData
		},
	)
}

// NewListTasksTool exposes TaskService.ListTasks as a tool.
func NewListTasksTool(svc TaskService) *FunctionTool {
	return NewFunctionTool(
		"list_tasks",
		"List all known tasks",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return svc.ListTasks(ctx)
		},
		func(o *FunctionToolOptions) {
			o.Tags = []string{"tasks"}
		},
	)
}

// NewAddNoteTool exposes TaskService.AddNote as a tool.
func NewAddNoteTool(svc TaskService) *FunctionTool {
	return NewFunctionTool(
		"add_note",
		"Attach a note to an existing task",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{"type": "string", "description": "Identifier of the task"},
				"note":    map[string]any{"type": "string", "description": "Note text to attach"},
			},
			"required": []string{"task_id", "note"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			taskID, _ := args["task_id"].(string)
			note, _ := args["note"].(string)
			if err := svc.AddNote(ctx, taskID, note); err != nil {
				return nil, err
			}
			return map[string]any{"task_id": taskID, "added": true}, nil
		},
		func(o *FunctionToolOptions) {
			o.Tags = []string{"tasks"}
			o.RequiredCapability = core.CapabilityModifyData
		},
	)
}

// NewSearchWebTool exposes a Fetcher as the search_web tool. It requires the
// internet-access capability.
func NewSearchWebTool(f Fetcher) *FunctionTool {
	return NewFunctionTool(
		"search_web",
		"Search the web and return a textual summary of results",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			return f.Fetch(ctx, query)
		},
		func(o *FunctionToolOptions) {
			o.Tags = []string{"web"}
			o.RequiredCapability = core.CapabilityInternetAccess
		},
	)
}

// NewRunCodeTool exposes a Sandbox as the run_code tool. It requires the
// code-execution capability.
func NewRunCodeTool(s Sandbox) *FunctionTool {
	return NewFunctionTool(
		"run_code",
		"Execute a code snippet in a sandbox and return its output",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"language": map[string]any{"type": "string", "description": "Language of the snippet, e.g. python"},
				"code":     map[string]any{"type": "string", "description": "Source code to execute"},
			},
			"required": []string{"language", "code"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			language, _ := args["language"].(string)
			code, _ := args["code"].(string)
			return s.Run(ctx, language, code)
		},
		func(o *FunctionToolOptions) {
			o.Tags = []string{"code"}
			o.RequiredCapability = core.CapabilityExecuteCode
		},
	)
}

// InMemoryTaskService is a map-backed TaskService for tests and examples.
type InMemoryTaskService struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewInMemoryTaskService creates an empty in-memory task store.
func NewInMemoryTaskService() *InMemoryTaskService {
	return &InMemoryTaskService{tasks: make(map[string]*Task)}
}

// CreateTask implements TaskService.
func (s *InMemoryTaskService) CreateTask(ctx context.Context, title, description string) (*Task, error) {
	if title == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	task := &Task{
		ID:          core.NewID(),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	}
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()
	cp := *task
	return &cp, nil
}

// ListTasks implements TaskService; tasks are returned oldest first.
func (s *InMemoryTaskService) ListTasks(ctx context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddNote implements TaskService.
func (s *InMemoryTaskService) AddNote(ctx context.Context, taskID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("no task with id %s", taskID)
	}
	task.Notes = append(task.Notes, note)
	return nil
}
