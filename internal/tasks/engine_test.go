package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/observability"
	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/internal/tasks"
	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

type scriptedGateway struct {
	mu       sync.Mutex
	requests []providers.Request
	respond  func(ctx context.Context, req providers.Request) (string, error)
}

func (g *scriptedGateway) Complete(ctx context.Context, req providers.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.respond(ctx, req)
}

func (g *scriptedGateway) count(match func(providers.Request) bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if match == nil || match(r) {
			n++
		}
	}
	return n
}

func isDecomposition(req providers.Request) bool {
	return strings.Contains(req.Prompt, "task decomposition expert")
}

type memoryStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]tasks.Task
	applied int
}

func newMemoryStore(ts ...tasks.Task) *memoryStore {
	s := &memoryStore{tasks: make(map[uuid.UUID]tasks.Task)}
	for _, t := range ts {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memoryStore) MarkInProgress(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	if !t.Status.Startable() {
		return nil, tasks.ErrInvalidStatus
	}
	t.Status = tasks.StatusInProgress
	t.Progress = 0
	t.CompletedAt = nil
	s.tasks[id] = t
	return &t, nil
}

func (s *memoryStore) ApplyResult(_ context.Context, id uuid.UUID, result tasks.Result) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	if t.Status != tasks.StatusInProgress {
		return nil, tasks.ErrInvalidStatus
	}

	if result.Success {
		now := time.Now()
		out, _ := json.Marshal(result.OutputData)
		t.Status = tasks.StatusCompleted
		t.OutputData = out
		t.Progress = 100
		t.CompletedAt = &now
	} else {
		out, _ := json.Marshal(map[string]string{"error": result.Error})
		t.Status = tasks.StatusFailed
		t.OutputData = out
	}
	s.applied++
	s.tasks[id] = t
	return &t, nil
}

func (s *memoryStore) CreateSubtask(_ context.Context, parent tasks.Task, sub tasks.Subtask) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := tasks.Task{
		ID:           uuid.New(),
		Title:        sub.Title,
		Description:  sub.Description,
		TaskType:     sub.TaskType,
		Priority:     parent.Priority,
		Status:       tasks.StatusPending,
		AgentID:      parent.AgentID,
		ParentTaskID: &parent.ID,
		CreatedAt:    time.Now(),
	}
	s.tasks[t.ID] = t
	return &t, nil
}

func (s *memoryStore) get(id uuid.UUID) tasks.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

func (s *memoryStore) children(parent uuid.UUID) []tasks.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []tasks.Task
	for _, t := range s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parent {
			out = append(out, t)
		}
	}
	return out
}

func (s *memoryStore) setStatus(id uuid.UUID, status tasks.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[id]
	t.Status = status
	s.tasks[id] = t
}

// outputError returns the error recorded in the task's output data.
func (s *memoryStore) outputError(id uuid.UUID) string {
	var out struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(s.get(id).OutputData, &out)
	return out.Error
}

func (s *memoryStore) appliedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (o *recordingObserver) OnEvent(_ context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	for i, e := range o.events {
		out[i] = string(e.Type)
	}
	return out
}

type agentLookup map[uuid.UUID]agents.Agent

func (l agentLookup) Find(_ context.Context, id uuid.UUID) (*agents.Agent, error) {
	a, ok := l[id]
	if !ok {
		return nil, agents.ErrNotFound
	}
	return &a, nil
}

type metricsLog struct {
	mu      sync.Mutex
	entries []bool
}

func (m *metricsLog) RecordExecution(_ context.Context, _ uuid.UUID, _ float64, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, success)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() tasks.Config {
	return tasks.Config{
		MaxDepth:           3,
		MaxSubtasks:        5,
		DecomposeThreshold: 1000,
		QueueInterval:      10 * time.Millisecond,
		Decompose:          tasks.ModelSettings{Model: "gpt-4", Temperature: 0.3, MaxTokens: 1000},
		Direct:             tasks.ModelSettings{Model: "gpt-4", Temperature: 0.7, MaxTokens: 2000},
	}
}

func newTask(title, description string, typ tasktype.Type) tasks.Task {
	return tasks.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		TaskType:    typ,
		Priority:    tasks.PriorityMedium,
		Status:      tasks.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func answer(content string) func(context.Context, providers.Request) (string, error) {
	return func(context.Context, providers.Request) (string, error) { return content, nil }
}

func blocking(ctx context.Context, _ providers.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func subtaskJSON(n int) string {
	entries := make([]string, n)
	for i := range n {
		entries[i] = fmt.Sprintf(`{"title": "step %d", "description": "do step %d", "task_type": "analysis"}`, i, i)
	}
	return "[" + strings.Join(entries, ", ") + "]"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExecute_Direct(t *testing.T) {
	gw := &scriptedGateway{respond: answer("findings")}
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Logger: discardLogger()})

	task := newTask("Solar", "Look into solar panels", tasktype.Research)
	result := engine.Execute(context.Background(), task, map[string]any{"depth": "brief"})

	if !result.Success {
		t.Fatalf("result failed: %s", result.Error)
	}
	if result.TaskID != task.ID {
		t.Errorf("task id = %s, want %s", result.TaskID, task.ID)
	}

	checks := map[string]any{
		"type":           "research_results",
		"content":        "findings",
		"execution_mode": "direct",
		"task_type":      "research",
	}
	for key, want := range checks {
		if got := result.OutputData[key]; got != want {
			t.Errorf("output[%s] = %v, want %v", key, got, want)
		}
	}

	if gw.count(isDecomposition) != 0 {
		t.Error("short task should not be decomposed")
	}

	gw.mu.Lock()
	req := gw.requests[0]
	gw.mu.Unlock()

	if req.Model != "gpt-4" || req.Temperature != 0.7 || req.MaxTokens != 2000 {
		t.Errorf("direct request settings = %s/%v/%d", req.Model, req.Temperature, req.MaxTokens)
	}
	if !strings.Contains(req.Prompt, `Parameters: {"depth":"brief"}`) {
		t.Errorf("prompt missing parameters: %q", req.Prompt)
	}
}

func TestExecute_GatewayErrorBecomesResult(t *testing.T) {
	gw := &scriptedGateway{respond: func(context.Context, providers.Request) (string, error) {
		return "", errors.New("provider down")
	}}
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Logger: discardLogger()})

	result := engine.Execute(context.Background(), newTask("x", "y", tasktype.Summary), nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ExecutionTime != 0 {
		t.Errorf("execution time = %v, want 0", result.ExecutionTime)
	}
	if !strings.Contains(result.Error, "provider down") || result.Err == nil {
		t.Errorf("error = %q, err = %v", result.Error, result.Err)
	}
}

func TestRun_CompletesTask(t *testing.T) {
	gw := &scriptedGateway{respond: answer("summary text")}
	task := newTask("Sum", "Summarize it", tasktype.Summary)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	result, err := engine.Run(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result failed: %s", result.Error)
	}

	got := store.get(task.ID)
	if got.Status != tasks.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
	if len(engine.Running()) != 0 {
		t.Error("finished run still tracked")
	}
}

func TestRun_FailureRecorded(t *testing.T) {
	gw := &scriptedGateway{respond: func(context.Context, providers.Request) (string, error) {
		return "", errors.New("boom")
	}}
	task := newTask("Fail", "Will fail", tasktype.Analysis)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	result, err := engine.Run(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}

	got := store.get(task.ID)
	if got.Status != tasks.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("failed task should not have completed_at")
	}
}

func TestRun_RejectsTerminalTask(t *testing.T) {
	gw := &scriptedGateway{respond: answer("x")}
	task := newTask("Done", "Already done", tasktype.Summary)
	task.Status = tasks.StatusCompleted
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	if _, err := engine.Run(context.Background(), task, nil); !errors.Is(err, tasks.ErrInvalidStatus) {
		t.Fatalf("Run() error = %v, want ErrInvalidStatus", err)
	}
	if gw.count(nil) != 0 {
		t.Error("terminal task reached the gateway")
	}
}

func TestRun_TimeoutAppliesFailure(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeout = 20 * time.Millisecond

	gw := &scriptedGateway{respond: blocking}
	task := newTask("Slow", "Takes forever", tasktype.Generation)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(cfg, tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	result, err := engine.Run(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if got := store.get(task.ID).Status; got != tasks.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestRun_AlreadyRunning(t *testing.T) {
	gw := &scriptedGateway{respond: blocking}
	task := newTask("Busy", "Blocks", tasktype.Research)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), task, nil)
		done <- err
	}()

	waitFor(t, func() bool { return gw.count(nil) == 1 })

	if _, err := engine.Run(context.Background(), task, nil); !errors.Is(err, tasks.ErrInvalidStatus) {
		t.Errorf("second Run() error = %v, want ErrInvalidStatus", err)
	}

	if !engine.Cancel(task.ID) {
		t.Fatal("Cancel() = false for running task")
	}
	if err := <-done; !errors.Is(err, tasks.ErrCancelled) {
		t.Errorf("cancelled Run() error = %v, want ErrCancelled", err)
	}
	if got := store.get(task.ID).Status; got != tasks.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if got := store.outputError(task.ID); got != "cancelled" {
		t.Errorf("output error = %q, want cancelled", got)
	}
}

func TestRun_CancelKeepsRepositoryStatus(t *testing.T) {
	gw := &scriptedGateway{respond: blocking}
	task := newTask("Cancelled", "Blocks", tasktype.Research)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), task, nil)
		done <- err
	}()

	waitFor(t, func() bool { return gw.count(nil) == 1 })

	store.setStatus(task.ID, tasks.StatusCancelled)
	if !engine.Cancel(task.ID) {
		t.Fatal("Cancel() = false for running task")
	}
	if err := <-done; !errors.Is(err, tasks.ErrCancelled) {
		t.Errorf("Run() error = %v, want ErrCancelled", err)
	}
	if store.appliedCount() != 0 {
		t.Error("cancelled run applied a result")
	}
	if got := store.get(task.ID).Status; got != tasks.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got)
	}
}

func TestExecute_LongDescriptionDecomposes(t *testing.T) {
	gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
		if isDecomposition(req) {
			return "I would rather not produce JSON today.", nil
		}
		return "partial answer", nil
	}}
	task := newTask("Big", strings.Repeat("a", 1200), tasktype.Research)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	result := engine.Execute(context.Background(), task, nil)

	if !result.Success {
		t.Fatalf("result failed: %s", result.Error)
	}
	count, ok := result.OutputData["subtask_count"].(int)
	if !ok || count < 1 {
		t.Fatalf("subtask_count = %v, want >= 1", result.OutputData["subtask_count"])
	}

	children := store.children(task.ID)
	if len(children) != 1 {
		t.Fatalf("persisted %d subtasks, want 1", len(children))
	}
	if children[0].Title != "Subtask of Big" {
		t.Errorf("placeholder title = %q", children[0].Title)
	}
	if children[0].Status != tasks.StatusCompleted {
		t.Errorf("subtask status = %s, want completed", children[0].Status)
	}

	gw.mu.Lock()
	req := gw.requests[0]
	gw.mu.Unlock()
	if req.Temperature != 0.3 || req.MaxTokens != 1000 {
		t.Errorf("decomposition settings = %v/%d", req.Temperature, req.MaxTokens)
	}
}

func TestExecute_SubtasksTruncated(t *testing.T) {
	gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
		if isDecomposition(req) {
			return subtaskJSON(7), nil
		}
		return "ok", nil
	}}
	task := newTask("Plan", "short", tasktype.Analysis)
	task.InputData = json.RawMessage(`{"steps": ["a", "b"]}`)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Logger: discardLogger()})

	result := engine.Execute(context.Background(), task, nil)

	if got := result.OutputData["subtask_count"]; got != 5 {
		t.Errorf("subtask_count = %v, want 5", got)
	}
	if got := gw.count(func(r providers.Request) bool { return !isDecomposition(r) }); got != 5 {
		t.Errorf("direct executions = %d, want 5", got)
	}
}

func TestExecute_MixedSubtaskOutcomes(t *testing.T) {
	gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
		switch {
		case isDecomposition(req):
			return `[{"title": "good", "task_type": "summary"}, {"title": "bad", "task_type": "summary"}]`, nil
		case strings.Contains(req.Prompt, "Task: bad"):
			return "", errors.New("refused")
		default:
			time.Sleep(time.Millisecond)
			return "fine", nil
		}
	}}
	task := newTask("Mixed", strings.Repeat("b", 1500), tasktype.Summary)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Logger: discardLogger()})

	result := engine.Execute(context.Background(), task, nil)

	if !result.Success {
		t.Fatalf("result failed: %s", result.Error)
	}
	if result.OutputData["successful_count"] != 1 || result.OutputData["failed_count"] != 1 {
		t.Errorf("counts = %v/%v", result.OutputData["successful_count"], result.OutputData["failed_count"])
	}

	successful, ok := result.OutputData["results"].([]tasks.Result)
	if !ok || len(successful) != 1 {
		t.Fatalf("results = %#v", result.OutputData["results"])
	}
	if successful[0].ExecutionTime <= 0 {
		t.Error("subtask execution time not measured")
	}
	if result.ExecutionTime != successful[0].ExecutionTime {
		t.Errorf("execution time = %v, want %v", result.ExecutionTime, successful[0].ExecutionTime)
	}
}

func TestExecute_AllSubtasksFail(t *testing.T) {
	gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
		if isDecomposition(req) {
			return subtaskJSON(2), nil
		}
		return "", errors.New("refused")
	}}
	task := newTask("Doomed", strings.Repeat("c", 1500), tasktype.Analysis)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Logger: discardLogger()})

	result := engine.Execute(context.Background(), task, nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "All subtasks failed" {
		t.Errorf("error = %q", result.Error)
	}
	if len(result.SubtaskResults) != 2 {
		t.Errorf("subtask results = %d, want 2", len(result.SubtaskResults))
	}
}

func TestExecute_DepthBounded(t *testing.T) {
	long := strings.Repeat("d", 1500)

	tests := []struct {
		name     string
		maxDepth int
		want     int
	}{
		{"disabled", 0, 0},
		{"one level", 1, 1},
		{"two levels", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
				if isDecomposition(req) {
					return fmt.Sprintf(`[{"title": "deeper", "description": %q}]`, long), nil
				}
				return "leaf", nil
			}}
			cfg := testConfig()
			cfg.MaxDepth = tt.maxDepth
			engine := tasks.NewEngine(cfg, tasks.Deps{Gateway: gw, Logger: discardLogger()})

			result := engine.Execute(context.Background(), newTask("Root", long, tasktype.Research), nil)

			if !result.Success {
				t.Fatalf("result failed: %s", result.Error)
			}
			if got := gw.count(isDecomposition); got != tt.want {
				t.Errorf("decompositions = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExecute_AgentPath(t *testing.T) {
	active := agents.Agent{
		ID:          uuid.New(),
		Name:        "scout",
		AgentType:   "researcher",
		Model:       "gpt-4",
		Temperature: 0.7,
		MaxTokens:   4000,
		IsActive:    true,
	}
	inactive := active
	inactive.ID = uuid.New()
	inactive.IsActive = false

	gw := &scriptedGateway{respond: answer("agent findings")}
	registry := agents.NewRegistry(gw, nil, agents.RegistryConfig{MaxAgents: 2}, discardLogger())
	metrics := &metricsLog{}

	engine := tasks.NewEngine(testConfig(), tasks.Deps{
		Gateway:  gw,
		Agents:   agentLookup{active.ID: active, inactive.ID: inactive},
		Registry: registry,
		Metrics:  metrics,
		Logger:   discardLogger(),
	})

	t.Run("active", func(t *testing.T) {
		task := newTask("Delegated", "via agent", tasktype.Research)
		task.AgentID = &active.ID

		result := engine.Execute(context.Background(), task, nil)

		if !result.Success {
			t.Fatalf("result failed: %s", result.Error)
		}
		if result.AgentID == nil || *result.AgentID != active.ID || result.AgentName != "scout" {
			t.Errorf("agent = %v/%q", result.AgentID, result.AgentName)
		}
		if result.OutputData["type"] != "research_results" {
			t.Errorf("output type = %v", result.OutputData["type"])
		}
		if registry.Len() != 1 {
			t.Errorf("registry size = %d, want 1", registry.Len())
		}

		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		if len(metrics.entries) != 1 || !metrics.entries[0] {
			t.Errorf("metrics = %v", metrics.entries)
		}
	})

	t.Run("inactive", func(t *testing.T) {
		task := newTask("Delegated", "via agent", tasktype.Research)
		task.AgentID = &inactive.ID

		result := engine.Execute(context.Background(), task, nil)

		if !errors.Is(result.Err, tasks.ErrAgentUnavailable) {
			t.Errorf("err = %v, want ErrAgentUnavailable", result.Err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		id := uuid.New()
		task := newTask("Delegated", "via agent", tasktype.Research)
		task.AgentID = &id

		result := engine.Execute(context.Background(), task, nil)

		if !errors.Is(result.Err, tasks.ErrAgentUnavailable) {
			t.Errorf("err = %v, want ErrAgentUnavailable", result.Err)
		}
	})
}

func TestExecute_EmitsEvents(t *testing.T) {
	gw := &scriptedGateway{respond: func(_ context.Context, req providers.Request) (string, error) {
		if isDecomposition(req) {
			return subtaskJSON(1), nil
		}
		return "ok", nil
	}}
	observer := &recordingObserver{}
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Observer: observer, Logger: discardLogger()})

	engine.Execute(context.Background(), newTask("Root", strings.Repeat("e", 1100), tasktype.Research), nil)

	want := []string{
		string(observability.EventNodeStart),
		string(observability.EventEdgeTransition),
		string(observability.EventNodeStart),
		string(observability.EventNodeComplete),
		string(observability.EventNodeComplete),
	}
	got := observer.types()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestQueue_ProcessAndCancel(t *testing.T) {
	gw := &scriptedGateway{respond: blocking}
	task := newTask("Queued", "waits", tasktype.Research)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	engine.Queue(task)
	if engine.QueueSize() != 1 {
		t.Fatalf("queue size = %d, want 1", engine.QueueSize())
	}

	engine.ProcessQueue(context.Background())

	if engine.QueueSize() != 0 {
		t.Errorf("queue size after processing = %d", engine.QueueSize())
	}
	waitFor(t, func() bool { return gw.count(nil) == 1 })

	if running := engine.Running(); len(running) != 1 || running[0] != task.ID {
		t.Errorf("running = %v", running)
	}

	if !engine.Cancel(task.ID) {
		t.Fatal("Cancel() = false")
	}
	if engine.Cancel(task.ID) {
		t.Error("second Cancel() = true")
	}

	engine.Shutdown()

	if got := store.get(task.ID).Status; got != tasks.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if got := store.outputError(task.ID); got != "cancelled" {
		t.Errorf("output error = %q, want cancelled", got)
	}
}

func TestCancel_Unknown(t *testing.T) {
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: &scriptedGateway{respond: answer("")}, Logger: discardLogger()})
	if engine.Cancel(uuid.New()) {
		t.Error("Cancel() = true for unknown task")
	}
}

func TestShutdown_CancelsRunsAndDropsQueue(t *testing.T) {
	gw := &scriptedGateway{respond: blocking}
	first := newTask("First", "blocks", tasktype.Research)
	second := newTask("Second", "waits in queue", tasktype.Research)
	store := newMemoryStore(first, second)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	engine.Queue(first)
	engine.ProcessQueue(context.Background())
	waitFor(t, func() bool { return gw.count(nil) == 1 })
	engine.Queue(second)

	engine.Shutdown()

	if engine.QueueSize() != 0 {
		t.Errorf("queue size = %d, want 0", engine.QueueSize())
	}
	if len(engine.Running()) != 0 {
		t.Errorf("running = %v, want none", engine.Running())
	}
	if got := store.get(first.ID).Status; got != tasks.StatusFailed {
		t.Errorf("running task status = %s, want failed", got)
	}
	if got := store.outputError(first.ID); got != "shutdown" {
		t.Errorf("running task output error = %q, want shutdown", got)
	}
	if got := store.get(second.ID).Status; got != tasks.StatusPending {
		t.Errorf("queued task status = %s, want pending", got)
	}
}

func TestShutdown_SettlesPersistedSubtasks(t *testing.T) {
	gw := &scriptedGateway{respond: func(ctx context.Context, req providers.Request) (string, error) {
		if isDecomposition(req) {
			return subtaskJSON(1), nil
		}
		return blocking(ctx, req)
	}}
	task := newTask("Large", strings.Repeat("a", 1200), tasktype.Research)
	store := newMemoryStore(task)
	engine := tasks.NewEngine(testConfig(), tasks.Deps{Gateway: gw, Store: store, Logger: discardLogger()})

	engine.Queue(task)
	engine.ProcessQueue(context.Background())
	waitFor(t, func() bool { return len(store.children(task.ID)) == 1 && gw.count(nil) == 2 })

	engine.Shutdown()

	for _, sub := range store.children(task.ID) {
		if sub.Status != tasks.StatusFailed {
			t.Errorf("subtask status = %s, want failed", sub.Status)
		}
	}
	if got := store.get(task.ID).Status; got != tasks.StatusFailed {
		t.Errorf("parent status = %s, want failed", got)
	}
}
