package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/observability"
	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

const eventSource = "tasks.engine"

// Completer generates model completions.
type Completer interface {
	Complete(ctx context.Context, req providers.Request) (string, error)
}

// AgentResolver looks up persisted agents.
type AgentResolver interface {
	Find(ctx context.Context, id uuid.UUID) (*agents.Agent, error)
}

// MetricsRecorder receives the timing of agent-delegated executions.
type MetricsRecorder interface {
	RecordExecution(ctx context.Context, agentID uuid.UUID, seconds float64, success bool) error
}

// ModelSettings selects the model for one kind of engine completion.
type ModelSettings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Config bounds decomposition and execution.
type Config struct {
	MaxDepth           int
	MaxSubtasks        int
	DecomposeThreshold int
	TaskTimeout        time.Duration
	QueueInterval      time.Duration
	Decompose          ModelSettings
	Direct             ModelSettings
}

// NewConfig converts the finalized engine configuration.
func NewConfig(cfg *config.EngineConfig) Config {
	return Config{
		MaxDepth:           cfg.MaxDepth,
		MaxSubtasks:        cfg.MaxSubtasks,
		DecomposeThreshold: cfg.DecomposeThreshold,
		TaskTimeout:        cfg.TaskTimeoutDuration(),
		QueueInterval:      cfg.QueueIntervalDuration(),
		Decompose: ModelSettings{
			Model:       cfg.Decompose.Model,
			Temperature: *cfg.Decompose.Temperature,
			MaxTokens:   cfg.Decompose.MaxTokens,
		},
		Direct: ModelSettings{
			Model:       cfg.Direct.Model,
			Temperature: *cfg.Direct.Temperature,
			MaxTokens:   cfg.Direct.MaxTokens,
		},
	}
}

// Deps are the engine's collaborators. Gateway is required; Agents and
// Registry enable the agent path; Store persists progress; Observer and
// Metrics are optional.
type Deps struct {
	Gateway  Completer
	Agents   AgentResolver
	Registry *agents.Registry
	Store    Store
	Observer observability.Observer
	Metrics  MetricsRecorder
	Logger   *slog.Logger
}

// Result is the outcome of executing a task.
type Result struct {
	Success        bool           `json:"success"`
	OutputData     map[string]any `json:"output_data,omitempty"`
	Error          string         `json:"error,omitempty"`
	SubtaskResults []Result       `json:"subtask_results,omitempty"`
	ExecutionTime  float64        `json:"execution_time"`
	TaskID         uuid.UUID      `json:"task_id"`
	AgentID        *uuid.UUID     `json:"agent_id,omitempty"`
	AgentName      string         `json:"agent_name,omitempty"`

	// Err is the error that aborted execution, if any.
	Err error `json:"-"`
}

// Engine executes tasks and tracks queued and running work.
type Engine struct {
	cfg      Config
	gateway  Completer
	agents   AgentResolver
	registry *agents.Registry
	store    Store
	observer observability.Observer
	metrics  MetricsRecorder
	logger   *slog.Logger

	mu      sync.Mutex
	queue   []Task
	running map[uuid.UUID]*execution
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewEngine creates an engine with an empty queue.
func NewEngine(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:      cfg,
		gateway:  deps.Gateway,
		agents:   deps.Agents,
		registry: deps.Registry,
		store:    deps.Store,
		observer: deps.Observer,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With("system", "task-engine"),
		running:  make(map[uuid.UUID]*execution),
		wake:     make(chan struct{}, 1),
	}
}

// Execute runs t and never fails: every error becomes a result with
// Success false, zero execution time and Err set.
func (e *Engine) Execute(ctx context.Context, t Task, params map[string]any) Result {
	result, err := e.execute(ctx, t, params, 0)
	if err != nil {
		e.logger.Error("task execution failed", "id", t.ID, "error", err)
		return Result{Error: err.Error(), TaskID: t.ID, Err: err}
	}
	return result
}

func (e *Engine) execute(ctx context.Context, t Task, params map[string]any, depth int) (Result, error) {
	e.emitStart(ctx, t, depth)

	var result Result
	var err error

	switch {
	case e.decomposes(t, depth):
		result, err = e.executeDecomposed(ctx, t, params, depth)
	case t.AgentID != nil:
		result, err = e.executeWithAgent(ctx, t)
	default:
		result, err = e.executeDirect(ctx, t, params)
	}

	e.emitComplete(ctx, t, result, err)
	return result, err
}

func (e *Engine) decomposes(t Task, depth int) bool {
	return depth < e.cfg.MaxDepth && NeedsDecomposition(t, e.cfg.DecomposeThreshold)
}

func (e *Engine) executeWithAgent(ctx context.Context, t Task) (Result, error) {
	if e.agents == nil || e.registry == nil {
		return Result{}, fmt.Errorf("%w: no agent runtime configured", ErrAgentUnavailable)
	}

	a, err := e.agents.Find(ctx, *t.AgentID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrAgentUnavailable, *t.AgentID, err)
	}
	if !a.IsActive {
		return Result{}, fmt.Errorf("%w: agent %s is inactive", ErrAgentUnavailable, a.ID)
	}
	if _, err := e.registry.GetOrCreate(*a); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}

	ar := e.registry.Execute(ctx, *a, t.Brief())

	if e.metrics != nil {
		if err := e.metrics.RecordExecution(ctx, a.ID, ar.ExecutionTime, ar.Success); err != nil {
			e.logger.Warn("record execution metric", "agent_id", a.ID, "error", err)
		}
	}

	return Result{
		Success:       ar.Success,
		OutputData:    ar.OutputData,
		Error:         ar.Error,
		ExecutionTime: ar.ExecutionTime,
		TaskID:        t.ID,
		AgentID:       &ar.AgentID,
		AgentName:     ar.AgentName,
	}, nil
}

func (e *Engine) executeDirect(ctx context.Context, t Task, params map[string]any) (Result, error) {
	variant, err := tasktype.Of(t.TaskType)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	brief := t.Brief()

	content, err := e.gateway.Complete(ctx, providers.Request{
		Prompt:      directPrompt(variant, brief, params),
		Model:       e.cfg.Direct.Model,
		Temperature: e.cfg.Direct.Temperature,
		MaxTokens:   e.cfg.Direct.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("direct execution: %w", err)
	}

	output := variant.Envelope(content, tasktype.Profile{}, brief)
	output["execution_mode"] = "direct"
	output["task_type"] = string(t.TaskType)

	return Result{
		Success:       true,
		OutputData:    output,
		ExecutionTime: time.Since(start).Seconds(),
		TaskID:        t.ID,
	}, nil
}

func (e *Engine) executeDecomposed(ctx context.Context, t Task, params map[string]any, depth int) (Result, error) {
	e.logger.Info("decomposing task", "id", t.ID, "depth", depth)

	subtasks := e.subtasks(ctx, t)

	results := make([]Result, 0, len(subtasks))
	for _, sub := range subtasks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		e.emitEdge(ctx, t, sub.task)
		results = append(results, e.runSubtask(ctx, sub, params, depth+1))
	}

	return aggregate(t.ID, results), nil
}

type subtask struct {
	task      Task
	persisted bool
}

func (e *Engine) subtasks(ctx context.Context, parent Task) []subtask {
	specs, err := e.generateSubtasks(ctx, parent)
	if err != nil {
		e.logger.Warn("subtask generation fell back to placeholder", "id", parent.ID, "error", err)
		specs = []Subtask{placeholderSubtask(parent)}
	}

	out := make([]subtask, 0, len(specs))
	for _, spec := range specs {
		if e.store != nil {
			persisted, err := e.store.CreateSubtask(ctx, parent, spec)
			if err == nil {
				out = append(out, subtask{task: *persisted, persisted: true})
				continue
			}
			e.logger.Warn("persist subtask", "parent_id", parent.ID, "error", err)
		}
		out = append(out, subtask{task: spec.task(parent)})
	}
	return out
}

func (e *Engine) generateSubtasks(ctx context.Context, parent Task) ([]Subtask, error) {
	content, err := e.gateway.Complete(ctx, providers.Request{
		Prompt:      decompositionPrompt(parent),
		Model:       e.cfg.Decompose.Model,
		Temperature: e.cfg.Decompose.Temperature,
		MaxTokens:   e.cfg.Decompose.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	specs, err := ParseSubtasks(content, parent.TaskType)
	if err != nil {
		return nil, err
	}
	if len(specs) > e.cfg.MaxSubtasks {
		specs = specs[:e.cfg.MaxSubtasks]
	}
	return specs, nil
}

func (e *Engine) runSubtask(ctx context.Context, sub subtask, params map[string]any, depth int) Result {
	t := sub.task

	if sub.persisted {
		if _, err := e.store.MarkInProgress(ctx, t.ID); err != nil {
			e.logger.Warn("mark subtask in progress", "id", t.ID, "error", err)
		}
	}

	result, err := e.execute(ctx, t, params, depth)
	if err != nil {
		result = Result{Error: err.Error(), TaskID: t.ID, Err: err}
	}

	if sub.persisted {
		if ctx.Err() != nil {
			e.abandon(ctx, t.ID)
		} else if _, err := e.store.ApplyResult(ctx, t.ID, result); err != nil {
			e.logger.Warn("apply subtask result", "id", t.ID, "error", err)
		}
	}
	return result
}

// Run executes a persisted task: it marks the task in progress, executes
// it bounded by the task timeout and applies the result. The run is
// tracked until it finishes and can be stopped with Cancel. A cancelled
// run does not apply its result; if its task is still in progress the task
// is recorded as failed instead.
func (e *Engine) Run(ctx context.Context, t Task, params map[string]any) (Result, error) {
	runCtx, exec, err := e.track(ctx, t.ID)
	if err != nil {
		return Result{}, err
	}
	defer exec.finish()

	return e.run(runCtx, t, params)
}

func (e *Engine) run(ctx context.Context, t Task, params map[string]any) (Result, error) {
	if e.store != nil {
		if _, err := e.store.MarkInProgress(ctx, t.ID); err != nil {
			return Result{}, err
		}
	}

	execCtx := ctx
	if e.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.cfg.TaskTimeout)
		defer cancel()
	}

	result := e.Execute(execCtx, t, params)

	if errors.Is(ctx.Err(), context.Canceled) {
		e.abandon(ctx, t.ID)
		return result, fmt.Errorf("%w: %s", ErrCancelled, t.ID)
	}

	if e.store != nil {
		if _, err := e.store.ApplyResult(context.WithoutCancel(ctx), t.ID, result); err != nil {
			return result, fmt.Errorf("apply result: %w", err)
		}
	}

	e.logger.Info("task executed", "id", t.ID, "success", result.Success, "execution_time", result.ExecutionTime)
	return result, nil
}

// abandon settles a stopped run. A task still in progress is recorded as
// failed with the stop reason; a task that already left in_progress, such
// as one cancelled through the repository, keeps its status.
func (e *Engine) abandon(ctx context.Context, id uuid.UUID) {
	if e.store == nil {
		return
	}

	reason := "shutdown"
	if errors.Is(context.Cause(ctx), ErrCancelled) {
		reason = "cancelled"
	}

	_, err := e.store.ApplyResult(context.WithoutCancel(ctx), id, Result{Error: reason, TaskID: id})
	switch {
	case err == nil:
		e.logger.Info("task run stopped", "id", id, "reason", reason)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNotFound):
		e.logger.Info("task run cancelled, result discarded", "id", id)
	default:
		e.logger.Warn("record stopped run", "id", id, "error", err)
	}
}

func (e *Engine) emitStart(ctx context.Context, t Task, depth int) {
	if e.observer == nil {
		return
	}
	e.observer.OnEvent(ctx, observability.Event{
		Type:      observability.EventNodeStart,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data: map[string]any{
			"task_id": t.ID.String(),
			"title":   t.Title,
			"depth":   depth,
		},
	})
}

func (e *Engine) emitComplete(ctx context.Context, t Task, result Result, err error) {
	if e.observer == nil {
		return
	}

	data := map[string]any{
		"task_id":        t.ID.String(),
		"success":        err == nil && result.Success,
		"execution_time": result.ExecutionTime,
	}
	switch {
	case err != nil:
		data["error"] = err.Error()
	case result.Error != "":
		data["error"] = result.Error
	}

	e.observer.OnEvent(ctx, observability.Event{
		Type:      observability.EventNodeComplete,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data:      data,
	})
}

func (e *Engine) emitEdge(ctx context.Context, parent, child Task) {
	if e.observer == nil {
		return
	}
	e.observer.OnEvent(ctx, observability.Event{
		Type:      observability.EventEdgeTransition,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data: map[string]any{
			"from": parent.ID.String(),
			"to":   child.ID.String(),
		},
	})
}
