package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

// Notifier receives agent runtime events.
type Notifier interface {
	NotifyAgent(agentID uuid.UUID, data map[string]any)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(agentID uuid.UUID, data map[string]any)

func (f NotifierFunc) NotifyAgent(agentID uuid.UUID, data map[string]any) {
	f(agentID, data)
}

// RegistryConfig bounds the registry.
type RegistryConfig struct {
	MaxAgents int
	Timeout   time.Duration
}

// Registry owns the live instances, at most one per agent id.
type Registry struct {
	completer Completer
	notifier  Notifier
	cfg       RegistryConfig
	logger    *slog.Logger

	group     singleflight.Group
	mu        sync.Mutex
	instances map[uuid.UUID]*Instance
}

// NewRegistry creates an empty registry. notifier may be nil.
func NewRegistry(completer Completer, notifier Notifier, cfg RegistryConfig, logger *slog.Logger) *Registry {
	return &Registry{
		completer: completer,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With("system", "agent-registry"),
		instances: make(map[uuid.UUID]*Instance),
	}
}

// GetOrCreate returns the instance for a.ID, creating and starting it
// on first use. An existing instance picks up a's configuration.
func (r *Registry) GetOrCreate(a Agent) (*Instance, error) {
	if inst, ok := r.Instance(a.ID); ok {
		inst.configure(a)
		return inst, nil
	}

	v, err, _ := r.group.Do(a.ID.String(), func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if inst, ok := r.instances[a.ID]; ok {
			return inst, nil
		}
		if r.cfg.MaxAgents > 0 && len(r.instances) >= r.cfg.MaxAgents {
			return nil, fmt.Errorf("%w: %d instances", ErrCapacity, len(r.instances))
		}

		inst := newInstance(a, r.completer)
		r.instances[a.ID] = inst
		r.logger.Info("agent instance created", "agent_id", a.ID, "name", a.Name)
		return inst, nil
	})
	if err != nil {
		return nil, err
	}

	inst := v.(*Instance)
	inst.configure(a)
	return inst, nil
}

// Instance returns the live instance for id, if any.
func (r *Registry) Instance(id uuid.UUID) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Execute runs brief on the agent's instance. It never fails: capacity,
// stopped instances and model errors all become unsuccessful results.
func (r *Registry) Execute(ctx context.Context, a Agent, brief tasktype.Brief) Result {
	inst, err := r.GetOrCreate(a)
	if err != nil {
		r.logger.Warn("agent instance unavailable", "agent_id", a.ID, "error", err)
		return Result{Error: err.Error(), AgentID: a.ID, AgentName: a.Name}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	r.notify(a.ID, map[string]any{
		"event":   "task_started",
		"task_id": brief.ID.String(),
		"title":   brief.Title,
	})

	result, err := inst.Execute(ctx, brief)
	if err != nil {
		result = Result{Error: err.Error(), AgentID: a.ID, AgentName: a.Name}
	}

	r.logger.Info("agent task executed",
		"agent_id", a.ID,
		"task_id", brief.ID,
		"success", result.Success,
		"execution_time", result.ExecutionTime,
	)

	update := map[string]any{
		"event":          "task_finished",
		"task_id":        brief.ID.String(),
		"success":        result.Success,
		"execution_time": result.ExecutionTime,
	}
	if result.Error != "" {
		update["error"] = result.Error
	}
	r.notify(a.ID, update)

	return result
}

// Remove stops and forgets the instance for id. Unknown ids are ignored.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	inst, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()

	if ok {
		inst.Stop()
		r.logger.Info("agent instance removed", "agent_id", id)
	}
}

// Statuses returns a snapshot of every live instance.
func (r *Registry) Statuses() []InstanceStatus {
	r.mu.Lock()
	instances := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	r.mu.Unlock()

	out := make([]InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Status())
	}
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Shutdown stops every instance and empties the registry.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[uuid.UUID]*Instance)
	r.mu.Unlock()

	for _, inst := range instances {
		inst.Stop()
	}
	r.logger.Info("agent registry stopped", "instances", len(instances))
}

func (r *Registry) notify(id uuid.UUID, data map[string]any) {
	if r.notifier != nil {
		r.notifier.NotifyAgent(id, data)
	}
}
