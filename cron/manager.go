package cron

import (
	"context"
	"sync"

	"github.com/dailyyoga/offlinekit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// taskJob adapts a Task to cron.Job
type taskJob struct {
	ctx  context.Context
	task Task
}

// Run executes the task; errors are already logged by the middleware chain
func (j *taskJob) Run() {
	_ = j.task.Run(j.ctx)
}

// cronManager is the default implementation of the Cron interface
type cronManager struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
	closed  bool
}

func newCronManager(log logger.Logger, mws ...Middleware) *cronManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &cronManager{
		cron:        cron.New(cron.WithSeconds()),
		middlewares: mws,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
		entries:     make(map[string]cron.EntryID),
	}
}

func (m *cronManager) Start() {
	m.cron.Start()
}

func (m *cronManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	<-m.cron.Stop().Done()
}

func (m *cronManager) AddTask(name, spec string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCronClosed
	}
	if _, exists := m.entries[name]; exists {
		return ErrDuplicateTask(name)
	}

	wrapped := applyMiddlewares(&wrappedTask{name: name, exec: task.Run}, m.middlewares...)
	id, err := m.cron.AddJob(spec, &taskJob{ctx: m.ctx, task: wrapped})
	if err != nil {
		return ErrInvalidSpec(name, spec, err)
	}
	m.entries[name] = id

	m.logger.Info("task scheduled",
		zap.String("task", name),
		zap.String("spec", spec),
	)
	return nil
}

func (m *cronManager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.entries[name]; ok {
		m.cron.Remove(id)
		delete(m.entries, name)
	}
}
