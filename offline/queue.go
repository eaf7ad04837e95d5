package offline

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/dailyyoga/offlinekit/audit"
	"github.com/dailyyoga/offlinekit/remote"
	"github.com/dailyyoga/offlinekit/routine"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingOperation is a mutation waiting to be delivered
type PendingOperation struct {
	// ID is a time-ordered UUIDv7
	ID          string              `json:"id"`
	Endpoint    string              `json:"endpoint"`
	Method      string              `json:"method"`
	Payload     json.RawMessage     `json:"payload,omitempty"`
	Attachments []remote.Attachment `json:"attachments,omitempty"`
	EnqueuedAt  time.Time           `json:"enqueued_at"`
	// RetryCount is the number of failed delivery attempts so far
	RetryCount int `json:"retry_count"`
}

func (op PendingOperation) request() remote.Request {
	return remote.Request{
		ID:          op.ID,
		Endpoint:    op.Endpoint,
		Method:      op.Method,
		Payload:     op.Payload,
		Attachments: op.Attachments,
	}
}

// SyncResult summarizes one sync pass
type SyncResult struct {
	// Skipped is set when another pass was running or the manager was offline
	Skipped   bool
	Synced    int
	Retried   int
	Abandoned int
}

// QueueForSync appends a mutation to the queue and persists it. payload is
// JSON encoded; nil means no body. When online a sync pass is launched in
// the background; delivery errors never reach the caller.
func (m *Manager) QueueForSync(endpoint, method string, payload any, attachments ...remote.Attachment) (PendingOperation, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return PendingOperation{}, ErrEncode(endpoint, err)
		}
		raw = b
	}
	id, err := uuid.NewV7()
	if err != nil {
		return PendingOperation{}, ErrOperationID(err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PendingOperation{}, ErrManagerClosed
	}
	op := PendingOperation{
		ID:          id.String(),
		Endpoint:    endpoint,
		Method:      method,
		Payload:     raw,
		Attachments: attachments,
		EnqueuedAt:  m.now(),
	}
	m.queue = append(m.queue, op)
	online := m.online
	depth := len(m.queue)
	m.mu.Unlock()

	m.logger.Info("operation queued",
		zap.String("id", op.ID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("pending", depth),
	)
	m.persistQueue(context.Background())

	if online {
		m.triggerSync("enqueue")
	}
	return op, nil
}

// SyncPendingChanges runs one sync pass over a snapshot of the queue.
//
// It is a no-op when another pass is running, when the manager is offline
// and after Close. Each operation gets one attempt bounded by
// Config.SendTimeout, in enqueue order. Operations queued during the pass
// are kept behind the survivors and wait for the next pass. If ctx is done
// the remaining operations are kept untouched.
func (m *Manager) SyncPendingChanges(ctx context.Context) SyncResult {
	if !m.syncing.CompareAndSwap(false, true) {
		m.logger.Debug("sync already in progress")
		return SyncResult{Skipped: true}
	}
	defer m.syncing.Store(false)

	m.mu.Lock()
	if !m.online || m.closed {
		m.mu.Unlock()
		return SyncResult{Skipped: true}
	}
	snapshot := slices.Clone(m.queue)
	generation := m.generation
	m.mu.Unlock()

	var result SyncResult
	if len(snapshot) == 0 {
		return result
	}

	survivors := make([]PendingOperation, 0, len(snapshot))
	for i, op := range snapshot {
		if ctx.Err() != nil {
			survivors = append(survivors, snapshot[i:]...)
			break
		}
		err := m.send(ctx, op)
		if err == nil {
			result.Synced++
			m.record(op, audit.OutcomeSynced, nil)
			continue
		}

		op.RetryCount++
		if op.RetryCount >= m.cfg.MaxRetries {
			result.Abandoned++
			m.logger.Warn("operation abandoned",
				zap.String("id", op.ID),
				zap.String("method", op.Method),
				zap.String("endpoint", op.Endpoint),
				zap.Int("retry_count", op.RetryCount),
				zap.Error(err),
			)
			m.record(op, audit.OutcomeAbandoned, err)
			continue
		}
		result.Retried++
		m.logger.Warn("operation failed, will retry",
			zap.String("id", op.ID),
			zap.String("endpoint", op.Endpoint),
			zap.Int("retry_count", op.RetryCount),
			zap.Error(err),
		)
		m.record(op, audit.OutcomeRetry, err)
		survivors = append(survivors, op)
	}

	m.mu.Lock()
	if m.generation == generation {
		// only appends happen while a pass runs, so the head is the snapshot
		m.queue = append(survivors, m.queue[len(snapshot):]...)
	}
	remaining := len(m.queue)
	m.mu.Unlock()

	m.persistQueue(context.Background())
	m.logger.Info("sync pass completed",
		zap.Int("synced", result.Synced),
		zap.Int("retried", result.Retried),
		zap.Int("abandoned", result.Abandoned),
		zap.Int("pending", remaining),
	)
	return result
}

func (m *Manager) send(ctx context.Context, op PendingOperation) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	defer cancel()
	return routine.Safe(m.logger, "send "+op.Endpoint, func() error {
		return m.sender.Send(ctx, op.request())
	})
}

func (m *Manager) record(op PendingOperation, outcome audit.Outcome, err error) {
	e := audit.Event{
		At:          m.now(),
		OperationID: op.ID,
		Endpoint:    op.Endpoint,
		Method:      op.Method,
		Outcome:     outcome,
		RetryCount:  op.RetryCount,
	}
	if err != nil {
		e.Error = err.Error()
	}
	m.recorder.Record(e)
}

// PendingSyncCount returns the queue depth
func (m *Manager) PendingSyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// HasPendingSyncs reports whether anything is waiting for delivery
func (m *Manager) HasPendingSyncs() bool {
	return m.PendingSyncCount() > 0
}

// PendingOperations returns a copy of the queue in delivery order.
// Payloads and attachments are shared and must not be modified.
func (m *Manager) PendingOperations() []PendingOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}
