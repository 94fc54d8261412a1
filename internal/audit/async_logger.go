package audit

import (
	"sync"
	"time"

	"github.com/expenseflow/go-core/pkg/types"
)

// asyncLogger buffers events in a ring and flushes them in the background.
// When the ring is full the oldest event is dropped; auditing must never
// block a request.
type asyncLogger struct {
	writer Writer

	buffer []Event
	size   int
	head   int
	tail   int
	mu     sync.Mutex

	flushCh  chan struct{}
	doneCh   chan struct{}
	wg       sync.WaitGroup
	interval time.Duration
}

func newAsyncLogger(writer Writer, cfg Config) *asyncLogger {
	l := &asyncLogger{
		writer:   writer,
		buffer:   make([]Event, cfg.BufferSize),
		size:     cfg.BufferSize,
		flushCh:  make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		interval: cfg.FlushInterval,
	}

	l.wg.Add(1)
	go l.run()
	return l
}

func (l *asyncLogger) LogAccessDecision(actor types.Principal, action, resource string, decision Decision, reason string) {
	l.enqueue(Event{
		Timestamp: time.Now(),
		EventType: EventTypeAccessDecision,
		EventID:   generateEventID(),
		Actor:     actorOf(actor),
		Action:    action,
		Resource:  resource,
		Decision:  decision,
		Reason:    reason,
	})
}

func (l *asyncLogger) LogApprovalDecision(actor types.Principal, expenseID string, entry types.ApprovalEntry) {
	l.enqueue(Event{
		Timestamp: time.Now(),
		EventType: EventTypeApprovalDecision,
		EventID:   generateEventID(),
		Actor:     actorOf(actor),
		Action:    string(entry.Action),
		Resource:  "expense:" + expenseID,
		Decision:  DecisionAllow,
		Data: map[string]interface{}{
			"comment": entry.Comment,
			"status":  string(entry.Action.ResultingStatus()),
		},
	})
}

func (l *asyncLogger) LogUserChange(actor types.Principal, operation, targetID string, data map[string]interface{}) {
	l.enqueue(Event{
		Timestamp: time.Now(),
		EventType: EventTypeUserChange,
		EventID:   generateEventID(),
		Actor:     actorOf(actor),
		Action:    operation,
		Resource:  "user:" + targetID,
		Data:      data,
	})
}

func (l *asyncLogger) LogLogin(email, userID string, success bool) {
	decision := DecisionAllow
	if !success {
		decision = DecisionDeny
	}
	l.enqueue(Event{
		Timestamp: time.Now(),
		EventType: EventTypeLogin,
		EventID:   generateEventID(),
		Actor:     Actor{ID: userID},
		Decision:  decision,
		Data:      map[string]interface{}{"email": email},
	})
}

func (l *asyncLogger) enqueue(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer[l.tail] = event
	l.tail = (l.tail + 1) % l.size
	if l.tail == l.head {
		l.head = (l.head + 1) % l.size
	}

	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

func (l *asyncLogger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.flush()
		case <-l.flushCh:
			_ = l.flush()
		case <-l.doneCh:
			_ = l.flush()
			return
		}
	}
}

// Flush writes pending events
func (l *asyncLogger) Flush() error {
	return l.flush()
}

func (l *asyncLogger) flush() error {
	l.mu.Lock()
	events := l.copyEvents()
	l.mu.Unlock()

	var lastErr error
	for _, event := range events {
		if err := l.writer.Write(event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (l *asyncLogger) copyEvents() []Event {
	if l.head == l.tail {
		return nil
	}

	var events []Event
	for i := l.head; i != l.tail; i = (i + 1) % l.size {
		events = append(events, l.buffer[i])
	}
	l.head = l.tail
	return events
}

// Close flushes remaining events and stops the background goroutine
func (l *asyncLogger) Close() error {
	close(l.doneCh)
	l.wg.Wait()
	return l.writer.Close()
}
