package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hookrelay/internal/common"
	"hookrelay/internal/infra/metrics"

	"github.com/google/uuid"
)

// Accepted timeout range for a question, in seconds.
const (
	MinTimeoutSeconds = 10
	MaxTimeoutSeconds = 3600
)

// Ticket is handed to the caller that asked a question.
type Ticket struct {
	ID  string
	URL string

	result <-chan settlement
}

// Wait blocks until the question is answered or expires. Cancelling ctx stops
// the wait but leaves the question pending until its own timeout.
func (t *Ticket) Wait(ctx context.Context) (string, error) {
	select {
	case s := <-t.result:
		return s.answer, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Coordinator owns the lifecycle Pending -> Answered | Expired of every question.
type Coordinator struct {
	registry  *Registry
	serverURL string
	port      int

	afterFunc func(time.Duration, func()) stopper
	now       func() time.Time
}

// NewCoordinator creates a coordinator whose answer pages are served at
// serverURL:port.
func NewCoordinator(registry *Registry, serverURL string, port int) *Coordinator {
	return &Coordinator{
		registry:  registry,
		serverURL: strings.TrimRight(serverURL, "/"),
		port:      port,
		afterFunc: func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) },
		now:       time.Now,
	}
}

// Ask registers a question and starts its timeout.
func (c *Coordinator) Ask(question, title string, timeoutSeconds int) (*Ticket, error) {
	if strings.TrimSpace(question) == "" {
		return nil, common.NewValidationError("question is required")
	}
	if timeoutSeconds < MinTimeoutSeconds || timeoutSeconds > MaxTimeoutSeconds {
		return nil, common.NewValidationError(fmt.Sprintf(
			"timeoutSeconds must be between %d and %d", MinTimeoutSeconds, MaxTimeoutSeconds))
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	result := make(chan settlement, 1)
	q := &PendingQuestion{
		ID:        uuid.New().String(),
		Question:  question,
		Title:     title,
		CreatedAt: c.now(),
		Timeout:   timeout,
		result:    result,
	}

	c.registry.add(q, func() stopper {
		return c.afterFunc(timeout, func() { c.expire(q.ID) })
	})
	metrics.QuestionsPending.Inc()

	slog.Info("question registered", "question_id", q.ID, "timeout", timeout)

	return &Ticket{ID: q.ID, URL: c.QuestionURL(q.ID), result: result}, nil
}

// Answer settles a pending question with answer.
func (c *Coordinator) Answer(id, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return common.NewValidationError("Answer is required")
	}

	q, ok := c.registry.take(id)
	if !ok {
		return common.NewNotFoundError("question", id)
	}
	q.timer.Stop()
	q.result <- settlement{answer: answer}

	metrics.QuestionsPending.Dec()
	metrics.QuestionsResolved.WithLabelValues("answered").Inc()
	slog.Info("question answered", "question_id", id)
	return nil
}

// expire settles a question with a timeout error if it is still pending.
func (c *Coordinator) expire(id string) {
	q, ok := c.registry.take(id)
	if !ok {
		return
	}
	q.result <- settlement{err: &common.AnswerTimeoutError{QuestionID: id, Timeout: q.Timeout}}

	metrics.QuestionsPending.Dec()
	metrics.QuestionsResolved.WithLabelValues("expired").Inc()
	slog.Warn("question expired", "question_id", id, "timeout", q.Timeout)
}

// Get returns a snapshot of a pending question.
func (c *Coordinator) Get(id string) (Snapshot, error) {
	s, ok := c.registry.get(id)
	if !ok {
		return Snapshot{}, common.NewNotFoundError("question", id)
	}
	return s, nil
}

// QuestionURL returns the address of the answer page for id.
func (c *Coordinator) QuestionURL(id string) string {
	return fmt.Sprintf("%s:%d/%s", c.serverURL, c.port, id)
}

// Pending returns the number of unsettled questions.
func (c *Coordinator) Pending() int {
	return c.registry.Len()
}
