package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Stub is a scripted Oracle keyed by operation, for tests.
// Each operation answers with its queued payloads in order; the last one
// repeats once the queue is exhausted.
type Stub struct {
	mu      sync.Mutex
	answers map[string][]string
	errs    map[string]error
	usage   Usage
	queries []Query
}

// NewStub creates an empty stub.
func NewStub() *Stub {
	return &Stub{
		answers: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

// On queues raw JSON payloads for op.
func (s *Stub) On(op string, payloads ...string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[op] = append(s.answers[op], payloads...)
	return s
}

// OnVerdict queues verdict answers for op.
func (s *Stub) OnVerdict(op string, results ...bool) *Stub {
	payloads := make([]string, len(results))
	for i, r := range results {
		payloads[i] = fmt.Sprintf(`{"result": %t, "reason": "scripted"}`, r)
	}
	return s.On(op, payloads...)
}

// Fail makes op return err.
func (s *Stub) Fail(op string, err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
	return s
}

// WithUsage sets the usage reported with every answer.
func (s *Stub) WithUsage(u Usage) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = u
	return s
}

// Query returns the next scripted answer for q.Operation.
func (s *Stub) Query(ctx context.Context, q Query) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)

	if err, ok := s.errs[q.Operation]; ok {
		return nil, &Error{Op: q.Operation, Model: "stub", Err: err}
	}
	queue := s.answers[q.Operation]
	if len(queue) == 0 {
		return nil, &Error{Op: q.Operation, Model: "stub", Err: fmt.Errorf("%w: no scripted answer", ErrMalformed)}
	}
	payload := queue[0]
	if len(queue) > 1 {
		s.answers[q.Operation] = queue[1:]
	}
	if !json.Valid([]byte(payload)) {
		return nil, &Error{Op: q.Operation, Model: "stub", Raw: payload, Err: ErrMalformed}
	}
	return &Answer{Payload: json.RawMessage(payload), Usage: s.usage, Model: "stub", Provider: "stub"}, nil
}

// Queries returns every query received, in order.
func (s *Stub) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Query, len(s.queries))
	copy(out, s.queries)
	return out
}

// Operations returns the operation of every query received, in order.
func (s *Stub) Operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]string, len(s.queries))
	for i, q := range s.queries {
		ops[i] = q.Operation
	}
	return ops
}

var _ Oracle = (*Stub)(nil)
