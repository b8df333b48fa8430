package streamjson

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepankarm/streamjson/pkg/internal/document"
	"github.com/deepankarm/streamjson/pkg/internal/errs"
	"github.com/deepankarm/streamjson/pkg/internal/jsontoken"
	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

// Stream reconstructs and validates one logical JSON document. One
// instance serves one stream at a time; concurrent LLM responses need
// their own instances, or an Initialize call between documents. A mutex
// guards the public surface, but all processing is synchronous: between
// fragments everything completes before control returns to the caller.
type Stream struct {
	mu  sync.Mutex
	cfg config
	id  string
	bus *EventBus

	state      State
	lexer      *jsontoken.Lexer
	builder    *document.Builder
	tree       *schema.Tree
	tokensSeen int

	latest     ValidationErrors // findings of the most recent pass
	history    ValidationErrors // accumulated, ordered, first occurrence kept
	seen       map[string]struct{}
	incomplete [][]string
}

// New creates a stream in the idle state. Call Initialize before feeding.
func New(opts ...Option) *Stream {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	s := &Stream{
		cfg:     cfg,
		id:      uuid.NewString(),
		bus:     NewEventBus(),
		state:   StateIdle,
		lexer:   jsontoken.New(cfg.strict),
		builder: document.New(),
		seen:    make(map[string]struct{}),
	}
	if cfg.logger != nil {
		logEvents(s.bus, cfg.logger)
	}
	return s
}

// ID returns the stream's identifier, stamped on every event.
func (s *Stream) ID() string {
	return s.id
}

// Events returns the stream's event bus for external observability
// collaborators to subscribe to.
func (s *Stream) Events() *EventBus {
	return s.bus
}

// Initialize compiles the schema tree and moves the stream to the
// streaming state. Invoking it again from any state performs a full
// reset, discarding the prior partial document, errors and lexer buffer.
// def may be nil, in which case no validation runs.
func (s *Stream) Initialize(def schema.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lexer.Reset()
	s.builder.Reset()
	s.tree = schema.Compile(def)
	s.tokensSeen = 0
	s.latest = nil
	s.history = nil
	s.seen = make(map[string]struct{})
	s.incomplete = nil
	s.state = StateStreaming

	s.publish(EventStreamInitialized)
}

// Feed lexes one text fragment and applies every token it completes.
// Fragment boundaries are unconstrained; partial literals are carried
// over to the next call. The returned result reflects the state after
// the whole fragment.
func (s *Stream) Feed(fragment string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return nil, &errs.StateError{Op: "feed fragment", State: s.state.String()}
	}
	for _, t := range s.lexer.Feed(fragment) {
		if s.state != StateStreaming {
			// The outermost container balanced mid-fragment; anything
			// after it is trailing content. The finished document is
			// still handed back for inspection.
			return s.result(), &errs.StateError{Op: "process token", State: s.state.String()}
		}
		if err := s.process(t); err != nil {
			return nil, err
		}
	}
	return s.result(), nil
}

// FeedAll consumes fragments from an asynchronous source until the
// channel closes or ctx is cancelled, then completes the stream. On
// cancellation the current partial document and accumulated errors are
// returned as the best-effort result, with no state corruption.
func (s *Stream) FeedAll(ctx context.Context, fragments <-chan string) (*Result, error) {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			res := s.result()
			s.mu.Unlock()
			return res, ctx.Err()
		case fragment, ok := <-fragments:
			if !ok {
				return s.Complete()
			}
			if res, err := s.Feed(fragment); err != nil {
				return res, err
			}
		}
	}
}

// Process applies one structural token. Tokens normally come from Feed's
// internal lexer; this entry point exists for advisory recovery tokens
// and for callers with their own tokenizer. Calling it outside the
// streaming state is an InvalidState error.
func (s *Stream) Process(t Token) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return nil, &errs.StateError{Op: "process token", State: s.state.String()}
	}
	if err := s.process(t); err != nil {
		return nil, err
	}
	return s.result(), nil
}

// Complete flushes any buffered literal, runs the authoritative
// validation pass against the unrelaxed schema, and moves the stream to
// the completed state. Completing an already completed stream returns
// the final result again.
func (s *Stream) Complete() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return nil, &errs.StateError{Op: "complete stream", State: s.state.String()}
	case StateCompleted:
		return s.result(), nil
	}
	for _, t := range s.lexer.Flush() {
		if s.state != StateStreaming {
			break
		}
		if err := s.process(t); err != nil {
			return nil, err
		}
	}
	if s.state != StateCompleted {
		s.finalize()
	}
	return s.result(), nil
}

// Suggest proposes corrective tokens for one validation error. Missing
// required fields get a property/value pair holding a type-appropriate
// default; wrong-type values get a best-effort primitive conversion. An
// empty slice signals that no deterministic fix exists; that is a
// result, not a failure. Suggestions are never applied automatically.
func (s *Stream) Suggest(e ValidationError) []Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	toks := s.suggest(e)
	ev := s.event(EventRecoveryAttempted)
	ev.Suggested = len(toks)
	s.bus.Publish(ev)
	return toks
}

// ApplySuggestions feeds advisory tokens back into the document and
// re-runs validation. It works in both the streaming and completed
// states, since most recoverable errors only become authoritative once
// the stream completes. The corrected findings are in the returned
// result; earlier findings stay in History.
func (s *Stream) ApplySuggestions(tokens []Token) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil, &errs.StateError{Op: "apply suggestions", State: s.state.String()}
	}
	for _, t := range tokens {
		switch t.Kind {
		case jsontoken.Property:
			// The paired value token carries the full target path.
		case jsontoken.Value:
			if t.Path == nil {
				return nil, fmt.Errorf("advisory value token without a target path")
			}
			s.builder.SetAt(t.Path, t.Value)
		default:
			return nil, fmt.Errorf("advisory token kind %s not supported", t.Kind)
		}
	}
	if s.state == StateCompleted {
		s.latest = s.validateFinal()
	} else if s.cfg.progressive {
		s.latest = s.validateProgressive()
	}
	s.accumulate(s.latest)
	return s.result(), nil
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns an independent copy of the partial document.
func (s *Stream) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Snapshot()
}

// History returns every distinct validation error seen so far, in first
// occurrence order. Recovery appends corrected findings; it never erases
// history.
func (s *Stream) History() ValidationErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(ValidationErrors(nil), s.history...)
}

// process applies one token with the lock held.
func (s *Stream) process(t Token) error {
	if t.Kind == jsontoken.ObjectStart || t.Kind == jsontoken.ArrayStart {
		if s.builder.Depth() >= s.cfg.maxDepth {
			return fmt.Errorf("document nesting exceeds %d levels", s.cfg.maxDepth)
		}
	}

	if !t.Valid && t.Kind == jsontoken.Value {
		loc := s.builder.NextValueLoc()
		if t.Malformed {
			s.accumulate(ValidationErrors{{
				Loc:     loc,
				Message: "unresolvable literal in source text",
				Type:    errs.ErrorTypeMalformed,
			}})
		} else {
			s.incomplete = append(s.incomplete, loc)
		}
	}

	if t.Path != nil {
		if t.Kind == jsontoken.Value {
			s.builder.SetAt(t.Path, t.Value)
		}
	} else if err := s.builder.Apply(t); err != nil {
		s.accumulate(ValidationErrors{{
			Loc:     s.builder.Path(),
			Message: err.Error(),
			Type:    errs.ErrorTypeMalformed,
		}})
	}
	s.tokensSeen++

	if !s.builder.Balanced() && s.cfg.progressive && s.tree != nil {
		s.latest = s.validateProgressive()
		s.accumulate(s.latest)
	}

	// Completion is always the last event of the stream, after this
	// token's own notification.
	s.publish(EventTokenProcessed)
	if s.builder.Balanced() {
		s.finalize()
	}
	return nil
}

// finalize runs the authoritative validation pass and transitions to the
// completed state.
func (s *Stream) finalize() {
	s.latest = s.validateFinal()
	s.accumulate(s.latest)
	s.state = StateCompleted
	s.publish(EventStreamCompleted)
}

func (s *Stream) result() *Result {
	var inc [][]string
	if len(s.incomplete) > 0 {
		inc = make([][]string, len(s.incomplete))
		for i, p := range s.incomplete {
			inc[i] = append([]string(nil), p...)
		}
	}
	return &Result{
		Snapshot:        s.builder.Snapshot(),
		Complete:        s.state == StateCompleted,
		Errors:          append(ValidationErrors(nil), s.latest...),
		Path:            s.builder.Path(),
		TokensSeen:      s.tokensSeen,
		IncompletePaths: inc,
	}
}

// accumulate records findings into the history, keeping the first
// occurrence of each distinct error and preserving order.
func (s *Stream) accumulate(found ValidationErrors) {
	for _, e := range found {
		key := errs.JoinPath(e.Loc) + "\x00" + string(e.Type) + "\x00" + e.Message
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.history = append(s.history, e)
	}
}

func (s *Stream) event(typ EventType) Event {
	return Event{
		Type:       typ,
		StreamID:   s.id,
		Time:       time.Now(),
		Path:       s.builder.Path(),
		TokensSeen: s.tokensSeen,
		ErrorCount: len(s.history),
	}
}

func (s *Stream) publish(typ EventType) {
	s.bus.Publish(s.event(typ))
}
