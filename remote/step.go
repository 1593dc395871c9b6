package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/logger"
	"github.com/kbukum/traverse/observability"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Step owns a sub-traversal and the channel it is submitted through. The
// sub-traversal is submitted once, on first pull, and its results are
// emitted in the order the channel returns them.
type Step struct {
	traversal.Base
	sub  *traversal.Traversal
	conn Connection

	it traversal.Iterator[*traverser.Traverser]
}

// NewStep creates a delegating step.
func NewStep(sub *traversal.Traversal, conn Connection) *Step {
	s := &Step{sub: sub, conn: conn}
	s.Init(s)
	return s
}

func (s *Step) Name() string         { return "remote" }
func (s *Step) Kind() traversal.Kind { return traversal.KindDelegating }

// Sub returns the delegated traversal.
func (s *Step) Sub() *traversal.Traversal { return s.sub }

// Connection returns the channel.
func (s *Step) Connection() Connection { return s.conn }

func (s *Step) Process(ctx context.Context) (*traverser.Traverser, error) {
	if s.it == nil {
		if err := s.submit(ctx); err != nil {
			return nil, err
		}
	}
	tr, ok, err := s.it.Next(ctx)
	if err != nil {
		s.fail(ctx, "stream", err)
		return nil, s.wrap(err)
	}
	if !ok {
		return nil, errors.ErrExhausted
	}
	tr = tr.Clone()
	tr.Attach(s.SideEffects())
	return tr, nil
}

// submit hands the sub-traversal to the channel. The sub-traversal takes
// a copy of the enclosing traversal's strategies here, at first pull.
func (s *Step) submit(ctx context.Context) error {
	if t := s.Traversal(); t != nil && !s.sub.IsLocked() {
		if err := s.sub.SetStrategies(t.Strategies().Clone()); err != nil {
			return err
		}
	}
	id := uuid.NewString()
	log := s.logger().WithFields(logger.Fields(logger.FieldChannel, s.conn.Name(), logger.FieldSubmission, id))
	log.Debug("submitting traversal", logger.Fields(logger.FieldStepCount, s.sub.Len()))

	start := time.Now()
	sctx, span := observability.StartSpan(ctx, observability.SpanRemote)
	observability.SetSpanAttribute(sctx, observability.AttrChannel, s.conn.Name())
	it, err := s.conn.Submit(sctx, s.sub)
	observability.EndSpan(span, err)
	s.metrics().RecordRemoteSubmit(ctx, s.conn.Name(), observability.Status(err), time.Since(start))
	if err != nil {
		s.fail(ctx, "submit", err)
		return s.wrap(err)
	}
	s.it = it
	return nil
}

// wrap reports err as a channel failure unless the channel already did.
func (s *Step) wrap(err error) error {
	if errors.IsCode(err, errors.ErrCodeChannelFailure) {
		return err
	}
	return errors.ChannelFailure(s.conn.Name(), err)
}

func (s *Step) fail(ctx context.Context, op string, err error) {
	s.logger().Error("remote channel failed", logger.Fields(
		logger.FieldChannel, s.conn.Name(),
		logger.FieldOperation, op,
		logger.FieldError, err.Error(),
	))
	s.metrics().RecordError(ctx, string(errors.ErrCodeChannelFailure), "remote")
}

func (s *Step) logger() *logger.Logger {
	l := logger.Get("remote")
	if t := s.Traversal(); t != nil {
		l = l.WithTraversal(t.ID())
	}
	return l
}

func (s *Step) metrics() *observability.Metrics {
	if t := s.Traversal(); t != nil {
		return t.Metrics()
	}
	return nil
}

// Reset closes the open stream so the next pull submits again.
func (s *Step) Reset() { _ = s.Close() }

// Close closes the open stream, if any.
func (s *Step) Close() error {
	if s.it == nil {
		return nil
	}
	err := s.it.Close()
	s.it = nil
	return err
}

func (s *Step) Requirements() traverser.Requirements {
	return s.sub.Requirements()
}

func (s *Step) Clone() traversal.Step {
	c := *s
	c.Base.Fork(&c)
	c.sub = s.sub.Clone()
	c.it = nil
	return &c
}

// Hash covers the sub-traversal only. The channel is how the step runs, not
// what it computes.
func (s *Step) Hash() uint64 {
	return s.Hasher().Uint64(s.sub.Hash()).Sum()
}

func (s *Step) String() string {
	return fmt.Sprintf("remote(%s, %s)", s.conn.Name(), s.sub)
}
