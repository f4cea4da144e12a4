package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/transport"
)

// Stats counts what happened during one script execution.
type Stats struct {
	Steps    int
	Received int
	Ignored  int
}

// Interpreter drives one script over one connection. It is not safe for
// concurrent use; the Runner creates one per method.
type Interpreter struct {
	Conn   transport.Conn
	Filter normalize.Filter
	Method string
	Mode   normalize.MatchMode

	// StepTimeout bounds the wait for an expected response. Zero waits forever.
	StepTimeout time.Duration
	// PauseTimeout bounds a waitForPause step. Zero waits forever.
	PauseTimeout time.Duration

	Hooks  domain.LifecycleHooks
	Logger *slog.Logger

	stats Stats
}

// Run executes every step in order and stops at the first failure, which
// is returned as a *domain.StepError.
func (i *Interpreter) Run(ctx context.Context, script *domain.Script) (Stats, error) {
	if i.Logger == nil {
		i.Logger = logging.NewNop()
	}
	i.stats = Stats{}

	for idx, step := range script.Steps {
		ev := &domain.StepEvent{
			EventBase: i.base(domain.EventStep),
			Index:     idx,
			Kind:      step.Kind(),
		}
		if b, ok := step.(domain.BasicMessage); ok {
			ev.Note = b.Note
		}
		if i.Hooks.OnStep != nil {
			i.Hooks.OnStep(ctx, ev)
		}

		var err error
		switch s := step.(type) {
		case domain.BasicMessage:
			err = i.basic(ctx, s)
		case domain.WaitForPause:
			err = i.waitForPause(ctx)
		default:
			err = fmt.Errorf("%w: %T", domain.ErrUnknownStep, step)
		}
		if err != nil {
			return i.stats, &domain.StepError{Method: i.Method, Index: idx, Kind: step.Kind(), Err: err}
		}
		i.stats.Steps++
	}
	return i.stats, nil
}

func (i *Interpreter) basic(ctx context.Context, step domain.BasicMessage) error {
	if step.SendRaw != "" {
		if err := i.Conn.SendRaw(ctx, []byte(step.SendRaw)); err != nil {
			return sendError(err)
		}
		i.sent(ctx, nil, step.SendRaw)
	}
	if step.Send != nil {
		if err := i.Conn.Send(ctx, step.Send); err != nil {
			return sendError(err)
		}
		i.sent(ctx, step.Send, "")
	}
	if !step.HasExpectation() {
		return nil
	}

	recvCtx, cancel := withTimeout(ctx, i.StepTimeout)
	defer cancel()

	for {
		msg, err := i.Conn.Receive(recvCtx)
		if err != nil {
			return receiveError(ctx, err, "waiting for a response", i.StepTimeout)
		}
		normalized, forward := i.receive(ctx, msg)
		if !forward {
			continue
		}
		if !normalize.Match(i.Mode, step.Expect, normalized) {
			return &domain.MismatchError{Expected: step.Expect, Actual: normalized}
		}
		return nil
	}
}

// waitForPause consumes raw messages until the server reports Paused.
// Nothing is normalized or compared here; every other packet is skipped.
func (i *Interpreter) waitForPause(ctx context.Context) error {
	waitCtx, cancel := withTimeout(ctx, i.PauseTimeout)
	defer cancel()

	for {
		msg, err := i.Conn.Receive(waitCtx)
		if err != nil {
			return receiveError(ctx, err, "waiting for pause", i.PauseTimeout)
		}
		i.stats.Received++
		i.observe(ctx, domain.TagServer, msg)
		if msg.IsState(domain.StatePaused) {
			return nil
		}
	}
}

// receive normalizes msg, records it, and reports whether it takes part in
// matching.
func (i *Interpreter) receive(ctx context.Context, msg domain.Message) (domain.Message, bool) {
	i.stats.Received++
	normalized, forward := i.Filter.Normalize(msg)

	tag := domain.TagServer
	if !forward {
		tag = domain.TagIgnored
		i.stats.Ignored++
	}
	i.observe(ctx, tag, normalized)
	return normalized, forward
}

func (i *Interpreter) observe(ctx context.Context, tag string, msg domain.Message) {
	i.Logger.Debug("received", "tag", tag, "method", i.Method, "msg", msg.String())
	if i.Hooks.OnReceive != nil {
		i.Hooks.OnReceive(ctx, &domain.MessageEvent{
			EventBase: i.base(domain.EventReceive),
			Tag:       tag,
			Message:   msg,
		})
	}
}

func (i *Interpreter) sent(ctx context.Context, msg domain.Message, raw string) {
	if i.Hooks.OnSend != nil {
		i.Hooks.OnSend(ctx, &domain.MessageEvent{
			EventBase: i.base(domain.EventSend),
			Message:   msg,
			Raw:       raw,
		})
	}
}

func (i *Interpreter) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Method: i.Method}
}

func withTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return parent, func() {}
}

func sendError(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w while sending", domain.ErrConnectionClosed)
	}
	return fmt.Errorf("send failed: %w", err)
}

// receiveError classifies a Receive failure. parent is the caller's context,
// so a cancelled run is reported as such rather than as a timeout.
func receiveError(parent context.Context, err error, while string, timeout time.Duration) error {
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w while %s", domain.ErrConnectionClosed, while)
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s while %s", domain.ErrTimeout, timeout, while)
	}
	return fmt.Errorf("receive failed while %s: %w", while, err)
}
