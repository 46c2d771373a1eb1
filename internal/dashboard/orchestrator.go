// Package dashboard turns a submission into a rendered fact-check result:
// the entry view produces an address (and possibly a pending image), the
// orchestrator resolves it against the backend.
package dashboard

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/api"
	"github.com/ppiankov/verdict/internal/handoff"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/normalize"
)

// DefaultTimeout bounds a single fact-check request
const DefaultTimeout = 60 * time.Second

const (
	textFailureMessage  = "An unexpected error occurred during text analysis."
	imageFailureMessage = "An unexpected error occurred during image analysis."
)

// Phase is the lifecycle position of the results view
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseSuccess   Phase = "success"
	PhaseFailed    Phase = "failed"
)

// State is a snapshot of the results view
type State struct {
	Phase           Phase
	Token           uint64
	Kind            model.SubmissionKind
	Claim           string // Text claim, or the image file name
	Result          *model.NormalizedResult
	DataFormatError bool
	Error           string // User-facing failure message
}

// Checker submits claims to the fact-checking service. *api.Client implements it.
type Checker interface {
	SubmitTextClaim(ctx context.Context, claim string) (model.RawResult, error)
	SubmitImageClaim(ctx context.Context, img *model.ImagePayload) (model.RawResult, error)
}

// Activation tracks one call to Activate
type Activation struct {
	Token      uint64
	Dispatched bool
	done       chan struct{}
}

// Done is closed when the activation has settled or been superseded
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the activation settles or ctx ends
func (a *Activation) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Orchestrator drives the results view.
//
// Every Activate takes a new token; a request that settles after a newer
// activation leaves the state alone. A pending image is dispatched once: while
// its request runs, later activations skip it, and its settlement clears the
// store only if nothing newer was set.
type Orchestrator struct {
	checker Checker
	store   *handoff.Store
	timeout time.Duration
	logger  *zap.Logger

	// notifyMu serialises state changes with their listener calls so
	// listeners observe states in order
	notifyMu  sync.Mutex
	mu        sync.Mutex
	token     uint64
	state     State
	listeners []func(State)
	inflight  map[*model.ImagePayload]struct{}
}

// NewOrchestrator creates an idle orchestrator.
// A non-positive timeout means DefaultTimeout.
func NewOrchestrator(checker Checker, store *handoff.Store, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		checker:  checker,
		store:    store,
		timeout:  timeout,
		logger:   logger,
		state:    State{Phase: PhaseIdle},
		inflight: make(map[*model.ImagePayload]struct{}),
	}
}

// State returns the current snapshot
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn to be called after every state change.
// fn must not call Activate.
func (o *Orchestrator) Subscribe(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Activate resolves address. A pending image wins over a claim in the
// address unless that image is already being checked; with neither the view
// goes idle and nothing is dispatched.
func (o *Orchestrator) Activate(ctx context.Context, address string) *Activation {
	claim := claimFromAddress(address)

	o.notifyMu.Lock()
	o.mu.Lock()
	img, hasImage := o.store.Read()
	if _, running := o.inflight[img]; hasImage && running {
		hasImage = false
	}
	if hasImage {
		o.inflight[img] = struct{}{}
	}
	o.token++
	act := &Activation{Token: o.token, done: make(chan struct{})}

	var sub model.PendingSubmission
	switch {
	case hasImage:
		sub = model.PendingSubmission{Kind: model.SubmissionImage, Image: img}
		o.state = State{Phase: PhaseResolving, Token: act.Token, Kind: sub.Kind, Claim: img.Name}
	case claim != "":
		sub = model.PendingSubmission{Kind: model.SubmissionText, Claim: claim}
		o.state = State{Phase: PhaseResolving, Token: act.Token, Kind: sub.Kind, Claim: claim}
	default:
		o.state = State{Phase: PhaseIdle, Token: act.Token}
	}
	act.Dispatched = sub.Kind != ""
	o.publishLocked()

	if !act.Dispatched {
		close(act.done)
		o.logger.Debug("nothing to check", zap.Uint64("token", act.Token))
		return act
	}

	o.logger.Debug("dispatching",
		zap.Uint64("token", act.Token),
		zap.String("kind", string(sub.Kind)))
	go o.dispatch(ctx, act, sub)
	return act
}

func (o *Orchestrator) dispatch(ctx context.Context, act *Activation, sub model.PendingSubmission) {
	defer close(act.done)

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		raw model.RawResult
		err error
	)
	switch sub.Kind {
	case model.SubmissionImage:
		raw, err = o.checker.SubmitImageClaim(reqCtx, sub.Image)
		o.releaseImage(sub.Image)
	default:
		raw, err = o.checker.SubmitTextClaim(reqCtx, sub.Claim)
	}
	if err != nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		err = &api.NetworkError{Op: "fact check", Err: context.DeadlineExceeded}
	}

	o.settle(act.Token, sub.Kind, raw, err)
}

// releaseImage ends img's request. The store is cleared unless a newer
// image has replaced it.
func (o *Orchestrator) releaseImage(img *model.ImagePayload) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store.ClearIf(img)
	delete(o.inflight, img)
}

func (o *Orchestrator) settle(token uint64, kind model.SubmissionKind, raw model.RawResult, err error) {
	o.notifyMu.Lock()
	o.mu.Lock()

	log := o.logger.With(zap.Uint64("token", token), zap.String("kind", string(kind)))
	if token != o.token {
		current := o.token
		o.mu.Unlock()
		o.notifyMu.Unlock()
		log.Debug("discarding stale result", zap.Uint64("current", current))
		return
	}

	if err != nil {
		o.state.Phase = PhaseFailed
		o.state.Result = nil
		o.state.Error = FailureMessage(kind, err)
		log.Warn("fact check failed", zap.String("error_kind", api.ErrorKind(err)), zap.Error(err))
	} else {
		res, badFormat := normalize.Normalize(raw)
		o.state.Phase = PhaseSuccess
		o.state.Result = &res
		o.state.DataFormatError = badFormat
		log.Debug("fact check settled",
			zap.Int("claims", len(res.Claims)),
			zap.Bool("data_format_error", badFormat))
	}

	o.publishLocked()
}

// publishLocked notifies listeners. Called with both locks held; releases them.
func (o *Orchestrator) publishLocked() {
	snapshot := o.state
	listeners := slices.Clone(o.listeners)
	o.mu.Unlock()
	defer o.notifyMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// FailureMessage is the single line shown for a failed check: the server's
// own explanation when it gave one, otherwise a generic message per kind.
func FailureMessage(kind model.SubmissionKind, err error) string {
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	if kind == model.SubmissionImage {
		return imageFailureMessage
	}
	return textFailureMessage
}

func claimFromAddress(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("claim"))
}

// Report converts a settled state into a report stamped with checkedAt.
// It returns nil while idle or resolving.
func (s State) Report(checkedAt time.Time) *model.Report {
	if s.Phase != PhaseSuccess && s.Phase != PhaseFailed {
		return nil
	}
	return &model.Report{
		Kind:            s.Kind,
		Claim:           s.Claim,
		CheckedAt:       checkedAt,
		Result:          s.Result,
		DataFormatError: s.DataFormatError,
		Error:           s.Error,
	}
}
