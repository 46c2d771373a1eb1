package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/verdict/internal/api"
	"github.com/ppiankov/verdict/internal/handoff"
	"github.com/ppiankov/verdict/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChecker struct {
	mu         sync.Mutex
	textCalls  []string
	imageCalls []*model.ImagePayload

	text  func(ctx context.Context, claim string) (model.RawResult, error)
	image func(ctx context.Context, img *model.ImagePayload) (model.RawResult, error)
}

func (f *fakeChecker) SubmitTextClaim(ctx context.Context, claim string) (model.RawResult, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, claim)
	f.mu.Unlock()
	if f.text == nil {
		return resultWithSummary(claim), nil
	}
	return f.text(ctx, claim)
}

func (f *fakeChecker) SubmitImageClaim(ctx context.Context, img *model.ImagePayload) (model.RawResult, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, img)
	f.mu.Unlock()
	if f.image == nil {
		return resultWithSummary("image:" + img.Name), nil
	}
	return f.image(ctx, img)
}

func (f *fakeChecker) calls() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.textCalls...), len(f.imageCalls)
}

func resultWithSummary(text string) model.RawResult {
	return model.RawResult{
		"summary": map[string]any{"text": text, "claimReviewCount": float64(1)},
		"data": map[string]any{
			"factCheckResults": []any{
				map[string]any{
					"text":        text,
					"claimReview": []any{map[string]any{"textualRating": "FALSE"}},
				},
			},
		},
	}
}

func pngPayload() *model.ImagePayload {
	return &model.ImagePayload{ID: "img-1", Name: "photo.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nxx")}
}

func waitSettled(t *testing.T, act *Activation) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, act.Wait(ctx))
}

func TestActivate_TextClaim(t *testing.T) {
	checker := &fakeChecker{}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

	act := o.Activate(context.Background(), "/dashboard?claim=moon%20landing%20hoax")
	assert.True(t, act.Dispatched)
	waitSettled(t, act)

	texts, images := checker.calls()
	assert.Equal(t, []string{"moon landing hoax"}, texts)
	assert.Zero(t, images)

	st := o.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, model.SubmissionText, st.Kind)
	assert.Equal(t, "moon landing hoax", st.Claim)
	require.NotNil(t, st.Result)
	assert.Equal(t, "moon landing hoax", st.Result.SummaryText)
	assert.False(t, st.DataFormatError)
	assert.Empty(t, st.Error)
}

func TestActivate_ClaimIsTrimmed(t *testing.T) {
	checker := &fakeChecker{}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

	waitSettled(t, o.Activate(context.Background(), ClaimAddress("  vaccines cause autism ")))

	texts, _ := checker.calls()
	assert.Equal(t, []string{"vaccines cause autism"}, texts)
}

func TestActivate_ImageTakesPriority(t *testing.T) {
	checker := &fakeChecker{}
	store := handoff.NewStore()
	store.Set(pngPayload())
	o := NewOrchestrator(checker, store, time.Second, nil)

	act := o.Activate(context.Background(), "/dashboard?claim=also%20text")
	waitSettled(t, act)

	texts, images := checker.calls()
	assert.Empty(t, texts, "text claim must not be dispatched alongside an image")
	assert.Equal(t, 1, images)
	assert.False(t, store.Pending())

	st := o.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, model.SubmissionImage, st.Kind)
	assert.Equal(t, "photo.png", st.Claim)
}

func TestActivate_StoreClearedOnImageFailure(t *testing.T) {
	checker := &fakeChecker{
		image: func(ctx context.Context, img *model.ImagePayload) (model.RawResult, error) {
			return nil, &api.NetworkError{Op: "POST /fact-check-image", Err: errors.New("connection refused")}
		},
	}
	store := handoff.NewStore()
	store.Set(pngPayload())
	o := NewOrchestrator(checker, store, time.Second, nil)

	waitSettled(t, o.Activate(context.Background(), "/dashboard"))

	assert.False(t, store.Pending())
	st := o.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, imageFailureMessage, st.Error)
	assert.Nil(t, st.Result)
}

func TestActivate_StoreClearedOnTimeout(t *testing.T) {
	checker := &fakeChecker{
		image: func(ctx context.Context, img *model.ImagePayload) (model.RawResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	store := handoff.NewStore()
	store.Set(pngPayload())
	o := NewOrchestrator(checker, store, 20*time.Millisecond, nil)

	waitSettled(t, o.Activate(context.Background(), "/dashboard"))

	assert.False(t, store.Pending())
	st := o.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, imageFailureMessage, st.Error)
}

func TestActivate_ServerMessageShown(t *testing.T) {
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			return nil, &api.ServiceError{StatusCode: 500, Message: "Quota exceeded"}
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

	waitSettled(t, o.Activate(context.Background(), "/dashboard?claim=x"))

	st := o.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "Quota exceeded", st.Error)
}

func TestActivate_NetworkErrorFallbackMessage(t *testing.T) {
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			return nil, &api.NetworkError{Op: "POST /fact-check", Err: errors.New("no route to host")}
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

	waitSettled(t, o.Activate(context.Background(), "/dashboard?claim=x"))
	assert.Equal(t, textFailureMessage, o.State().Error)
}

func TestActivate_NothingToCheck(t *testing.T) {
	for _, address := range []string{"/dashboard", "/dashboard?claim=", "/dashboard?claim=%20%20", "::bad"} {
		t.Run(address, func(t *testing.T) {
			checker := &fakeChecker{}
			o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

			act := o.Activate(context.Background(), address)
			assert.False(t, act.Dispatched)
			select {
			case <-act.Done():
			default:
				t.Fatal("idle activation must settle immediately")
			}

			texts, images := checker.calls()
			assert.Empty(t, texts)
			assert.Zero(t, images)
			assert.Equal(t, PhaseIdle, o.State().Phase)
		})
	}
}

func TestActivate_DataFormatError(t *testing.T) {
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			return model.RawResult{"data": map[string]any{"factCheckResults": "oops"}}, nil
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)

	waitSettled(t, o.Activate(context.Background(), "/dashboard?claim=x"))

	st := o.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.True(t, st.DataFormatError)
	require.NotNil(t, st.Result)
	assert.Empty(t, st.Result.Claims)
}

func TestActivate_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			if claim == "slow" {
				<-release
			}
			return resultWithSummary(claim), nil
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), 2*time.Second, nil)

	first := o.Activate(context.Background(), "/dashboard?claim=slow")
	second := o.Activate(context.Background(), "/dashboard?claim=fast")
	assert.Greater(t, second.Token, first.Token)

	waitSettled(t, second)
	assert.Equal(t, "fast", o.State().Result.SummaryText)

	close(release)
	waitSettled(t, first)

	st := o.State()
	assert.Equal(t, second.Token, st.Token)
	assert.Equal(t, "fast", st.Claim)
	assert.Equal(t, "fast", st.Result.SummaryText)
}

// blockingImages holds image requests for the given payload id until release is closed
func blockingImages(id string, release <-chan struct{}) *fakeChecker {
	return &fakeChecker{
		image: func(ctx context.Context, img *model.ImagePayload) (model.RawResult, error) {
			if img.ID == id {
				<-release
			}
			return resultWithSummary("image:" + img.Name), nil
		},
	}
}

func (f *fakeChecker) imageIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.imageCalls))
	for _, img := range f.imageCalls {
		ids = append(ids, img.ID)
	}
	return ids
}

func TestActivate_InFlightImageNotResent(t *testing.T) {
	release := make(chan struct{})
	checker := blockingImages("img-a", release)
	store := handoff.NewStore()
	store.Set(&model.ImagePayload{ID: "img-a", Name: "a.png"})
	o := NewOrchestrator(checker, store, 2*time.Second, nil)

	first := o.Activate(context.Background(), "/dashboard")
	second := o.Activate(context.Background(), "/dashboard?claim=moon")
	require.True(t, second.Dispatched)
	waitSettled(t, second)

	texts, _ := checker.calls()
	assert.Equal(t, []string{"moon"}, texts, "the claim is checked while the image is still running")
	assert.Equal(t, []string{"img-a"}, checker.imageIDs())

	close(release)
	waitSettled(t, first)

	assert.False(t, store.Pending(), "store empty once the image settles")
	st := o.State()
	assert.Equal(t, second.Token, st.Token)
	assert.Equal(t, model.SubmissionText, st.Kind)
	assert.Equal(t, "moon", st.Result.SummaryText)
}

func TestActivate_StaleImageKeepsNewerImage(t *testing.T) {
	release := make(chan struct{})
	checker := blockingImages("img-a", release)
	store := handoff.NewStore()
	store.Set(&model.ImagePayload{ID: "img-a", Name: "a.png"})
	o := NewOrchestrator(checker, store, 2*time.Second, nil)

	first := o.Activate(context.Background(), "/dashboard")
	newer := &model.ImagePayload{ID: "img-b", Name: "b.png"}
	store.Set(newer)

	close(release)
	waitSettled(t, first)

	got, ok := store.Read()
	require.True(t, ok, "settling the older image must not drop the newer one")
	assert.Same(t, newer, got)

	waitSettled(t, o.Activate(context.Background(), "/dashboard"))
	assert.Equal(t, []string{"img-a", "img-b"}, checker.imageIDs())
	assert.False(t, store.Pending())
	assert.Equal(t, "b.png", o.State().Claim)
}

func TestActivate_IdleSupersedesInFlight(t *testing.T) {
	release := make(chan struct{})
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			<-release
			return resultWithSummary(claim), nil
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), 2*time.Second, nil)

	first := o.Activate(context.Background(), "/dashboard?claim=x")
	o.Activate(context.Background(), "/dashboard")
	close(release)
	waitSettled(t, first)

	assert.Equal(t, PhaseIdle, o.State().Phase)
	assert.Nil(t, o.State().Result)
}

func TestSubscribe_ObservesTransitions(t *testing.T) {
	o := NewOrchestrator(&fakeChecker{}, handoff.NewStore(), time.Second, nil)

	var mu sync.Mutex
	var phases []Phase
	o.Subscribe(func(s State) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	waitSettled(t, o.Activate(context.Background(), "/dashboard?claim=x"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseResolving, PhaseSuccess}, phases)
}

func TestActivation_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	checker := &fakeChecker{
		text: func(ctx context.Context, claim string) (model.RawResult, error) {
			<-release
			return nil, errors.New("late")
		},
	}
	o := NewOrchestrator(checker, handoff.NewStore(), time.Second, nil)
	act := o.Activate(context.Background(), "/dashboard?claim=x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, act.Wait(ctx), context.Canceled)

	close(release)
	waitSettled(t, act)
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Bad image", FailureMessage(model.SubmissionImage, &api.ServiceError{StatusCode: 400, Message: "Bad image"}))
	assert.Equal(t, imageFailureMessage, FailureMessage(model.SubmissionImage, &api.ServiceError{StatusCode: 502}))
	assert.Equal(t, textFailureMessage, FailureMessage(model.SubmissionText, errors.New("boom")))
}

func TestState_Report(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Nil(t, State{Phase: PhaseIdle}.Report(at))
	assert.Nil(t, State{Phase: PhaseResolving, Claim: "x"}.Report(at))

	o := NewOrchestrator(&fakeChecker{}, handoff.NewStore(), time.Second, nil)
	waitSettled(t, o.Activate(context.Background(), ClaimAddress("moon landing hoax")))

	r := o.State().Report(at)
	require.NotNil(t, r)
	assert.Equal(t, model.SubmissionText, r.Kind)
	assert.Equal(t, "moon landing hoax", r.Claim)
	assert.Equal(t, at, r.CheckedAt)
	assert.False(t, r.Failed())
	require.NotNil(t, r.Result)

	failed := State{Phase: PhaseFailed, Kind: model.SubmissionImage, Claim: "a.png", Error: imageFailureMessage}.Report(at)
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Result)
}
