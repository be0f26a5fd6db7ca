package volition

import (
	"context"
	"log/slog"
)

// WishToAction maps an externally accepted wish to the action dispatched
// into the execution core.
//
// Runs synchronously on the goroutine that called Accept, before any
// scheduler hop. It must therefore be cheap and must not touch mutable
// feature state. Panics here are NOT recovered by the feature: the
// mapping is caller-context code and a panic surfaces at the Accept call
// site like any other caller bug.
type WishToAction[W, A any] func(wish W) A

// Actor performs the side effects of an action and emits the resulting
// effects on the returned channel.
//
// Invoked on the feature context with a snapshot of the current state.
// The actor owns the returned channel and must close it when no more
// effects will be produced. Returning nil means "no effects". Long-lived
// actors must honor ctx: it is cancelled when the feature is disposed or
// fails, and a well-behaved actor stops producing and closes its channel
// promptly.
//
// Effects already buffered in a closed channel at return are folded
// without a goroutine handoff, so a fully synchronous actor (see Just)
// completes its folds before Accept returns when no schedulers are
// configured.
type Actor[S, A, E any] func(ctx context.Context, state S, action A) <-chan E

// Reducer folds one effect into the state, returning the new state.
//
// Must be pure and total: no side effects, a result for every
// (state, effect) pair. Runs on the feature context, strictly one
// invocation at a time, in effect arrival order.
type Reducer[S, E any] func(state S, effect E) S

// Bootstrapper produces the initial actions of a feature.
//
// Invoked exactly once, on the feature context, when the feature is
// created. Each action it yields is dispatched as if it had been
// accepted externally and starts its own chain. Returning nil means
// "no initial actions". The sequence is cancelled via ctx on disposal.
type Bootstrapper[A any] func(ctx context.Context) <-chan A

// PostProcessor inspects every completed fold and may dispatch a
// follow-up action.
//
// Invoked on the feature context after the new state has been published.
// Returning (action, true) dispatches the follow-up; it is queued behind
// the current unit of work, never executed nested, and inherits the
// triggering dispatch's chain token. Unbounded self-feeding loops are a
// post-processor defect; see WithMaxChainDepth for an opt-in guard.
type PostProcessor[A, E, S any] func(action A, effect E, state S) (A, bool)

// NewsPublisher derives an outbound notification from a completed fold.
//
// Invoked on the feature context after the post-processor. Returning
// (news, true) publishes the news item to the news channel exactly once.
// News is fire-and-forget: no replay, and items published while nobody
// subscribes are dropped.
type NewsPublisher[A, E, S, N any] func(action A, effect E, state S) (N, bool)

// Config wires the collaborators of a feature.
//
// WishToAction, Actor and Reducer are required; everything else is an
// optional capability slot left nil (or zero) when unused. New validates
// the configuration and refuses to construct a half-wired feature.
type Config[W, A, E, S, N any] struct {
	// Name identifies the feature in logs and failure errors. Optional.
	Name string

	// InitialState seeds the state channel before any fold. The zero
	// value is a valid initial state.
	InitialState S

	// WishToAction maps accepted wishes to actions. Required.
	WishToAction WishToAction[W, A]

	// Bootstrapper produces initial actions at creation time. Optional.
	Bootstrapper Bootstrapper[A]

	// Actor executes actions and emits effects. Required.
	Actor Actor[S, A, E]

	// Reducer folds effects into state. Required.
	Reducer Reducer[S, E]

	// PostProcessor dispatches follow-up actions after folds. Optional.
	PostProcessor PostProcessor[A, E, S]

	// NewsPublisher derives news items from folds. Optional.
	NewsPublisher NewsPublisher[A, E, S, N]

	// FeatureScheduler is the logical context for the execution core:
	// bootstrapper, actor, reducer, post-processor and news publisher
	// all run here. Nil means no hop - core work runs inline on the
	// triggering goroutine, serialized by the engine.
	FeatureScheduler Scheduler

	// ObservationScheduler is the logical context subscriber callbacks
	// are delivered on. Nil means no hop - delivery runs inline on the
	// publishing (feature) context. Background views bypass this
	// scheduler entirely.
	ObservationScheduler Scheduler
}

// options collects ambient engine knobs shared by all feature instances.
type options struct {
	logger        *slog.Logger
	tokens        TokenSource
	onFailure     func(error)
	maxChainDepth int
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
		tokens: UUIDSource{},
	}
}

// Option configures ambient engine behavior (logging, token minting,
// failure reporting). Collaborator wiring lives in Config.
type Option func(*options)

// WithLogger sets the structured logger for lifecycle and dispatch
// diagnostics. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTokenSource sets the chain token source.
// Default: UUIDSource (UUIDv7). Tests use NewFixedSource for
// deterministic tokens.
func WithTokenSource(src TokenSource) Option {
	return func(o *options) {
		o.tokens = src
	}
}

// WithFailureHandler sets the callback invoked with the *FailureError
// when the feature tears down fatally. It runs after both channels have
// completed, on the goroutine that detected the failure. Default: the
// failure is logged at error level.
func WithFailureHandler(fn func(error)) Option {
	return func(o *options) {
		o.onFailure = fn
	}
}

// WithMaxChainDepth bounds consecutive post-processor generations within
// one chain. A follow-up whose depth reaches the limit trips a fatal
// *FailureError instead of dispatching, turning a silent infinite
// feedback loop into a loud teardown.
//
// Default: 0, unlimited. Use a small limit (e.g. 100) when post-processor
// termination is not obvious from inspection.
func WithMaxChainDepth(limit int) Option {
	return func(o *options) {
		o.maxChainDepth = limit
	}
}

// Just returns an already-closed channel buffering the given effects (or
// actions). It is the canonical way to write a synchronous Actor:
//
//	actor := func(ctx context.Context, s Counter, a Action) <-chan Effect {
//		switch a {
//		case Increment:
//			return volition.Just(Added(1))
//		default:
//			return volition.Just[Effect]() // no effects
//		}
//	}
//
// Effects returned this way are folded without a goroutine handoff.
func Just[T any](values ...T) <-chan T {
	ch := make(chan T, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}
