package volition

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatch origins, for logs and diagnostics.
const (
	originWish      = "wish"
	originBootstrap = "bootstrap"
	originFeedback  = "feedback"
)

// dispatchMeta is the ambient metadata stamped onto every dispatched
// action. It never enters user-visible state or news; it exists for
// ordering, correlation and failure reporting.
type dispatchMeta struct {
	seq    int64  // Monotonic logical sequence number
	chain  string // Chain token; empty only for the bootstrap read itself
	origin string // originWish, originBootstrap or originFeedback
	depth  int    // Post-processor generations within the chain
}

// Feature is a reactive state machine driven by externally accepted
// wishes.
//
// A feature owns a single state value and mutates it exclusively through
// the serialized execution core: wish → action → actor → effects →
// reducer → new state. The new state streams out on States(), derived
// notifications on News(). Optional collaborators hook the loop at fixed
// points: a Bootstrapper seeds initial actions, a PostProcessor feeds
// follow-up actions back in, a NewsPublisher derives outbound items.
//
// CRITICAL: All state mutation happens inside serialized core units.
// Units run one at a time, in submission order, whatever goroutine or
// scheduler triggers them; business code never needs a lock around state.
//
// Thread-safety model:
//   - Accept(): safe from any goroutine; the wish mapping runs on the caller
//   - State(), States(), News(), Err(), Done(): safe from any goroutine
//   - Dispose(): safe from any goroutine, idempotent, re-entrancy safe
//     (a post-processor or subscriber may dispose its own feature)
//   - collaborator callbacks: feature context only, never concurrently
//
// Lifecycle: New → running → disposed. Disposal cancels the bootstrapper
// and every in-flight actor via their contexts, completes both conduits,
// and turns Accept into a silent no-op. A panic in any collaborator on
// the feature context tears the instance down the same way, with the
// *FailureError as the terminal error.
type Feature[W, A, E, S, N any] struct {
	name string
	cfg  Config[W, A, E, S, N]
	opt  options

	clock clock
	core  serializer

	rootCtx    context.Context
	rootCancel context.CancelFunc

	// state is owned by the execution core: only serialized units touch
	// it. External reads go through the state conduit's replay snapshot.
	state S

	stateOut *Conduit[S]
	newsOut  *Conduit[N]

	disposed atomic.Bool
	done     chan struct{}

	failMu  sync.Mutex
	failure error

	// In-flight effect producers (bootstrapper and actor readers), keyed
	// by dispatch seq. nil after disposal - registration then refuses.
	inflightMu sync.Mutex
	inflight   map[int64]context.CancelFunc
}

// New validates cfg and constructs a running feature.
//
// Configuration errors (missing required collaborators, an invalid
// option) fail fast with a *ConfigError; a half-wired feature never
// starts. When a Bootstrapper is configured it is invoked before any
// externally accepted wish can reach the core - with no feature
// scheduler its synchronous actions complete before New returns.
func New[W, A, E, S, N any](cfg Config[W, A, E, S, N], opts ...Option) (*Feature[W, A, E, S, N], error) {
	if cfg.WishToAction == nil {
		return nil, newConfigError("WishToAction", "required")
	}
	if cfg.Actor == nil {
		return nil, newConfigError("Actor", "required")
	}
	if cfg.Reducer == nil {
		return nil, newConfigError("Reducer", "required")
	}

	opt := defaultOptions()
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = defaultOptions().logger
	}
	if opt.tokens == nil {
		opt.tokens = defaultOptions().tokens
	}
	if opt.maxChainDepth < 0 {
		return nil, newConfigError("MaxChainDepth", "must be >= 0")
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	f := &Feature[W, A, E, S, N]{
		name:       cfg.Name,
		cfg:        cfg,
		opt:        opt,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		state:      cfg.InitialState,
		stateOut:   newConduit[S](cfg.ObservationScheduler, true),
		newsOut:    newConduit[N](cfg.ObservationScheduler, false),
		done:       make(chan struct{}),
		inflight:   make(map[int64]context.CancelFunc),
	}
	f.core.sch = cfg.FeatureScheduler

	// Seed the replay buffer so the first subscriber always receives a
	// state, even before the first fold.
	f.stateOut.h.publish(cfg.InitialState)

	opt.logger.Debug("feature created", "feature", f.name)

	if cfg.Bootstrapper != nil {
		f.core.submit(f.runBootstrapper)
	}

	return f, nil
}

// Accept submits a wish. Safe from any goroutine, never blocks on the
// feature's own work.
//
// The wish-to-action mapping runs synchronously on the calling goroutine
// before any scheduler hop; a panic in the mapping is the caller's and
// is deliberately not recovered here. After disposal Accept is a silent
// no-op.
//
// With no schedulers configured the entire cascade - actor, synchronous
// folds, inline deliveries - completes before Accept returns.
func (f *Feature[W, A, E, S, N]) Accept(wish W) {
	if f.disposed.Load() {
		return
	}
	action := f.cfg.WishToAction(wish)
	f.dispatch(action, dispatchMeta{
		seq:    f.clock.Next(),
		chain:  f.opt.tokens.Token(),
		origin: originWish,
	})
}

// State returns the latest published state. Safe from any goroutine.
// The value is a snapshot: it may be superseded by the time the caller
// looks at it. Use States() to observe every transition in order.
func (f *Feature[W, A, E, S, N]) State() S {
	v, _ := f.stateOut.h.snapshot()
	return v
}

// States returns the state conduit: replays the latest state to each new
// subscriber, then streams every subsequent transition.
func (f *Feature[W, A, E, S, N]) States() *Conduit[S] {
	return f.stateOut
}

// News returns the news conduit: fire-and-forget notifications, no
// replay, dropped when nobody is subscribed.
func (f *Feature[W, A, E, S, N]) News() *Conduit[N] {
	return f.newsOut
}

// Dispose tears the feature down: cancels the bootstrapper and all
// in-flight actors, completes both conduits, and makes Accept a no-op.
// Idempotent and safe from any goroutine, including re-entrantly from a
// collaborator or subscriber callback.
func (f *Feature[W, A, E, S, N]) Dispose() {
	f.terminate(nil)
}

// Done returns a channel closed once teardown has completed, whether by
// Dispose or by a fatal failure.
func (f *Feature[W, A, E, S, N]) Done() <-chan struct{} {
	return f.done
}

// Err returns the fatal *FailureError after a teardown caused by a
// collaborator failure, nil while running or after a plain Dispose.
func (f *Feature[W, A, E, S, N]) Err() error {
	f.failMu.Lock()
	defer f.failMu.Unlock()
	return f.failure
}

// dispatch stamps an action into the execution core.
func (f *Feature[W, A, E, S, N]) dispatch(action A, d dispatchMeta) {
	if f.disposed.Load() {
		return
	}
	f.core.submit(func() { f.processAction(action, d) })
}

// processAction is the core unit invoking the actor for one action.
// CRITICAL: runs serialized - never concurrently with another unit.
func (f *Feature[W, A, E, S, N]) processAction(action A, d dispatchMeta) {
	if f.disposed.Load() {
		return
	}
	f.opt.logger.Debug("action processing",
		"feature", f.name, "seq", d.seq, "chain", d.chain, "origin", d.origin)

	ctx, cancel := context.WithCancel(f.rootCtx)
	if !f.register(d.seq, cancel) {
		return
	}

	var effects <-chan E
	if !f.guard(StageActor, d, func() {
		effects = f.cfg.Actor(ctx, f.state, action)
	}) {
		return
	}
	if effects == nil {
		f.deregister(d.seq)
		return
	}

	// Opportunistic drain: effects already buffered in a closed channel
	// fold without a goroutine handoff. This is what makes a Just-style
	// actor fully synchronous.
	for {
		select {
		case effect, ok := <-effects:
			if !ok {
				f.deregister(d.seq)
				return
			}
			f.core.submit(func() { f.foldEffect(action, effect, d) })
		default:
			// Actor still producing - hand off to a reader goroutine.
			go f.readEffects(effects, action, d, ctx)
			return
		}
	}
}

// readEffects forwards asynchronously produced effects into the core.
// Runs on its own goroutine, one per still-producing actor invocation.
func (f *Feature[W, A, E, S, N]) readEffects(effects <-chan E, action A, d dispatchMeta, ctx context.Context) {
	for {
		select {
		case effect, ok := <-effects:
			if !ok {
				f.deregister(d.seq)
				return
			}
			f.core.submit(func() { f.foldEffect(action, effect, d) })
		case <-ctx.Done():
			// Disposal or failure. The actor owns the channel; stop
			// reading and let it observe the cancellation.
			f.deregister(d.seq)
			return
		}
	}
}

// foldEffect is the core unit folding one effect into state and running
// the post-fold hooks.
// CRITICAL: runs serialized - never concurrently with another unit.
func (f *Feature[W, A, E, S, N]) foldEffect(action A, effect E, d dispatchMeta) {
	if f.disposed.Load() {
		// Effect lost the race against disposal - nothing observable
		// may change.
		return
	}

	var next S
	if !f.guard(StageReducer, d, func() {
		next = f.cfg.Reducer(f.state, effect)
	}) {
		return
	}
	f.state = next
	f.stateOut.h.publish(next)

	f.opt.logger.Debug("effect folded",
		"feature", f.name, "seq", d.seq, "chain", d.chain, "depth", d.depth)

	if f.cfg.PostProcessor != nil {
		var (
			followUp A
			fire     bool
		)
		if !f.guard(StagePostProcessor, d, func() {
			followUp, fire = f.cfg.PostProcessor(action, effect, next)
		}) {
			return
		}
		if fire {
			fd := dispatchMeta{
				seq:    f.clock.Next(),
				chain:  d.chain,
				origin: originFeedback,
				depth:  d.depth + 1,
			}
			if limit := f.opt.maxChainDepth; limit > 0 && fd.depth > limit {
				f.terminate(newChainDepthFailure(f.name, fd, limit))
				return
			}
			// Queued behind the current unit, never nested.
			f.dispatch(followUp, fd)
		}
	}

	if f.disposed.Load() {
		// A post-processor disposed its own feature mid-fold; the fold's
		// news must not fire.
		return
	}

	if f.cfg.NewsPublisher != nil {
		var (
			item N
			fire bool
		)
		if !f.guard(StageNewsPublisher, d, func() {
			item, fire = f.cfg.NewsPublisher(action, effect, next)
		}) {
			return
		}
		if fire {
			f.newsOut.h.publish(item)
		}
	}
}

// runBootstrapper is the core unit starting the bootstrap sequence.
// Each yielded action starts its own chain, as if accepted externally.
func (f *Feature[W, A, E, S, N]) runBootstrapper() {
	if f.disposed.Load() {
		return
	}
	d := dispatchMeta{seq: f.clock.Next(), origin: originBootstrap}

	ctx, cancel := context.WithCancel(f.rootCtx)
	if !f.register(d.seq, cancel) {
		return
	}

	var actions <-chan A
	if !f.guard(StageBootstrapper, d, func() {
		actions = f.cfg.Bootstrapper(ctx)
	}) {
		return
	}
	if actions == nil {
		f.deregister(d.seq)
		return
	}

	// Same opportunistic drain as processAction: synchronous bootstrap
	// actions dispatch before New returns when no scheduler is wired.
	for {
		select {
		case action, ok := <-actions:
			if !ok {
				f.deregister(d.seq)
				return
			}
			f.dispatch(action, f.bootstrapMeta())
		default:
			go f.readBootstrap(actions, d, ctx)
			return
		}
	}
}

// readBootstrap forwards asynchronously produced bootstrap actions.
func (f *Feature[W, A, E, S, N]) readBootstrap(actions <-chan A, d dispatchMeta, ctx context.Context) {
	for {
		select {
		case action, ok := <-actions:
			if !ok {
				f.deregister(d.seq)
				return
			}
			f.dispatch(action, f.bootstrapMeta())
		case <-ctx.Done():
			f.deregister(d.seq)
			return
		}
	}
}

func (f *Feature[W, A, E, S, N]) bootstrapMeta() dispatchMeta {
	return dispatchMeta{
		seq:    f.clock.Next(),
		chain:  f.opt.tokens.Token(),
		origin: originBootstrap,
	}
}

// guard runs a collaborator callback, converting a panic into fatal
// teardown. Returns false when the callback panicked; the caller must
// abandon its unit immediately.
func (f *Feature[W, A, E, S, N]) guard(stage FailureStage, d dispatchMeta, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			f.terminate(newPanicFailure(f.name, stage, d, r))
			ok = false
		}
	}()
	fn()
	return true
}

// register records an in-flight producer's cancel handle. Returns false
// when the feature is already terminal - the handle is cancelled on the
// spot and the caller must abandon its unit.
func (f *Feature[W, A, E, S, N]) register(seq int64, cancel context.CancelFunc) bool {
	f.inflightMu.Lock()
	if f.inflight == nil {
		f.inflightMu.Unlock()
		cancel()
		return false
	}
	f.inflight[seq] = cancel
	f.inflightMu.Unlock()
	return true
}

// deregister releases a producer's cancel handle once its channel is
// exhausted or abandoned.
func (f *Feature[W, A, E, S, N]) deregister(seq int64) {
	f.inflightMu.Lock()
	cancel, ok := f.inflight[seq]
	if ok {
		delete(f.inflight, seq)
	}
	f.inflightMu.Unlock()
	if ok {
		cancel()
	}
}

// inflightLen reports the number of registered producers. Diagnostics
// and tests only.
func (f *Feature[W, A, E, S, N]) inflightLen() int {
	f.inflightMu.Lock()
	defer f.inflightMu.Unlock()
	return len(f.inflight)
}

// terminate is the single teardown path, shared by Dispose and fatal
// failures. Exactly one caller wins the CAS; everyone else returns
// immediately, which is what makes disposal idempotent and re-entrancy
// safe.
func (f *Feature[W, A, E, S, N]) terminate(failure *FailureError) {
	if !f.disposed.CompareAndSwap(false, true) {
		return
	}

	if failure != nil {
		f.failMu.Lock()
		f.failure = failure
		f.failMu.Unlock()
	}

	// Cancel the root first: every producer context is a child, so
	// in-flight actors observe cancellation even before their individual
	// handles are called.
	f.rootCancel()

	f.inflightMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(f.inflight))
	for _, cancel := range f.inflight {
		cancels = append(cancels, cancel)
	}
	f.inflight = nil
	f.inflightMu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	var terminalErr error
	if failure != nil {
		terminalErr = failure
	}
	f.stateOut.h.closeWith(terminalErr)
	f.newsOut.h.closeWith(terminalErr)

	close(f.done)

	if failure != nil {
		if f.opt.onFailure != nil {
			f.opt.onFailure(failure)
		} else {
			f.opt.logger.Error("feature failed",
				"feature", f.name, "stage", string(failure.Stage),
				"chain", failure.Chain, "seq", failure.Seq, "err", failure)
		}
		return
	}
	f.opt.logger.Debug("feature disposed", "feature", f.name)
}
