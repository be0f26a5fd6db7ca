// Package volition is a reactive state-machine engine: a generic,
// disposable event loop that turns externally accepted wishes into
// serialized state transitions and outbound news.
//
// A Feature wires together a handful of small functions - a wish
// mapping, an actor, a reducer, and optional bootstrapper,
// post-processor and news publisher - and guarantees that every
// state-mutating step runs one at a time on a single logical context,
// whatever goroutines feed it. Consumers observe the feature through
// two multicast channels: States(), which replays the latest state to
// each subscriber, and News(), which is fire-and-forget.
//
// A minimal synchronous counter:
//
//	feature, err := volition.New(volition.Config[int, int, int, int, string]{
//		Name:         "counter",
//		InitialState: 0,
//		WishToAction: func(w int) int { return w },
//		Actor: func(ctx context.Context, state, action int) <-chan int {
//			return volition.Just(action)
//		},
//		Reducer: func(state, effect int) int { return state + effect },
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer feature.Dispose()
//
//	feature.Accept(2)
//	feature.Accept(3)
//	fmt.Println(feature.State()) // 5
//
// With no schedulers configured everything runs inline and Accept
// returns only after the cascade has settled, which is the mode tests
// use. Production features hand a SerialScheduler to
// Config.FeatureScheduler to confine all business callbacks to one
// goroutine, and optionally a second one to Config.ObservationScheduler
// to decouple subscriber delivery from the core.
package volition
