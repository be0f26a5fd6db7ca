package harness

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/volition"
)

// stateSep joins applied effects into the scripted state history.
const stateSep = "/"

// buildConfig wires the scripted collaborators into an engine config.
//
// The scripted feature keeps every collaborator total: unknown actions
// emit no effects and unmatched effects publish no news, so a valid
// scenario can never panic the engine. The only reachable fatal path is
// the chain depth guard, which scenarios trip deliberately.
func buildConfig(script FeatureScript, name string, core volition.Scheduler) volition.Config[string, string, string, string, string] {
	if script.Name != "" {
		name = script.Name
	}

	cfg := volition.Config[string, string, string, string, string]{
		Name:         name,
		InitialState: script.InitialState,
		WishToAction: func(wish string) string { return wish },
		Actor: func(ctx context.Context, state string, action string) <-chan string {
			effects, ok := script.Actions[action]
			if !ok {
				return nil
			}
			return volition.Just(effects...)
		},
		Reducer: func(state, effect string) string {
			return state + stateSep + effect
		},
		FeatureScheduler: core,
	}

	if len(script.Bootstrap) > 0 {
		cfg.Bootstrapper = func(ctx context.Context) <-chan string {
			return volition.Just(script.Bootstrap...)
		}
	}

	if len(script.Followups) > 0 {
		cfg.PostProcessor = func(action, effect, state string) (string, bool) {
			next, ok := script.Followups[effect]
			return next, ok
		}
	}

	if len(script.News) > 0 {
		cfg.NewsPublisher = func(action, effect, state string) (string, bool) {
			item, ok := script.News[effect]
			return item, ok
		}
	}

	return cfg
}

// seqSource mints sequential chain tokens ("chain-0001", "chain-0002",
// ...) so scenario runs are reproducible without a finite token list.
//
// Thread-safety: safe for concurrent use via internal mutex.
type seqSource struct {
	mu sync.Mutex
	n  int
}

func (s *seqSource) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("chain-%04d", s.n)
}
