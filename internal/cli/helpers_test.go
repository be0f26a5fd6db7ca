package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// smokeScenario is a minimal passing scenario used across command tests.
const smokeScenario = `name: cli-smoke
description: Counter increments once.
feature:
  initial_state: start
  actions:
    bump: [inc]
  news:
    inc: bumped
wishes: [bump]
assertions:
  - type: final_state
    value: start/inc
  - type: news_order
    values: [bumped]
`

// failingScenario asserts a final state the feature never reaches.
const failingScenario = `name: cli-fail
description: Final state assertion is wrong on purpose.
feature:
  initial_state: start
  actions:
    bump: [inc]
wishes: [bump]
assertions:
  - type: final_state
    value: wrong
`

// invalidScenario is missing the required description field.
const invalidScenario = `name: cli-broken
feature:
  initial_state: start
  actions:
    bump: [inc]
wishes: [bump]
assertions:
  - type: final_state
    value: start/inc
`

// writeScenario writes a scenario file into dir and returns its path.
func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}
