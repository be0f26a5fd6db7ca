package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Scenario defines a conformance test scenario.
// Scenarios script a feature, drive wishes through a real engine
// instance, and assert on the recorded state/news trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Feature scripts the collaborators wired into the engine.
	Feature FeatureScript `yaml:"feature"`

	// Wishes are accepted in order after any bootstrap actions settle.
	// May be empty when the scenario is bootstrap-only.
	Wishes []string `yaml:"wishes,omitempty"`

	// Assertions validate the final state and recorded trace.
	Assertions []Assertion `yaml:"assertions"`
}

// FeatureScript describes the scripted collaborators of a scenario
// feature. State is the "/"-joined history of applied effects starting
// from InitialState; wishes map to actions by identity.
type FeatureScript struct {
	// Name identifies the feature in logs and failure errors.
	// Defaults to the scenario name.
	Name string `yaml:"name,omitempty"`

	// InitialState seeds the state channel.
	InitialState string `yaml:"initial_state"`

	// Bootstrap lists actions dispatched at creation time.
	Bootstrap []string `yaml:"bootstrap,omitempty"`

	// Actions maps an action name to the effects it emits.
	Actions map[string][]string `yaml:"actions"`

	// News maps an effect to the news item published after its fold.
	News map[string]string `yaml:"news,omitempty"`

	// Followups maps an effect to a follow-up action dispatched after
	// its fold. Follow-ups inherit the triggering chain.
	Followups map[string]string `yaml:"followups,omitempty"`

	// MaxChainDepth bounds follow-up generations per chain.
	// 0 means unlimited.
	MaxChainDepth int `yaml:"max_chain_depth,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": Check the feature's final state value
	// - "state_count": Check the number of recorded state emissions
	// - "state_contains": Check a state value appears in the trace
	// - "news_order": Check the exact news sequence
	// - "news_contains": Check a news item appears in the trace
	// - "failure": Check the feature tore down fatally
	Type string `yaml:"type"`

	// Value is the expected value (final_state, state_contains, news_contains).
	Value string `yaml:"value,omitempty"`

	// Count is the expected number of emissions (state_count).
	Count int `yaml:"count,omitempty"`

	// Values is the expected news sequence (news_order).
	Values []string `yaml:"values,omitempty"`

	// Stage is the expected failure stage (failure).
	// Empty matches any stage.
	Stage string `yaml:"stage,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertStateCount    = "state_count"
	AssertStateContains = "state_contains"
	AssertNewsOrder     = "news_order"
	AssertNewsContains  = "news_contains"
	AssertFailure       = "failure"
)

// scenarioSchema compiles the embedded CUE schema and returns the
// #Scenario definition.
func scenarioSchema() (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile scenario schema: %w", err)
	}

	def := v.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("scenario schema has no #Scenario definition")
	}
	return def, nil
}

// LoadScenario reads, schema-validates and parses a scenario YAML file.
// Returns an error if the file doesn't exist, fails CUE schema
// validation (including unknown fields), or violates cross-field rules
// the schema can't express.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario schema-validates and parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	// Validate against the CUE schema first: closed definitions reject
	// unknown fields (typos like "assertion:" vs "assertions:") and the
	// schema enforces required fields and enum values.
	schema, err := scenarioSchema()
	if err != nil {
		return nil, err
	}
	if err := cueyaml.Validate(data, schema); err != nil {
		return nil, fmt.Errorf("scenario failed schema validation: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks cross-field rules the CUE schema can't
// express: action references must resolve, and the scenario must drive
// at least one dispatch.
func validateScenario(s *Scenario) error {
	if len(s.Wishes) == 0 && len(s.Feature.Bootstrap) == 0 {
		return fmt.Errorf("scenario must have wishes or bootstrap actions")
	}

	for i, w := range s.Wishes {
		if _, ok := s.Feature.Actions[w]; !ok {
			return fmt.Errorf("wishes[%d]: unknown action %q", i, w)
		}
	}

	for i, a := range s.Feature.Bootstrap {
		if _, ok := s.Feature.Actions[a]; !ok {
			return fmt.Errorf("bootstrap[%d]: unknown action %q", i, a)
		}
	}

	for effect, action := range s.Feature.Followups {
		if _, ok := s.Feature.Actions[action]; !ok {
			return fmt.Errorf("followups[%s]: unknown action %q", effect, action)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
// The schema already constrains types and stages; this checks the
// per-type required payload.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFinalState, AssertStateContains, AssertNewsContains:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertStateCount:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for state_count", index)
		}
	case AssertNewsOrder:
		// An empty values list is legal: it asserts no news was published.
	case AssertFailure:
		// Stage is optional; empty matches any stage.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
