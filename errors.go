package volition

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid Config at construction time.
//
// Configuration errors are fail-fast: New returns the error and the
// feature is never created, so a half-wired feature can never run.
type ConfigError struct {
	// Field names the Config field that failed validation.
	Field string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid feature config: %s: %s", e.Field, e.Reason)
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func newConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// FailureStage identifies the collaborator in which a fatal failure occurred.
type FailureStage string

const (
	// StageBootstrapper indicates the bootstrapper sequence failed.
	StageBootstrapper FailureStage = "BOOTSTRAPPER"

	// StageActor indicates the actor failed while producing effects.
	StageActor FailureStage = "ACTOR"

	// StageReducer indicates the reducer failed while folding an effect.
	StageReducer FailureStage = "REDUCER"

	// StagePostProcessor indicates the post-processor failed, or that a
	// follow-up chain exceeded the configured depth limit.
	StagePostProcessor FailureStage = "POST_PROCESSOR"

	// StageNewsPublisher indicates the news publisher failed.
	StageNewsPublisher FailureStage = "NEWS_PUBLISHER"
)

// FailureError reports a fatal failure inside a business-logic callback.
//
// Failures are not recoverable: the feature tears down, in-flight effect
// producers are cancelled, and both output channels complete with this
// error. Subscribers observe it via Subscription.Err, callers via
// Feature.Err.
//
// Recovered holds the value recovered from the callback's panic. For
// chain-depth trips (see WithMaxChainDepth) it is nil and Message
// describes the limit.
type FailureError struct {
	// Feature is the configured feature name, empty if unnamed.
	Feature string

	// Stage identifies the failing collaborator.
	Stage FailureStage

	// Chain is the chain token of the dispatch that failed.
	Chain string

	// Seq is the logical sequence number of the failing dispatch.
	Seq int64

	// Message is a human-readable description.
	Message string

	// Recovered is the value recovered from the panic, if any.
	Recovered any
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	if e.Feature != "" && e.Chain != "" {
		return fmt.Sprintf("%s: %s (feature=%s, chain=%s, seq=%d)", e.Stage, e.Message, e.Feature, e.Chain, e.Seq)
	}
	if e.Chain != "" {
		return fmt.Sprintf("%s: %s (chain=%s, seq=%d)", e.Stage, e.Message, e.Chain, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes a recovered error value for errors.Is / errors.As chains.
// Returns nil when the recovered value is not an error.
func (e *FailureError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

// IsFailureError returns true if the error is a fatal feature failure.
// Uses errors.As to handle wrapped errors.
func IsFailureError(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}

// FailureAt returns true if the error is a fatal failure in the given stage.
// Uses errors.As to handle wrapped errors.
func FailureAt(err error, stage FailureStage) bool {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Stage == stage
	}
	return false
}

func newPanicFailure(name string, stage FailureStage, d dispatchMeta, recovered any) *FailureError {
	return &FailureError{
		Feature:   name,
		Stage:     stage,
		Chain:     d.chain,
		Seq:       d.seq,
		Message:   fmt.Sprintf("panic: %v", recovered),
		Recovered: recovered,
	}
}

func newChainDepthFailure(name string, d dispatchMeta, limit int) *FailureError {
	return &FailureError{
		Feature: name,
		Stage:   StagePostProcessor,
		Chain:   d.chain,
		Seq:     d.seq,
		Message: fmt.Sprintf("follow-up chain exceeded max depth (%d > %d)", d.depth, limit),
	}
}
