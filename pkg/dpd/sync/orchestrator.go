package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Settings keys the pipeline persists its state under.
const (
	SettingStep              = "SYNC_STEP"
	SettingCursor            = "SYNC_CURSOR"
	SettingCountries         = "SYNC_COUNTRIES"
	SettingTerminalCountries = "TERMINAL_COUNTRIES"
)

// DefaultCountries lists the countries imported when no override is stored.
var DefaultCountries = []string{"RU", "KZ", "BY", "AM", "KG"}

// Step identifies one stage of the import pipeline. The string values are
// persisted between invocations.
type Step string

const (
	// StepLoadLocations streams the bulk geography feed.
	StepLoadLocations Step = "LOAD_LOCATION_ALL"
	// StepLoadLocationsLimited is a standalone one-shot location import
	// that ends the cycle without touching terminals.
	StepLoadLocationsLimited Step = "LOAD_LOCATION_LIMITED"
	// StepLoadCashPay imports the per-country cash-on-delivery city lists.
	StepLoadCashPay Step = "LOAD_LOCATION_CASH_PAY"
	// StepDeleteTerminals wipes the terminal table before a reload.
	StepDeleteTerminals Step = "DELETE_TERMINALS"
	// StepLoadTerminalsUnlimited imports the global unlimited terminals.
	StepLoadTerminalsUnlimited Step = "LOAD_TERMINAL_UNLIMITED"
	// StepLoadTerminalsLimited imports the per-country parcel shops.
	StepLoadTerminalsLimited Step = "LOAD_TERMINAL_LIMITED"
	// StepFinished is the cycle boundary. An invocation that starts here
	// resets to StepLoadLocations and does no work.
	StepFinished Step = "LOAD_FINISH"
)

// successor maps each step to the one that follows it when it completes.
var successor = map[Step]Step{
	StepLoadLocations:          StepLoadCashPay,
	StepLoadLocationsLimited:   StepFinished,
	StepLoadCashPay:            StepDeleteTerminals,
	StepDeleteTerminals:        StepLoadTerminalsUnlimited,
	StepLoadTerminalsUnlimited: StepLoadTerminalsLimited,
	StepLoadTerminalsLimited:   StepFinished,
}

// ParseStep maps a stored step value back to a Step. Unknown values resolve
// to StepFinished so a corrupted setting restarts the cycle instead of
// wedging the pipeline.
func ParseStep(s string) Step {
	step := Step(s)
	if _, ok := successor[step]; ok {
		return step
	}
	return StepFinished
}

// Status is a snapshot of the persisted pipeline state.
type Status struct {
	Step      Step     `json:"step"`
	Cursor    string   `json:"cursor,omitempty"`
	Countries []string `json:"countries"`
}

// Orchestrator drives the import pipeline across invocations. Each Advance
// call resumes at the persisted step and cursor, runs steps until the
// budget trips or the cycle boundary is reached, and persists the state it
// stops at.
type Orchestrator struct {
	feed       *api.Feed
	geo        api.GeographyClient
	locations  LocationStore
	terminals  TerminalStore
	settings   SettingStore
	normalizer *Normalizer
	budget     BudgetGuard
	logger     *otelzap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(feed *api.Feed, geo api.GeographyClient,
	locations LocationStore, terminals TerminalStore, settings SettingStore,
	normalizer *Normalizer, budget BudgetGuard, logger *otelzap.Logger) *Orchestrator {
	return &Orchestrator{
		feed:       feed,
		geo:        geo,
		locations:  locations,
		terminals:  terminals,
		settings:   settings,
		normalizer: normalizer,
		budget:     budget,
		logger:     logger,
	}
}

// Status reads the persisted pipeline state.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	rawStep, err := o.settings.Get(ctx, SettingStep)
	if err != nil {
		return Status{}, fmt.Errorf("%w: read step: %v", dpd.ErrPersistence, err)
	}
	cursor, err := o.settings.Get(ctx, SettingCursor)
	if err != nil {
		return Status{}, fmt.Errorf("%w: read cursor: %v", dpd.ErrPersistence, err)
	}
	countries, err := o.countries(ctx, SettingCountries)
	if err != nil {
		return Status{}, err
	}
	return Status{Step: ParseStep(rawStep), Cursor: cursor, Countries: countries}, nil
}

// Reset clears the persisted state so the next invocation starts a fresh
// cycle from the first step.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if err := o.settings.Set(ctx, SettingStep, string(StepFinished)); err != nil {
		return fmt.Errorf("%w: reset step: %v", dpd.ErrPersistence, err)
	}
	if err := o.settings.Set(ctx, SettingCursor, ""); err != nil {
		return fmt.Errorf("%w: reset cursor: %v", dpd.ErrPersistence, err)
	}
	return nil
}

// Advance runs one pipeline invocation and returns the step it stopped at.
// Errors abort the invocation without persisting, so the failed step is
// retried from the same cursor next time.
func (o *Orchestrator) Advance(ctx context.Context) (Status, error) {
	start := time.Now()

	state, err := o.Status(ctx)
	if err != nil {
		return Status{}, err
	}

	// The cycle boundary. Arm the next cycle and stop: the fresh cycle
	// starts on the next invocation with a full budget.
	if state.Step == StepFinished {
		state.Step = StepLoadLocations
		state.Cursor = ""
		if err := o.persist(ctx, state); err != nil {
			return Status{}, err
		}
		return state, nil
	}

	terminalCountries, err := o.countries(ctx, SettingTerminalCountries)
	if err != nil {
		return Status{}, err
	}

	locationAgent := NewLocationAgent(o.feed, o.geo, o.locations, o.normalizer, o.budget, o.logger)
	terminalAgent := NewTerminalAgent(o.geo, o.terminals, o.budget, o.logger)

	for {
		o.logger.Info("Running sync step",
			zap.String("step", string(state.Step)),
			zap.String("cursor", state.Cursor),
		)

		result, err := o.runStep(ctx, state, terminalCountries, locationAgent, terminalAgent)
		if err != nil {
			return Status{}, fmt.Errorf("step %s: %w", state.Step, err)
		}

		// The limited location run is one chunk per trigger: the cycle
		// ends after it no matter how much feed data remains.
		if state.Step == StepLoadLocationsLimited {
			result.Done = true
		}

		if !result.Done {
			state.Cursor = result.Cursor
			if err := o.persist(ctx, state); err != nil {
				return Status{}, err
			}
			return state, nil
		}

		state.Step = successor[state.Step]
		state.Cursor = ""
		if err := o.persist(ctx, state); err != nil {
			return Status{}, err
		}

		if state.Step == StepFinished || o.budget.ShouldStop(start) {
			return state, nil
		}
	}
}

func (o *Orchestrator) runStep(ctx context.Context, state Status, terminalCountries []string,
	locationAgent *LocationAgent, terminalAgent *TerminalAgent) (Result, error) {

	switch state.Step {
	case StepLoadLocations, StepLoadLocationsLimited:
		return locationAgent.LoadAll(ctx, state.Cursor, state.Countries)
	case StepLoadCashPay:
		return locationAgent.LoadCashPay(ctx, state.Cursor, state.Countries)
	case StepDeleteTerminals:
		if err := terminalAgent.DeleteAll(ctx); err != nil {
			return Result{}, err
		}
		return completed(), nil
	case StepLoadTerminalsUnlimited:
		return terminalAgent.LoadUnlimited(ctx, state.Cursor)
	case StepLoadTerminalsLimited:
		return terminalAgent.LoadLimited(ctx, state.Cursor, terminalCountries)
	default:
		return completed(), nil
	}
}

func (o *Orchestrator) persist(ctx context.Context, state Status) error {
	if err := o.settings.Set(ctx, SettingStep, string(state.Step)); err != nil {
		return fmt.Errorf("%w: persist step: %v", dpd.ErrPersistence, err)
	}
	if err := o.settings.Set(ctx, SettingCursor, state.Cursor); err != nil {
		return fmt.Errorf("%w: persist cursor: %v", dpd.ErrPersistence, err)
	}
	return nil
}

// countries reads a comma-separated country list setting, falling back to
// DefaultCountries when unset.
func (o *Orchestrator) countries(ctx context.Context, key string) ([]string, error) {
	raw, err := o.settings.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", dpd.ErrPersistence, key, err)
	}
	if strings.TrimSpace(raw) == "" {
		return DefaultCountries, nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return DefaultCountries, nil
	}
	return out, nil
}
