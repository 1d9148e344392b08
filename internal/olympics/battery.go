package olympics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cgpforage/internal/cgp"
	"cgpforage/internal/model"
	"cgpforage/internal/scape"
)

type Battery struct {
	sim    scape.Simulator
	events []Event
	log    *zap.Logger
}

func NewBattery(sim scape.Simulator, events []Event, logger *zap.Logger) (*Battery, error) {
	if sim == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event is required")
	}
	seen := make(map[string]struct{}, len(events))
	for i, ev := range events {
		if ev.Name == "" {
			return nil, fmt.Errorf("event %d has no name", i)
		}
		if _, dup := seen[ev.Name]; dup {
			return nil, fmt.Errorf("duplicate event %q", ev.Name)
		}
		seen[ev.Name] = struct{}{}
		if ev.Band < 0 {
			return nil, fmt.Errorf("event %q: band must be >= 0", ev.Name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Battery{sim: sim, events: append([]Event(nil), events...), log: logger}, nil
}

func (b *Battery) Events() []Event {
	return append([]Event(nil), b.events...)
}

// Run puts every genome through every event in order. Controllers are reset
// before each event and each genome's score history gains one entry per
// event.
func (b *Battery) Run(ctx context.Context, genomes []*cgp.Genome) ([]model.EventResult, error) {
	if len(genomes) == 0 {
		return nil, fmt.Errorf("no controllers to compete")
	}
	controllers := make([]*cgp.Controller, len(genomes))
	for i, g := range genomes {
		c, err := cgp.NewController(g)
		if err != nil {
			return nil, fmt.Errorf("controller for %s: %w", g.ID, err)
		}
		controllers[i] = c
	}

	results := make([]model.EventResult, 0, len(b.events)*len(genomes))
	for _, ev := range b.events {
		for _, c := range controllers {
			c.Reset()
		}
		outcomes, err := b.runEvent(ctx, ev, controllers)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Name, err)
		}

		var novFood, fitFood []int
		for i, out := range outcomes {
			g := genomes[i]
			g.RecordScore(ev.Name, out.Food)
			results = append(results, model.EventResult{
				VersionedRecord: model.CurrentVersion(),
				Event:           ev.Name,
				GenomeID:        g.ID,
				Regime:          string(g.Regime),
				Food:            out.Food,
				Poison:          out.Poison,
			})
			switch g.Regime {
			case cgp.RegimeNovelty:
				novFood = append(novFood, out.Food)
			case cgp.RegimeFitness:
				fitFood = append(fitFood, out.Food)
			case cgp.RegimeUnset:
			}
		}
		b.log.Info("olympic event complete",
			zap.String("event", ev.Name),
			zap.Ints("novelty_food", novFood),
			zap.Ints("fitness_food", fitFood),
		)
	}
	return results, nil
}

func (b *Battery) runEvent(ctx context.Context, ev Event, controllers []*cgp.Controller) ([]scape.Outcome, error) {
	if ev.Together {
		outcomes, err := b.sim.Run(ctx, ev.Scenario, controllers)
		if err != nil {
			return nil, err
		}
		if len(outcomes) != len(controllers) {
			return nil, fmt.Errorf("simulator returned %d outcomes for %d controllers", len(outcomes), len(controllers))
		}
		return outcomes, nil
	}

	outcomes := make([]scape.Outcome, len(controllers))
	for i, c := range controllers {
		out, err := b.sim.Run(ctx, ev.Scenario, []*cgp.Controller{c})
		if err != nil {
			return nil, err
		}
		if len(out) != 1 {
			return nil, fmt.Errorf("simulator returned %d outcomes for one controller", len(out))
		}
		outcomes[i] = out[0]
	}
	return outcomes, nil
}
