// Package upsert reconciles candidate field sets with stored records.
//
// The policy is fill-if-missing: a stored value is only replaced when an
// improvement rule says the candidate is strictly better. Applying the same
// candidates twice writes nothing the second time.
package upsert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shanehull/petcatalog/internal/model"
)

type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Existing is a stored record as the orchestrator sees it.
type Existing struct {
	Record model.Record
	// Derived holds the fields whose stored value was computed rather than
	// observed.
	Derived model.StringSet
}

// Plan is the minimal write for one record.
type Plan struct {
	Entity model.Entity
	Key    string
	Insert bool
	Fields model.FieldSet
	// Sources is the new sources set, or nil when it does not change.
	Sources []model.SourceTag
}

func (p Plan) Empty() bool {
	return !p.Insert && len(p.Fields) == 0 && p.Sources == nil
}

// Store is the catalog the orchestrator reads from and writes to. Get
// returns nil, nil when the record does not exist. Upsert must apply a plan
// atomically.
type Store interface {
	Get(ctx context.Context, entity model.Entity, key string) (*Existing, error)
	Upsert(ctx context.Context, plan Plan) error
}

type Orchestrator struct {
	store  Store
	rules  map[string]Rule
	logger *slog.Logger
}

type Option func(*Orchestrator)

// WithRules replaces the improvement rules.
func WithRules(rules map[string]Rule) Option {
	return func(o *Orchestrator) { o.rules = rules }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, rules: DefaultRules(), logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan computes the write for candidates against existing, which is nil
// when the record is new. It does not touch the store.
func (o *Orchestrator) Plan(existing *Existing, entity model.Entity, key string, candidates model.FieldSet) Plan {
	p := Plan{Entity: entity, Key: key, Fields: model.FieldSet{}}
	tags := sourceTags(candidates)

	if existing == nil {
		p.Insert = true
		for f, c := range candidates {
			if f != model.FieldSources {
				p.Fields[f] = c
			}
		}
		p.Sources, _ = model.UnionSources(nil, tags)
		return p
	}

	for _, f := range candidates.Fields() {
		if f == model.FieldSources {
			continue
		}
		c := candidates[f]
		old, stored := existing.Record[f]
		switch {
		case !stored || model.IsEmpty(old):
			p.Fields[f] = c
		case sameValue(old, c.Value):
		case existing.Derived.Has(f) && !c.Provenance.Derived:
			// An observed value replaces a computed one.
			p.Fields[f] = c
		default:
			r, ok := o.rules[f]
			if !ok || !r.Improves(old, c.Value) {
				continue
			}
			p.Fields[f] = c
			for _, coupled := range r.Coupled {
				if cc, ok := candidates[coupled]; ok && !sameValue(existing.Record[coupled], cc.Value) {
					p.Fields[coupled] = cc
				}
			}
		}
	}

	if merged, added := model.UnionSources(existing.Record.Sources(), tags); added {
		p.Sources = merged
	}
	return p
}

// Apply reads the stored record, plans and writes. An empty plan is not
// written.
func (o *Orchestrator) Apply(ctx context.Context, entity model.Entity, key string, candidates model.FieldSet) (Outcome, error) {
	existing, err := o.store.Get(ctx, entity, key)
	if err != nil {
		return Unchanged, fmt.Errorf("get %s %s: %w", entity, key, err)
	}
	p := o.Plan(existing, entity, key, candidates)
	if p.Empty() {
		o.logger.Debug("record unchanged", "entity", entity, "key", key)
		return Unchanged, nil
	}
	if err := o.store.Upsert(ctx, p); err != nil {
		return Unchanged, fmt.Errorf("upsert %s %s: %w", entity, key, err)
	}
	if p.Insert {
		o.logger.Debug("record inserted", "entity", entity, "key", key, "fields", len(p.Fields))
		return Inserted, nil
	}
	o.logger.Debug("record updated", "entity", entity, "key", key, "fields", p.Fields.Fields())
	return Updated, nil
}

// sourceTags collects the observed sources behind a candidate set. Derived
// values add no source of their own.
func sourceTags(candidates model.FieldSet) []model.SourceTag {
	var tags []model.SourceTag
	for _, c := range candidates {
		if c.Provenance.Derived || c.Provenance.Source == "" {
			continue
		}
		tags = append(tags, c.Provenance.Tag())
	}
	return tags
}

func sameValue(a, b any) bool {
	switch x := a.(type) {
	case model.StringSet:
		y, ok := b.(model.StringSet)
		return ok && x.Equal(y)
	case []model.SourceTag:
		return false
	default:
		return a == b
	}
}
