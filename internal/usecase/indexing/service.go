// Package indexing keeps unit search documents in sync with the system of
// record. Every hook is idempotent and safe to re-run.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Service implements the indexing hooks. Errors are returned as-is; wrap it in
// a Guard to get bounded retries.
type Service struct {
	store  Store
	source Source
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates an indexing service.
func New(store Store, source Source, opts Options, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		source: source,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for pricing and availability horizons.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// --- property hooks ---

// OnPropertyCreated indexes every eligible unit of the property.
func (s *Service) OnPropertyCreated(ctx context.Context, propertyID string) error {
	return s.syncProperty(ctx, propertyID)
}

// OnPropertyUpdated re-syncs every unit of the property. Approval changes
// create or drop documents.
func (s *Service) OnPropertyUpdated(ctx context.Context, propertyID string) error {
	return s.syncProperty(ctx, propertyID)
}

// OnPropertyDeleted drops the documents of every unit of the property.
func (s *Service) OnPropertyDeleted(ctx context.Context, propertyID string) error {
	return s.syncProperty(ctx, propertyID)
}

// syncProperty fans out over source units and indexed units, so units that
// no longer exist in the source are cleaned up too.
func (s *Service) syncProperty(ctx context.Context, propertyID string) error {
	ids, err := s.source.UnitIDsByProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("list units of property %s: %w", propertyID, err)
	}
	gens, err := s.store.WriteGenerations(ctx)
	if err != nil {
		return fmt.Errorf("resolve write generations: %w", err)
	}
	for _, gen := range gens {
		indexed, err := s.store.UnitsByProperty(ctx, gen, propertyID)
		if err != nil {
			return fmt.Errorf("list indexed units of property %s: %w", propertyID, err)
		}
		ids = append(ids, indexed...)
	}

	return s.fanOut(ctx, dedup(ids), func(ctx context.Context, id string) error {
		return s.syncUnit(ctx, id, propertyID)
	})
}

// --- unit hooks ---

// OnUnitCreated indexes the unit when it is eligible.
func (s *Service) OnUnitCreated(ctx context.Context, unitID string) error {
	return s.syncUnit(ctx, unitID, "")
}

// OnUnitUpdated re-syncs the unit.
func (s *Service) OnUnitUpdated(ctx context.Context, unitID string) error {
	return s.syncUnit(ctx, unitID, "")
}

// OnUnitDeleted drops the unit's document and secondary entries.
func (s *Service) OnUnitDeleted(ctx context.Context, unitID, propertyID string) error {
	return s.withUnitLock(ctx, unitID, func(ctx context.Context, gens []int64) error {
		for _, gen := range gens {
			if err := s.remove(ctx, gen, unitID, propertyID); err != nil {
				return err
			}
		}
		return nil
	})
}

// OnAvailabilityChanged patches only the availability of an existing
// document. A missing document falls back to a full sync.
func (s *Service) OnAvailabilityChanged(ctx context.Context, unitID string) error {
	return s.withUnitLock(ctx, unitID, func(ctx context.Context, gens []int64) error {
		var (
			periods []unit.Period
			loaded  bool
			src     *unit.Source
			sourced bool
		)
		for _, gen := range gens {
			prev, err := s.get(ctx, gen, unitID)
			if err != nil {
				return err
			}
			if prev == nil {
				if !sourced {
					if src, err = s.load(ctx, unitID); err != nil {
						return err
					}
					sourced = true
				}
				if err := s.apply(ctx, gen, unitID, "", src); err != nil {
					return err
				}
				continue
			}
			if !loaded {
				now := s.now().UTC()
				from := unit.Day(now)
				to := from.AddDate(0, 0, unit.HorizonDays(now, s.opts.AvailabilityMonths))
				if periods, err = s.source.UnitAvailability(ctx, unitID, from, to); err != nil {
					return fmt.Errorf("read availability of unit %s: %w", unitID, err)
				}
				loaded = true
			}
			if err := s.patchAvailability(ctx, gen, prev, periods); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) patchAvailability(ctx context.Context, gen int64, prev *unit.Document, periods []unit.Period) error {
	now := s.now().UTC()
	next := *prev
	next.Availability = unit.NewAvailability(now, unit.HorizonDays(now, s.opts.AvailabilityMonths), periods)
	next.ContentHash = next.ComputeHash()
	return s.write(ctx, gen, &next, prev)
}

// --- unit type hooks ---

// OnUnitTypeDeleted drops every unit of the type.
func (s *Service) OnUnitTypeDeleted(ctx context.Context, unitTypeID string) error {
	ids, err := s.unitsOfType(ctx, unitTypeID)
	if err != nil {
		return err
	}
	return s.fanOut(ctx, ids, func(ctx context.Context, id string) error {
		return s.OnUnitDeleted(ctx, id, "")
	})
}

// OnUnitTypeFieldDeleted removes the field projection from every unit of the
// type that carries it.
func (s *Service) OnUnitTypeFieldDeleted(ctx context.Context, unitTypeID, fieldName string) error {
	ids, err := s.collect(ctx, func(ctx context.Context, gen int64) ([]string, error) {
		return s.store.UnitsWithField(ctx, gen, unitTypeID, fieldName)
	})
	if err != nil {
		return fmt.Errorf("list units of type %s with field %s: %w", unitTypeID, fieldName, err)
	}
	return s.fanOut(ctx, ids, func(ctx context.Context, id string) error {
		return s.withUnitLock(ctx, id, func(ctx context.Context, gens []int64) error {
			for _, gen := range gens {
				prev, err := s.get(ctx, gen, id)
				if err != nil {
					return err
				}
				if prev == nil {
					continue
				}
				if _, ok := prev.Fields[fieldName]; !ok {
					continue
				}
				next := *prev
				next.Fields = maps.Clone(prev.Fields)
				delete(next.Fields, fieldName)
				next.ContentHash = next.ComputeHash()
				if err := s.write(ctx, gen, &next, prev); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// OnDynamicFieldChanged is kept for wire compatibility. Field values are
// re-projected by unit updates.
func (s *Service) OnDynamicFieldChanged(_ context.Context, propertyID, fieldName string) error {
	s.logger.Warn("dynamic_field.changed is deprecated and ignored",
		zap.String("property_id", propertyID),
		zap.String("field", fieldName),
	)
	return nil
}

func (s *Service) unitsOfType(ctx context.Context, unitTypeID string) ([]string, error) {
	ids, err := s.collect(ctx, func(ctx context.Context, gen int64) ([]string, error) {
		return s.store.UnitsByType(ctx, gen, unitTypeID)
	})
	if err != nil {
		return nil, fmt.Errorf("list units of type %s: %w", unitTypeID, err)
	}
	return ids, nil
}

// collect unions list over every write generation.
func (s *Service) collect(ctx context.Context, list func(context.Context, int64) ([]string, error)) ([]string, error) {
	gens, err := s.store.WriteGenerations(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve write generations: %w", err)
	}
	var ids []string
	for _, gen := range gens {
		got, err := list(ctx, gen)
		if err != nil {
			return nil, err
		}
		ids = append(ids, got...)
	}
	return dedup(ids), nil
}

// --- per-unit core ---

// syncUnit brings the unit's document in every write generation in line
// with the source. propertyHint scopes removal when the source row is gone.
func (s *Service) syncUnit(ctx context.Context, unitID, propertyHint string) error {
	return s.withUnitLock(ctx, unitID, func(ctx context.Context, gens []int64) error {
		src, err := s.load(ctx, unitID)
		if err != nil {
			return err
		}
		for _, gen := range gens {
			if err := s.apply(ctx, gen, unitID, propertyHint, src); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) withUnitLock(ctx context.Context, unitID string, fn func(ctx context.Context, gens []int64) error) error {
	release, err := s.store.LockUnit(ctx, unitID, s.opts.LockTimeout, s.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("release unit lock", zap.String("unit_id", unitID), zap.Error(err))
		}
	}()

	gens, err := s.store.WriteGenerations(ctx)
	if err != nil {
		return fmt.Errorf("resolve write generations: %w", err)
	}
	return fn(ctx, gens)
}

// load reads the unit and, when it is eligible, its availability.
// A unit missing from the source yields nil.
func (s *Service) load(ctx context.Context, unitID string) (*unit.Source, error) {
	src, err := s.source.Unit(ctx, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read unit %s: %w", unitID, err)
	}
	if !src.Eligible() {
		return src, nil
	}
	now := s.now().UTC()
	from := unit.Day(now)
	to := from.AddDate(0, 0, unit.HorizonDays(now, s.opts.AvailabilityMonths))
	if src.Periods, err = s.source.UnitAvailability(ctx, unitID, from, to); err != nil {
		return nil, fmt.Errorf("read availability of unit %s: %w", unitID, err)
	}
	return src, nil
}

// apply writes or removes the document of one unit in one generation.
func (s *Service) apply(ctx context.Context, gen int64, unitID, propertyHint string, src *unit.Source) error {
	if src == nil || !src.Eligible() {
		if src != nil && propertyHint == "" {
			propertyHint = src.PropertyID
		}
		return s.remove(ctx, gen, unitID, propertyHint)
	}

	prev, err := s.get(ctx, gen, unitID)
	if err != nil {
		return err
	}
	doc := unit.Build(src, unit.BuildOptions{
		Now:                s.now(),
		AvailabilityMonths: s.opts.AvailabilityMonths,
		PricingMonths:      s.opts.PricingMonths,
		MaxImages:          s.opts.MaxImages,
	})
	return s.write(ctx, gen, doc, prev)
}

// write stores doc unless its content equals prev, in which case only the
// TTL is refreshed. Version grows only on content change.
func (s *Service) write(ctx context.Context, gen int64, doc, prev *unit.Document) error {
	if prev != nil && prev.ContentHash == doc.ContentHash {
		if err := s.store.Touch(ctx, gen, doc.UnitID); err != nil {
			return fmt.Errorf("refresh unit %s: %w", doc.UnitID, err)
		}
		return nil
	}
	doc.Version = 1
	if prev != nil {
		doc.Version = prev.Version + 1
	}
	doc.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, gen, doc, prev); err != nil {
		return err
	}
	s.logger.Debug("unit indexed",
		zap.String("unit_id", doc.UnitID),
		zap.Int64("generation", gen),
		zap.Int64("version", doc.Version),
	)
	return nil
}

func (s *Service) remove(ctx context.Context, gen int64, unitID, propertyID string) error {
	prev, err := s.get(ctx, gen, unitID)
	if err != nil {
		return err
	}
	if prev != nil && propertyID == "" {
		propertyID = prev.PropertyID
	}
	if err := s.store.Remove(ctx, gen, unitID, propertyID, prev); err != nil {
		return err
	}
	if prev != nil {
		s.logger.Debug("unit removed", zap.String("unit_id", unitID), zap.Int64("generation", gen))
	}
	return nil
}

func (s *Service) get(ctx context.Context, gen int64, unitID string) (*unit.Document, error) {
	doc, err := s.store.Get(ctx, gen, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read indexed unit %s: %w", unitID, err)
	}
	return doc, nil
}

// fanOut runs fn for every id and joins the failures. Successful units stay
// indexed; a re-run converges on the rest.
func (s *Service) fanOut(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) error {
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := fn(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func dedup(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
