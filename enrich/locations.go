package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

// LocationStats summarizes a LoadLocations call.
type LocationStats struct {
	Features  int
	Updated   int // organizations whose coordinates were written
	Skipped   int // features missing website, latitude or longitude
	Unmatched int // features whose website matched no organization
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			Website   string `json:"website"`
			Latitude  any    `json:"latitude"`
			Longitude any    `json:"longitude"`
		} `json:"properties"`
	} `json:"features"`
}

// LoadLocations reads a GeoJSON-like feature collection and sets
// schema:latitude and schema:longitude on every organization whose schema:url
// equals a feature's website. Existing coordinates are replaced.
func LoadLocations(ctx context.Context, store storage.TripleStore, r io.Reader, logger *slog.Logger) (LocationStats, error) {
	var stats LocationStats
	if store == nil {
		return stats, ErrStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "enrich.locations")

	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrInvalidLocations, err)
	}

	for _, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Features++
		p := f.Properties
		lat, latOK := coordinate(p.Latitude)
		lon, lonOK := coordinate(p.Longitude)
		if p.Website == "" || !latOK || !lonOK {
			stats.Skipped++
			continue
		}

		orgs, err := organizationsByURL(ctx, store, p.Website)
		if err != nil {
			return stats, err
		}
		if len(orgs) == 0 {
			logger.Debug("no organization for website", "website", p.Website)
			stats.Unmatched++
			continue
		}
		for _, org := range orgs {
			if err := setCoordinates(ctx, store, org, lat, lon); err != nil {
				return stats, fmt.Errorf("set location of %s: %w", org.Value, err)
			}
			stats.Updated++
		}
	}
	logger.Info("locations loaded",
		"features", stats.Features,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"unmatched", stats.Unmatched)
	return stats, nil
}

// coordinate accepts numbers and numeric strings.
func coordinate(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// organizationsByURL matches schema:url stored either as a literal or an IRI.
func organizationsByURL(ctx context.Context, store storage.TripleStore, website string) ([]core.Term, error) {
	var orgs []core.Term
	seen := make(map[core.Term]bool)
	for _, url := range []core.Term{core.Literal(website), core.IRI(website)} {
		subjects, err := store.Subjects(ctx, core.SchemaURL, url)
		if err != nil {
			return nil, err
		}
		for _, s := range subjects {
			if seen[s] {
				continue
			}
			seen[s] = true
			ok, err := store.Has(ctx, core.T(s, core.RDFType, core.SchemaOrganization))
			if err != nil {
				return nil, err
			}
			if ok {
				orgs = append(orgs, s)
			}
		}
	}
	return orgs, nil
}

func setCoordinates(ctx context.Context, store storage.TripleStore, org core.Term, lat, lon float64) error {
	return store.WithTransaction(ctx, func(ctx context.Context) error {
		for _, p := range []struct {
			predicate core.Term
			value     float64
		}{
			{core.SchemaLatitude, lat},
			{core.SchemaLongitude, lon},
		} {
			old, err := store.Objects(ctx, org, p.predicate)
			if err != nil {
				return err
			}
			stale := make([]core.Triple, len(old))
			for i, o := range old {
				stale[i] = core.T(org, p.predicate, o)
			}
			if _, err := store.Remove(ctx, stale...); err != nil {
				return err
			}
			if _, err := store.Add(ctx, core.T(org, p.predicate, core.DoubleLiteral(p.value))); err != nil {
				return err
			}
		}
		return nil
	})
}
