// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"context"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/version"
)

// ListLaterVersions lists the published versions of c newer than c.Version
// and below upTo, ascending. An empty upTo leaves the range unbounded above.
func (r *Resolver) ListLaterVersions(ctx context.Context, c coords.PackageCoords, upTo string, upToInclusive bool) ([]string, error) {
	return r.versionsIn(ctx, c.Key(), version.IntervalExpr(c.Version, false, upTo, upToInclusive))
}

// NextVersion returns the lowest published version of c between from and
// upTo, or the empty string when there is none.
func (r *Resolver) NextVersion(ctx context.Context, c coords.PackageCoords, from string, fromInclusive bool, upTo string, upToInclusive bool) (string, error) {
	versions, err := r.versionsIn(ctx, c.Key(), version.IntervalExpr(from, fromInclusive, upTo, upToInclusive))
	if err != nil || len(versions) == 0 {
		return "", err
	}
	return versions[0], nil
}

// LatestVersion returns the highest published version of c below upTo, or
// the empty string when there is none.
func (r *Resolver) LatestVersion(ctx context.Context, c coords.PackageCoords, upTo string, upToInclusive bool) (string, error) {
	versions, err := r.versionsIn(ctx, c.Key(), version.IntervalExpr("", false, upTo, upToInclusive))
	if err != nil || len(versions) == 0 {
		return "", err
	}
	return versions[len(versions)-1], nil
}

// LatestVersionFromRange returns the highest published version of c matching
// rangeExpr, or the empty string when there is none.
func (r *Resolver) LatestVersionFromRange(ctx context.Context, c coords.PackageCoords, rangeExpr string) (string, error) {
	versions, err := r.versionsIn(ctx, c.Key(), rangeExpr)
	if err != nil || len(versions) == 0 {
		return "", err
	}
	return versions[len(versions)-1], nil
}

func (r *Resolver) versionsIn(ctx context.Context, key coords.PackageKey, expr string) ([]string, error) {
	versions, err := r.repo.ResolveVersionRange(ctx, key.Normalize(), expr, r.remotes)
	if err != nil {
		return nil, err
	}
	version.Sort(versions)
	return versions, nil
}
