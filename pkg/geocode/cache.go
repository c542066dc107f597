package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const cacheTable = "public.geocode_cache"

// cacheKey hashes the address and country after case folding and whitespace
// collapsing, so trivially different spellings share an entry.
func cacheKey(addr AddressInput) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	h := sha256.Sum256([]byte(norm(addr.Address) + "|" + norm(addr.Country)))
	return hex.EncodeToString(h[:])
}

func cacheSQL() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// checkCache returns the cached result for key. Entries older than the TTL
// are ignored; a miss is reported as an error.
func (g *geocoder) checkCache(ctx context.Context, key string) (*Result, error) {
	q := cacheSQL().
		Select("latitude", "longitude", "quality", "matched", "formatted_address", "types").
		From(cacheTable).
		Where(sq.Eq{"address_hash": key})
	if g.cacheTTLDays > 0 {
		q = q.Where("cached_at > now() - make_interval(days => ?)", g.cacheTTLDays)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build cache query")
	}

	var (
		r         Result
		formatted *string
	)
	if err := g.pool.QueryRow(ctx, query, args...).Scan(&r.Latitude, &r.Longitude, &r.Quality, &r.Matched, &formatted, &r.Types); err != nil {
		return nil, err
	}
	if formatted != nil {
		r.FormattedAddress = *formatted
	}

	zap.L().Debug("geocode cache hit", zap.String("key", key[:min(len(key), 12)]), zap.Bool("matched", r.Matched))
	return &r, nil
}

// storeCache upserts result under key. Non-matches are cached too.
func (g *geocoder) storeCache(ctx context.Context, key string, result *Result) error {
	var formatted any
	if result.FormattedAddress != "" {
		formatted = result.FormattedAddress
	}
	query, args, err := cacheSQL().
		Insert(cacheTable).
		Columns("address_hash", "latitude", "longitude", "quality", "matched", "formatted_address", "types", "cached_at").
		Values(key, result.Latitude, result.Longitude, result.Quality, result.Matched, formatted, result.Types, sq.Expr("now()")).
		Suffix(`ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			quality = EXCLUDED.quality,
			matched = EXCLUDED.matched,
			formatted_address = EXCLUDED.formatted_address,
			types = EXCLUDED.types,
			cached_at = EXCLUDED.cached_at`).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "geocode: build cache upsert")
	}
	if _, err := g.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}
