// Package repo merges the local store and the remote gateway behind
// one read/write API per entity kind. Reads are cache-first; forced
// refreshes replace the cached snapshot; connection failures degrade
// silently to cache when cached data exists. Write operations are
// write-through plumbing: rollback policy belongs to the mutation
// controllers, not here.
package repo

import (
	"context"
	"encoding/json"

	"tripsync/pkg/logger"
	"tripsync/pkg/neterr"
	"tripsync/pkg/store"
)

// ReadOpts controls the freshness policy of a read.
type ReadOpts struct {
	// ForceRefresh bypasses the cache-first shortcut and always
	// attempts the network call.
	ForceRefresh bool
}

func decodeList[T any](raws [][]byte) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func cachedList[T any](s *store.Store, kind store.Kind, scope string, sortFn func([]T)) ([]T, bool, error) {
	has, err := s.Has(kind, scope)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	raws, err := s.List(kind, scope)
	if err != nil {
		return nil, false, err
	}
	out, err := decodeList[T](raws)
	if err != nil {
		return nil, false, err
	}
	if sortFn != nil {
		sortFn(out)
	}
	return out, true, nil
}

// readList implements the shared freshness policy:
//  1. without ForceRefresh, an existing snapshot is returned as-is;
//  2. with ForceRefresh (or no snapshot), refresh is attempted;
//  3. a connection failure falls back to the snapshot when one exists,
//     else surfaces a retryable offline error;
//  4. any other failure propagates and leaves the snapshot untouched.
func readList[T any](ctx context.Context, s *store.Store, kind store.Kind, scope string, opts ReadOpts, refresh func(context.Context) error, sortFn func([]T)) ([]T, error) {
	if !opts.ForceRefresh {
		if out, ok, err := cachedList(s, kind, scope, sortFn); err != nil {
			return nil, err
		} else if ok {
			return out, nil
		}
	}
	if err := refresh(ctx); err != nil {
		if !neterr.Retryable(err) {
			return nil, err
		}
		out, ok, cerr := cachedList(s, kind, scope, sortFn)
		if cerr != nil {
			return nil, cerr
		}
		if ok {
			logger.Debug("read_degraded_to_cache", "kind", kind, "scope", scope)
			return out, nil
		}
		return nil, neterr.New(neterr.ConnectionFailure, "repo.Read", "offline and no cached data for "+string(kind))
	}
	out, _, err := cachedList(s, kind, scope, sortFn)
	return out, err
}

func idsAndRecs[T any](list []T, idOf func(T) string) ([]string, []any) {
	ids := make([]string, len(list))
	recs := make([]any, len(list))
	for i, v := range list {
		ids[i] = idOf(v)
		recs[i] = v
	}
	return ids, recs
}
