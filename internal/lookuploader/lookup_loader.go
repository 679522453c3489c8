// Package lookuploader batches reference table reads made while rendering
// employees and vehicles.
package lookuploader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/repository"
)

// Ref names one row of a reference table.
type Ref struct {
	Kind domain.LookupKind
	ID   int64
}

// Key encodes the ref as a dataloader key.
func (r Ref) Key() dataloader.Key {
	return dataloader.StringKey(string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10))
}

func parseKey(key dataloader.Key) (Ref, error) {
	kind, rawID, ok := strings.Cut(key.String(), ":")
	if !ok {
		return Ref{}, fmt.Errorf("invalid lookup key %q", key.String())
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid lookup id in %q: %w", key.String(), err)
	}
	return Ref{Kind: domain.LookupKind(kind), ID: id}, nil
}

type LookupLoader struct {
	Loader *dataloader.Loader
}

func NewLookupLoader(repo repository.LookupRepository) *LookupLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		refs := make([]Ref, len(keys))
		idsByKind := make(map[domain.LookupKind][]int64)
		for i, k := range keys {
			ref, err := parseKey(k)
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			refs[i] = ref
			idsByKind[ref.Kind] = append(idsByKind[ref.Kind], ref.ID)
		}

		// One query per table touched by the batch
		rowsByKind := make(map[domain.LookupKind]map[int64]domain.Lookup, len(idsByKind))
		errByKind := make(map[domain.LookupKind]error)
		for kind, ids := range idsByKind {
			rows, err := repo.GetByIDs(ctx, kind, ids)
			if err != nil {
				errByKind[kind] = err
				continue
			}
			rowsByKind[kind] = rows
		}

		// Build results in the same order as keys
		for i, ref := range refs {
			if results[i] != nil {
				continue
			}
			if err, ok := errByKind[ref.Kind]; ok {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			if row, ok := rowsByKind[ref.Kind][ref.ID]; ok {
				results[i] = &dataloader.Result{Data: row}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &LookupLoader{Loader: loader}
}

// Labels resolves every ref in one batch. Unknown ids are left out.
func (l *LookupLoader) Labels(ctx context.Context, refs []Ref) (map[Ref]string, error) {
	thunks := make([]dataloader.Thunk, len(refs))
	for i, ref := range refs {
		thunks[i] = l.Loader.Load(ctx, ref.Key())
	}

	labels := make(map[Ref]string, len(refs))
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %d: %w", refs[i].Kind, refs[i].ID, err)
		}
		if row, ok := data.(domain.Lookup); ok {
			labels[refs[i]] = row.Name
		}
	}
	return labels, nil
}
