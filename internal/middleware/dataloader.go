package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/esgdash/internal/lookuploader"
	"github.com/rpattn/esgdash/internal/repository"
)

const lookupLoaderKey ctxKey = "lookupLoader"

// DataLoaderMiddleware attaches a per-request lookup loader to the context
func DataLoaderMiddleware(repo repository.LookupRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := lookuploader.NewLookupLoader(repo)
			ctx := context.WithValue(r.Context(), lookupLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LookupLoaderFromContext retrieves the loader from context
func LookupLoaderFromContext(ctx context.Context) *lookuploader.LookupLoader {
	if l, ok := ctx.Value(lookupLoaderKey).(*lookuploader.LookupLoader); ok {
		return l
	}
	return nil
}
