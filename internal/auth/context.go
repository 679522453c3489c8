package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/esgdash/internal/domain"
)

type contextKey string

const companyKey contextKey = "company"

// ErrScopeMismatch is returned when a request names a company other than the
// one its session is bound to.
var ErrScopeMismatch = errors.New("company does not match authenticated scope")

// ContextWithCompany returns a new context that carries the authenticated company scope.
func ContextWithCompany(ctx context.Context, company string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, companyKey, strings.TrimSpace(company))
}

// CompanyFromContext retrieves the authenticated company scope from the context, if any.
func CompanyFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	company, ok := ctx.Value(companyKey).(string)
	if !ok || company == "" {
		return "", false
	}
	return company, true
}

// EnforceCompanyScope ensures the provided company matches the authenticated scope when present.
func EnforceCompanyScope(ctx context.Context, company string) error {
	if strings.TrimSpace(company) == "" {
		return domain.NewMissingFieldsError("company")
	}
	scoped, ok := CompanyFromContext(ctx)
	if !ok {
		return nil
	}
	if !domain.SameCompany(scoped, company) {
		return fmt.Errorf("company %q: %w", company, ErrScopeMismatch)
	}
	return nil
}

// ResolveCompany returns the requested company, falling back to the
// authenticated scope when the request names none.
func ResolveCompany(ctx context.Context, requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		if scoped, ok := CompanyFromContext(ctx); ok {
			return scoped, nil
		}
	}
	if err := EnforceCompanyScope(ctx, requested); err != nil {
		return "", err
	}
	return strings.TrimSpace(requested), nil
}
