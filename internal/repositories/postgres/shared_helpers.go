package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
)

// scoped returns a query bound to ctx against the tenant-qualified table of model.
// Setting the model keeps gorm's soft-delete scope on counts and updates.
func scoped(ctx context.Context, db *gorm.DB, model schemaTabler) (*gorm.DB, error) {
	name, err := tenant.Table(ctx, model.TableName())
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx).Model(model).Table(name), nil
}

type schemaTabler interface {
	TableName() string
}

// uniqueViolation is the SQLSTATE postgres reports for unique constraint failures.
const uniqueViolation = "23505"

// handleDBError is a package-level helper for handling database errors
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrDuplicate)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// applyPaginationAndSorting maps API sort keys onto whitelisted columns.
func applyPaginationAndSorting(query *gorm.DB, sortKeyToColumn map[string]string, limit, offset int, sortBy, sortOrder string) *gorm.DB {
	column, ok := sortKeyToColumn[sortBy]
	if !ok {
		column = "created_at"
	}

	order := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		order = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// checkAffected turns an update or delete that matched nothing into ErrNotFound.
func checkAffected(result *gorm.DB, operation string) error {
	if result.Error != nil {
		return handleDBError(result.Error, operation)
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, operation)
	}
	return nil
}
