package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
)

type grantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) repositories.GrantRepository {
	return &grantRepository{db: db}
}

// grantQuery takes the tenant schema three times. The schema comes from the allowlist registry;
// user id and permission code are always bound.
const grantQuery = `SELECT COUNT(*) AS count
FROM %[1]s.role_permissions rp
INNER JOIN %[1]s.permissions p ON rp.permission_id = p.id
INNER JOIN %[1]s.user_roles ur ON rp.role_id = ur.role_id
WHERE ur.user_id = ? AND p.code = ? AND p.status = 1`

func (r *grantRepository) HasPermission(ctx context.Context, userID string, permission models.Permission) (bool, error) {
	schema, ok := tenant.SchemaFromContext(ctx)
	if !ok {
		return false, tenant.ErrNoTenant
	}
	if !tenant.ValidSchemaName(schema) {
		return false, tenant.ErrInvalidSchema
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(grantQuery, schema), userID, string(permission)).
		Scan(&count).Error; err != nil {
		return false, handleDBError(err, "check permission grant")
	}
	return count > 0, nil
}

type metadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) repositories.MetadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) ListTables(ctx context.Context, schema string) ([]string, error) {
	var tables []string
	err := r.db.WithContext(ctx).
		Raw(`SELECT table_name FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`, schema).
		Scan(&tables).Error
	if err != nil {
		return nil, handleDBError(err, "list tables")
	}
	return tables, nil
}

func (r *metadataRepository) ListColumns(ctx context.Context, schema, table string) ([]repositories.ColumnInfo, error) {
	var columns []repositories.ColumnInfo
	err := r.db.WithContext(ctx).
		Raw(`SELECT column_name, data_type, (is_nullable = 'YES') AS nullable
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`, schema, table).
		Scan(&columns).Error
	if err != nil {
		return nil, handleDBError(err, "list columns")
	}
	return columns, nil
}
