package tenant

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard enforces tenant conditions on tenant-owned tables. Statements already
// filtered on tenant_id pass untouched; otherwise the tenant from context is added,
// and without one the statement fails. System contexts are exempt.
type Guard struct {
	column string
}

// RegisterGuard installs the guard callbacks on db
func RegisterGuard(db *gorm.DB) error {
	g := &Guard{column: Column}
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:guard_query", g.check); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:guard_row", g.check); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:guard_update", g.check); err != nil {
		return err
	}
	return cb.Delete().Before("gorm:delete").Register("tenant:guard_delete", g.check)
}

func (g *Guard) check(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Schema == nil || stmt.Schema.LookUpField(g.column) == nil {
		return
	}
	ctx := stmt.Context
	if ctx == nil || IsSystem(ctx) || g.hasCondition(stmt) {
		return
	}
	tenantID, err := FromContext(ctx)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: g.column}, Value: tenantID},
	}})
}

func (g *Guard) hasCondition(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.mentions(expr) {
			return true
		}
	}
	return false
}

func (g *Guard) mentions(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return g.isColumn(e.Column)
	case clause.IN:
		return g.isColumn(e.Column)
	case clause.Expr:
		return strings.Contains(e.SQL, g.column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, g.column)
	case clause.AndConditions:
		for _, sub := range e.Exprs {
			if g.mentions(sub) {
				return true
			}
		}
	}
	return false
}

func (g *Guard) isColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == g.column
	case string:
		return c == g.column || strings.HasSuffix(c, "."+g.column)
	}
	return false
}
