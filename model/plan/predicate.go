package plan

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Predicate is a boolean SQL expression. Leaves render literal values inline and
// never produce placeholder args, so a rendered plan is a complete statement.
type Predicate = sq.Sqlizer

// True is used as the join predicate of an unconstrained join.
var True Predicate = sq.Expr("1 = 1")

func Raw(sql string) Predicate {
	return sq.Expr(sql)
}

func Compare(left, op, right string) Predicate {
	return sq.Expr(fmt.Sprintf("%s %s %s", left, op, right))
}

func Eq(left, right string) Predicate {
	return Compare(left, "=", right)
}

func In(column string, values []string) Predicate {
	return sq.Expr(fmt.Sprintf("%s IN (%s)", column, strings.Join(values, ", ")))
}

func NotIn(column string, values []string) Predicate {
	return sq.Expr(fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(values, ", ")))
}

func IsNull(column string) Predicate {
	return sq.Expr(column + " IS NULL")
}

func IsNotNull(column string) Predicate {
	return sq.Expr(column + " IS NOT NULL")
}

func Like(column, pattern string) Predicate {
	return sq.Expr(fmt.Sprintf("%s LIKE %s", column, pattern))
}

func NotLike(column, pattern string) Predicate {
	return sq.Expr(fmt.Sprintf("%s NOT LIKE %s", column, pattern))
}

func compact(preds []Predicate) []sq.Sqlizer {
	parts := make([]sq.Sqlizer, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			parts = append(parts, p)
		}
	}
	return parts
}

// And joins the non nil predicates. Returns nil when there are none.
func And(preds ...Predicate) Predicate {
	parts := compact(preds)
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	return sq.And(parts)
}

// Or joins the non nil predicates. Returns nil when there are none.
func Or(preds ...Predicate) Predicate {
	parts := compact(preds)
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	return sq.Or(parts)
}

// ToSQL renders a predicate, "" for nil.
func ToSQL(p Predicate) (string, error) {
	if p == nil {
		return "", nil
	}
	sql, _, err := p.ToSql()
	return sql, err
}
