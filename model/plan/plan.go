// Package plan is the intermediate representation of a generated view: common
// table expressions, selects, joins and unions assembled by the analysis engines
// and rendered to SQL text in one place.
package plan

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// Query is any renderable statement: *Select, *Union or *With.
type Query = sq.Sqlizer

type Column struct {
	Expr  string
	Alias string
}

func (c Column) String() string {
	if c.Alias == "" || c.Alias == c.Expr {
		return c.Expr
	}
	return c.Expr + " AS " + c.Alias
}

func Col(expr string) Column {
	return Column{Expr: expr}
}

func As(expr, alias string) Column {
	return Column{Expr: expr, Alias: alias}
}

type JoinKind string

const (
	InnerJoin     JoinKind = "JOIN"
	LeftOuterJoin JoinKind = "LEFT OUTER JOIN"
)

type Join struct {
	Kind  JoinKind
	Table string
	On    Predicate
}

func (j Join) ToSql() (string, []interface{}, error) {
	on := j.On
	if on == nil {
		on = True
	}
	onSQL, _, err := on.ToSql()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ON %s", j.Kind, j.Table, onSQL), nil, nil
}

type Select struct {
	Columns []Column
	From    string
	Joins   []Join
	Where   Predicate
	GroupBy []string
	OrderBy []string
}

// ColumnNames returns the output name of every column.
func (s *Select) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Alias != "" {
			names = append(names, c.Alias)
		} else {
			names = append(names, c.Expr)
		}
	}
	return names
}

func (s *Select) ToSql() (string, []interface{}, error) {
	columns := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		columns = append(columns, c.String())
	}

	builder := sq.Select(columns...)
	if s.From != "" {
		builder = builder.From(s.From)
	}
	for _, join := range s.Joins {
		builder = builder.JoinClause(join)
	}
	if s.Where != nil {
		builder = builder.Where(s.Where)
	}
	if len(s.GroupBy) > 0 {
		builder = builder.GroupBy(s.GroupBy...)
	}
	if len(s.OrderBy) > 0 {
		builder = builder.OrderBy(s.OrderBy...)
	}
	return builder.ToSql()
}

type Union struct {
	Selects []*Select
	All     bool
}

func (u *Union) ToSql() (string, []interface{}, error) {
	if len(u.Selects) == 0 {
		return "", nil, errors.New("union without selects")
	}
	separator := " UNION "
	if u.All {
		separator = " UNION ALL "
	}
	parts := make([]string, 0, len(u.Selects))
	for _, s := range u.Selects {
		sql, _, err := s.ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, separator), nil, nil
}

type Cte struct {
	Name  string
	Query Query
}

type With struct {
	Ctes []Cte
	Body Query
}

// Cte returns the named common table expression, nil when absent.
func (w *With) Cte(name string) *Cte {
	for i := range w.Ctes {
		if w.Ctes[i].Name == name {
			return &w.Ctes[i]
		}
	}
	return nil
}

func (w *With) ToSql() (string, []interface{}, error) {
	body, _, err := w.Body.ToSql()
	if err != nil {
		return "", nil, err
	}
	if len(w.Ctes) == 0 {
		return body, nil, nil
	}

	ctes := make([]string, 0, len(w.Ctes))
	for _, cte := range w.Ctes {
		sql, _, err := cte.Query.ToSql()
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to render %s", cte.Name)
		}
		ctes = append(ctes, fmt.Sprintf("%s AS (%s)", cte.Name, sql))
	}
	return fmt.Sprintf("WITH %s %s", strings.Join(ctes, ", "), body), nil, nil
}

// View is the single statement produced for an analysis.
type View struct {
	Schema string
	Name   string
	Body   *With
}

func (v *View) ToSql() (string, []interface{}, error) {
	body, _, err := v.Body.ToSql()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s.%s AS (%s)", v.Schema, v.Name, body), nil, nil
}

// Render returns the SQL text of a query.
func Render(q Query) (string, error) {
	sql, _, err := q.ToSql()
	return sql, err
}
