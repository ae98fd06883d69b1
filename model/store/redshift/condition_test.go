package redshift

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
)

func TestCompileCondition(t *testing.T) {
	testCases := []struct {
		name      string
		condition model.Condition
		expected  string
	}{
		{"StringEquals", stringCondition(model.ConditionCategoryGeo, "country", model.EqualsOp, "US"), "x = 'US'"},
		{"StringQuoted", stringCondition(model.ConditionCategoryGeo, "city", model.NotEqualOp, "O'Brien"), "x <> 'O''Brien'"},
		{"IntegerGreater", model.Condition{Operator: model.GreaterThanOp, Values: []interface{}{10}, ValueType: model.ValueTypeInteger}, "x > 10"},
		{"NumericString", model.Condition{Operator: model.LesserThanOrEqualOp, Values: []interface{}{"2.5"}, ValueType: model.ValueTypeDouble}, "x <= 2.5"},
		{"In", stringCondition(model.ConditionCategoryOther, "platform", model.InOp, "a", "b"), "x IN ('a', 'b')"},
		{"NotInNumeric", model.Condition{Operator: model.NotInOp, Values: []interface{}{1, 2.5}, ValueType: model.ValueTypeFloat}, "x NOT IN (1, 2.5)"},
		{"ExponentDouble", model.Condition{Operator: model.EqualsOp, Values: []interface{}{"1e2"}, ValueType: model.ValueTypeDouble}, "x = 100"},
		{"SignedInteger", model.Condition{Operator: model.GreaterThanOp, Values: []interface{}{"+3"}, ValueType: model.ValueTypeInteger}, "x > 3"},
		{"WholeFloatAsInteger", model.Condition{Operator: model.LesserThanOp, Values: []interface{}{1e3}, ValueType: model.ValueTypeInteger}, "x < 1000"},
		{"Contains", stringCondition(model.ConditionCategoryDevice, "ua_browser", model.ContainsOp, "chrome"), "x LIKE '%chrome%'"},
		{"NotContains", stringCondition(model.ConditionCategoryDevice, "ua_browser", model.NotContainsOp, "bot"), "x NOT LIKE '%bot%'"},
		{"IsNull", stringCondition(model.ConditionCategoryUser, "email", model.IsNullOp), "x IS NULL"},
		{"IsNotNull", stringCondition(model.ConditionCategoryUser, "email", model.IsNotNullOp), "x IS NOT NULL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := compileCondition(tc.condition, "x")
			require.NoError(t, err)
			sql, err := plan.ToSQL(pred)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sql)
		})
	}
}

func TestCompileConditionErrors(t *testing.T) {
	unsupported := []model.Condition{
		{Operator: model.ContainsOp, Values: []interface{}{1}, ValueType: model.ValueTypeInteger},
		{Operator: model.NotContainsOp, Values: []interface{}{1.5}, ValueType: model.ValueTypeDouble},
		{Operator: "between", Values: []interface{}{1, 2}, ValueType: model.ValueTypeInteger},
		{Operator: model.EqualsOp, Values: []interface{}{"abc"}, ValueType: model.ValueTypeInteger},
		{Operator: model.GreaterThanOp, Values: []interface{}{"NaN"}, ValueType: model.ValueTypeDouble},
		{Operator: model.GreaterThanOp, Values: []interface{}{"Inf"}, ValueType: model.ValueTypeDouble},
		{Operator: model.GreaterThanOp, Values: []interface{}{"infinity"}, ValueType: model.ValueTypeFloat},
		{Operator: model.GreaterThanOp, Values: []interface{}{"0x1p4"}, ValueType: model.ValueTypeDouble},
		{Operator: model.GreaterThanOp, Values: []interface{}{"1_000"}, ValueType: model.ValueTypeInteger},
		{Operator: model.GreaterThanOp, Values: []interface{}{"1e400"}, ValueType: model.ValueTypeDouble},
		{Operator: model.InOp, Values: []interface{}{1, math.NaN()}, ValueType: model.ValueTypeDouble},
		{Operator: model.EqualsOp, Values: []interface{}{2.5}, ValueType: model.ValueTypeInteger},
	}
	for _, condition := range unsupported {
		_, err := compileCondition(condition, "x")
		var unsupportedErr *model.UnsupportedConditionError
		assert.True(t, errors.As(err, &unsupportedErr), "condition %s", condition)
		if unsupportedErr != nil {
			assert.Equal(t, condition.Operator, unsupportedErr.Condition.Operator)
		}
	}

	malformed := []model.Condition{
		stringCondition(model.ConditionCategoryGeo, "country", model.EqualsOp, "a", "b"),
		stringCondition(model.ConditionCategoryGeo, "country", model.InOp),
		stringCondition(model.ConditionCategoryGeo, "country", model.IsNullOp, "a"),
	}
	for _, condition := range malformed {
		_, err := compileCondition(condition, "x")
		var malformedErr *model.MalformedRequestError
		assert.True(t, errors.As(err, &malformedErr), "condition %s", condition)
	}
}

func TestCompileConditionGroup(t *testing.T) {
	group := &model.ConditionGroup{
		Operator: "OR",
		Conditions: []model.Condition{
			stringCondition(model.ConditionCategoryGeo, "country", model.EqualsOp, "US"),
			stringCondition(model.ConditionCategoryEvent, "p1", model.EqualsOp, "x"),
			stringCondition(model.ConditionCategoryOther, "platform", model.EqualsOp, "WEB"),
		},
	}

	t.Run("FlatOnly", func(t *testing.T) {
		pred, err := compileConditionGroup(group, flatColumn)
		require.NoError(t, err)
		sql, _ := plan.ToSQL(pred)
		assert.Equal(t, "(geo_country = 'US' OR platform = 'WEB')", sql)
	})

	t.Run("AllColumns", func(t *testing.T) {
		ctx := NewCompilationContext()
		pred, err := compileConditionGroup(group, ctx.anyColumn)
		require.NoError(t, err)
		sql, _ := plan.ToSQL(pred)
		assert.Equal(t, "(geo_country = 'US' OR event_p1 = 'x' OR platform = 'WEB')", sql)
		assert.Len(t, ctx.Extractions(), 1)
	})

	t.Run("SingleConditionHasNoOperator", func(t *testing.T) {
		pred, err := compileConditionGroup(andGroup(group.Conditions[0]), flatColumn)
		require.NoError(t, err)
		sql, _ := plan.ToSQL(pred)
		assert.Equal(t, "geo_country = 'US'", sql)
	})

	t.Run("Empty", func(t *testing.T) {
		pred, err := compileConditionGroup(nil, flatColumn)
		assert.NoError(t, err)
		assert.Nil(t, pred)

		pred, err = compileConditionGroup(andGroup(group.Conditions[1]), flatColumn)
		assert.NoError(t, err)
		assert.Nil(t, pred)
	})
}

func TestNestedConditionsShareExtractions(t *testing.T) {
	ctx := NewCompilationContext()
	first := andGroup(
		stringCondition(model.ConditionCategoryEvent, "p1", model.EqualsOp, "x"),
		model.Condition{Category: model.ConditionCategoryUser, Property: "age", Operator: model.GreaterThanOp,
			Values: []interface{}{18}, ValueType: model.ValueTypeInteger},
		stringCondition(model.ConditionCategoryGeo, "country", model.EqualsOp, "US"),
	)

	pred, err := compileConditionGroup(first, ctx.nestedColumn)
	require.NoError(t, err)
	sql, _ := plan.ToSQL(pred)
	assert.Equal(t, "(event_p1 = 'x' AND user_age > 18)", sql)
	columns := ctx.Extractions()
	require.Len(t, columns, 2)
	assert.Equal(t, "(SELECT MAX(ep.value.string_value) FROM tmp_data e, e.event_params ep "+
		"WHERE ep.key = 'p1' AND e.event_id = base.event_id) AS event_p1", columns[0].String())
	assert.Equal(t, "(SELECT MAX(up.value.int_value) FROM tmp_data e, e.user_properties up "+
		"WHERE up.key = 'age' AND e.event_id = base.event_id) AS user_age", columns[1].String())

	second := andGroup(stringCondition(model.ConditionCategoryEvent, "p1", model.NotEqualOp, "y"))
	pred, err = compileConditionGroup(second, ctx.nestedColumn)
	require.NoError(t, err)
	sql, _ = plan.ToSQL(pred)
	assert.Equal(t, "event_p1 <> 'y'", sql)
	assert.Len(t, ctx.Extractions(), 2)
}

func TestExtractionAliases(t *testing.T) {
	ctx := NewCompilationContext()
	assert.Equal(t, "event_page_title", ctx.extract(model.ConditionCategoryEvent, "page-title", model.ValueTypeString))
	assert.Equal(t, "event_page_title_1", ctx.extract(model.ConditionCategoryEvent, "page_title", model.ValueTypeString))
	assert.Equal(t, "event_page_title", ctx.extract(model.ConditionCategoryEvent, "page-title", model.ValueTypeString))
	assert.Equal(t, "user_page_title", ctx.extract(model.ConditionCategoryUser, "page_title", model.ValueTypeString))

	sql, _ := plan.Render(&plan.Select{Columns: ctx.Extractions(), From: "tmp_data base"})
	assert.Equal(t, 1, strings.Count(sql, "ep.key = 'page-title'"))
}
