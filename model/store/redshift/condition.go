package redshift

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

// valueColumns maps a value type to the field of the nested value struct holding it.
var valueColumns = map[model.ValueType]string{
	model.ValueTypeString:  "string_value",
	model.ValueTypeInteger: "int_value",
	model.ValueTypeFloat:   "float_value",
	model.ValueTypeDouble:  "double_value",
}

var comparisonOps = map[model.ConditionOperator]string{
	model.EqualsOp:             "=",
	model.NotEqualOp:           "<>",
	model.GreaterThanOp:        ">",
	model.GreaterThanOrEqualOp: ">=",
	model.LesserThanOp:         "<",
	model.LesserThanOrEqualOp:  "<=",
}

// CompilationContext tracks the nested properties extracted while compiling one
// request. Each (category, property) pair is extracted once and shared by every
// step that references it.
type CompilationContext struct {
	source      string
	aliases     map[string]string
	usedAliases map[string]bool
	extractions []plan.Column
}

func NewCompilationContext() *CompilationContext {
	return &CompilationContext{
		source:      tableTmpData,
		aliases:     make(map[string]string),
		usedAliases: make(map[string]bool),
		extractions: make([]plan.Column, 0),
	}
}

// Extractions returns the extraction columns in first use order.
func (ctx *CompilationContext) Extractions() []plan.Column {
	return ctx.extractions
}

func extractionKey(category model.ConditionCategory, property string) string {
	return string(category) + "\x00" + property
}

// nestedValueExpr is a correlated lookup of one nested property for the current base row.
func nestedValueExpr(source string, category model.ConditionCategory, property string, valueType model.ValueType) string {
	array, alias := colEventParams, "ep"
	if category == model.ConditionCategoryUser {
		array, alias = colUserProperties, "up"
	}
	valueColumn, ok := valueColumns[valueType]
	if !ok {
		valueColumn = valueColumns[model.ValueTypeString]
	}
	return fmt.Sprintf("(SELECT MAX(%s.value.%s) FROM %s e, e.%s %s WHERE %s.key = %s AND e.event_id = %s.event_id)",
		alias, valueColumn, source, array, alias, alias, U.QuoteLiteral(property), aliasBase)
}

// extract returns the alias of the extraction column for a nested property,
// registering the extraction on first use.
func (ctx *CompilationContext) extract(category model.ConditionCategory, property string, valueType model.ValueType) string {
	key := extractionKey(category, property)
	if alias, exists := ctx.aliases[key]; exists {
		return alias
	}

	base := fmt.Sprintf("%s_%s", category, U.SanitizeIdentifier(property))
	alias := base
	for n := 1; ctx.usedAliases[alias] || isCatalogColumn(alias); n++ {
		alias = suffixed(base, n)
	}
	ctx.aliases[key] = alias
	ctx.usedAliases[alias] = true
	ctx.extractions = append(ctx.extractions,
		plan.As(nestedValueExpr(ctx.source, category, property, valueType), alias))
	return alias
}

// columnResolver maps a condition to the column it filters on. ok is false for
// conditions the caller compiles elsewhere.
type columnResolver func(condition model.Condition) (column string, ok bool)

func flatColumn(condition model.Condition) (string, bool) {
	if condition.Category.IsNested() {
		return "", false
	}
	return condition.Category.ColumnPrefix() + condition.Property, true
}

func (ctx *CompilationContext) nestedColumn(condition model.Condition) (string, bool) {
	if !condition.Category.IsNested() {
		return "", false
	}
	return ctx.extract(condition.Category, condition.Property, condition.ValueType), true
}

func (ctx *CompilationContext) anyColumn(condition model.Condition) (string, bool) {
	if condition.Category.IsNested() {
		return ctx.nestedColumn(condition)
	}
	return flatColumn(condition)
}

// columnFor resolves a join column reference the same way conditions are resolved.
func (ctx *CompilationContext) columnFor(ref *model.JoinColumnRef) string {
	valueType := ref.ValueType
	if valueType == "" {
		valueType = model.ValueTypeString
	}
	column, _ := ctx.anyColumn(model.Condition{Category: ref.Category, Property: ref.Property, ValueType: valueType})
	return column
}

// Plain decimal numbers. Hex floats, NaN and Inf are not valid SQL literals.
var decimalRegex = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

func renderValue(condition model.Condition, value interface{}) (string, error) {
	text := fmt.Sprint(value)
	if !condition.ValueType.IsNumeric() {
		return U.QuoteLiteral(text), nil
	}
	notNumeric := &model.UnsupportedConditionError{Condition: condition,
		Reason: fmt.Sprintf("value %q is not numeric", text)}
	if !decimalRegex.MatchString(text) {
		return "", notNumeric
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", notNumeric
	}
	if condition.ValueType != model.ValueTypeInteger {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	if f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return "", &model.UnsupportedConditionError{Condition: condition,
			Reason: fmt.Sprintf("value %q is not an integer", text)}
	}
	return strconv.FormatInt(int64(f), 10), nil
}

func renderValues(condition model.Condition) ([]string, error) {
	values := make([]string, 0, len(condition.Values))
	for _, v := range condition.Values {
		rendered, err := renderValue(condition, v)
		if err != nil {
			return nil, err
		}
		values = append(values, rendered)
	}
	return values, nil
}

func expectValues(condition model.Condition, min, max int) error {
	n := len(condition.Values)
	if n < min || (max >= 0 && n > max) {
		return model.NewMalformedRequestError("condition",
			"operator %s on %s takes %s, got %d", condition.Operator, condition.Property, valueCountText(min, max), n)
	}
	return nil
}

func valueCountText(min, max int) string {
	switch {
	case max < 0:
		return fmt.Sprintf("at least %d values", min)
	case min == max && min == 1:
		return "one value"
	case min == max:
		return fmt.Sprintf("%d values", min)
	}
	return fmt.Sprintf("%d to %d values", min, max)
}

// compileCondition renders one condition against column.
func compileCondition(condition model.Condition, column string) (plan.Predicate, error) {
	if op, ok := comparisonOps[condition.Operator]; ok {
		if err := expectValues(condition, 1, 1); err != nil {
			return nil, err
		}
		value, err := renderValue(condition, condition.Values[0])
		if err != nil {
			return nil, err
		}
		return plan.Compare(column, op, value), nil
	}

	switch condition.Operator {
	case model.InOp, model.NotInOp:
		if err := expectValues(condition, 1, -1); err != nil {
			return nil, err
		}
		values, err := renderValues(condition)
		if err != nil {
			return nil, err
		}
		if condition.Operator == model.InOp {
			return plan.In(column, values), nil
		}
		return plan.NotIn(column, values), nil

	case model.ContainsOp, model.NotContainsOp:
		if condition.ValueType.IsNumeric() {
			return nil, &model.UnsupportedConditionError{Condition: condition,
				Reason: "contains is only supported on string values"}
		}
		if err := expectValues(condition, 1, 1); err != nil {
			return nil, err
		}
		pattern := U.QuoteLiteral("%" + fmt.Sprint(condition.Values[0]) + "%")
		if condition.Operator == model.ContainsOp {
			return plan.Like(column, pattern), nil
		}
		return plan.NotLike(column, pattern), nil

	case model.IsNullOp:
		if err := expectValues(condition, 0, 0); err != nil {
			return nil, err
		}
		return plan.IsNull(column), nil

	case model.IsNotNullOp:
		if err := expectValues(condition, 0, 0); err != nil {
			return nil, err
		}
		return plan.IsNotNull(column), nil
	}

	return nil, &model.UnsupportedConditionError{Condition: condition,
		Reason: fmt.Sprintf("unknown operator %q", condition.Operator)}
}

// compileConditionGroup joins the conditions resolved by resolve with the group
// operator. Returns nil when no condition applies.
func compileConditionGroup(group *model.ConditionGroup, resolve columnResolver) (plan.Predicate, error) {
	if group.IsEmpty() {
		return nil, nil
	}

	preds := make([]plan.Predicate, 0, len(group.Conditions))
	for _, condition := range group.Conditions {
		column, ok := resolve(condition)
		if !ok {
			continue
		}
		pred, err := compileCondition(condition, column)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	if group.NormalizedOperator() == model.LogicalOpOr {
		return plan.Or(preds...), nil
	}
	return plan.And(preds...), nil
}
