package model

import (
	"fmt"
	"strings"
)

type ConditionCategory string

const (
	ConditionCategoryUser          ConditionCategory = "user"
	ConditionCategoryEvent         ConditionCategory = "event"
	ConditionCategoryDevice        ConditionCategory = "device"
	ConditionCategoryGeo           ConditionCategory = "geo"
	ConditionCategoryApp           ConditionCategory = "app_info"
	ConditionCategoryTrafficSource ConditionCategory = "traffic_source"
	ConditionCategoryOther         ConditionCategory = "other"
)

// IsNested reports whether values of the category live in the nested
// event_params / user_properties arrays rather than in flat columns.
func (c ConditionCategory) IsNested() bool {
	return c == ConditionCategoryUser || c == ConditionCategoryEvent
}

// ColumnPrefix is the prefix of the flattened column for non nested categories.
func (c ConditionCategory) ColumnPrefix() string {
	if c == ConditionCategoryOther || c.IsNested() {
		return ""
	}
	return string(c) + "_"
}

func (c ConditionCategory) IsValid() bool {
	switch c {
	case ConditionCategoryUser, ConditionCategoryEvent, ConditionCategoryDevice, ConditionCategoryGeo,
		ConditionCategoryApp, ConditionCategoryTrafficSource, ConditionCategoryOther:
		return true
	}
	return false
}

type ConditionOperator string

const (
	EqualsOp             ConditionOperator = "="
	NotEqualOp           ConditionOperator = "<>"
	GreaterThanOp        ConditionOperator = ">"
	GreaterThanOrEqualOp ConditionOperator = ">="
	LesserThanOp         ConditionOperator = "<"
	LesserThanOrEqualOp  ConditionOperator = "<="
	InOp                 ConditionOperator = "in"
	NotInOp              ConditionOperator = "not_in"
	ContainsOp           ConditionOperator = "contains"
	NotContainsOp        ConditionOperator = "not_contains"
	IsNullOp             ConditionOperator = "is_null"
	IsNotNullOp          ConditionOperator = "is_not_null"
)

type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeFloat   ValueType = "float"
	ValueTypeDouble  ValueType = "double"
)

func (v ValueType) IsNumeric() bool {
	return v == ValueTypeInteger || v == ValueTypeFloat || v == ValueTypeDouble
}

type LogicalOperator string

const (
	LogicalOpAnd LogicalOperator = "and"
	LogicalOpOr  LogicalOperator = "or"
)

type Condition struct {
	Category  ConditionCategory `json:"category" yaml:"category"`
	Property  string            `json:"property" yaml:"property"`
	Operator  ConditionOperator `json:"operator" yaml:"operator"`
	Values    []interface{}     `json:"values" yaml:"values"`
	ValueType ValueType         `json:"value_type" yaml:"value_type"`
}

func (c Condition) String() string {
	return fmt.Sprintf("%s.%s %s %v (%s)", c.Category, c.Property, c.Operator, c.Values, c.ValueType)
}

type ConditionGroup struct {
	Operator   LogicalOperator `json:"operator" yaml:"operator"`
	Conditions []Condition     `json:"conditions" yaml:"conditions"`
}

func (g *ConditionGroup) IsEmpty() bool {
	return g == nil || len(g.Conditions) == 0
}

// HasNested reports whether any condition of the group needs nested extraction.
func (g *ConditionGroup) HasNested() bool {
	if g == nil {
		return false
	}
	for _, c := range g.Conditions {
		if c.Category.IsNested() {
			return true
		}
	}
	return false
}

func isValidLogicalOp(op LogicalOperator) bool {
	switch LogicalOperator(strings.ToLower(string(op))) {
	case LogicalOpAnd, LogicalOpOr:
		return true
	}
	return false
}

// NormalizedOperator returns the lower case operator, AND when unset.
func (g *ConditionGroup) NormalizedOperator() LogicalOperator {
	if g == nil || g.Operator == "" {
		return LogicalOpAnd
	}
	return LogicalOperator(strings.ToLower(string(g.Operator)))
}
