package model

import (
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

func (r *AnalysisRequest) validate(requireSteps bool) error {
	if r.Schema == "" {
		return newMalformed("schema", ErrMsgMissingSchema)
	}
	if !U.IsValidIdentifier(r.Schema) {
		return newMalformed("schema", "invalid identifier %q", r.Schema)
	}
	if r.ViewName == "" {
		return newMalformed("view_name", ErrMsgMissingViewName)
	}
	if !U.IsValidIdentifier(r.ViewName) {
		return newMalformed("view_name", "invalid identifier %q", r.ViewName)
	}
	switch r.ComputeMethod {
	case ComputeMethodDistinctUser, ComputeMethodDistinctEvent:
	default:
		return newMalformed("compute_method", "%s %q", ErrMsgInvalidComputeMethod, r.ComputeMethod)
	}
	if r.GroupColumn != "" && !U.ContainsStringInArray(GroupColumns, r.GroupColumn) {
		return newMalformed("group_column", ErrMsgInvalidGroupColumn)
	}
	if err := validateTimeScope(r.TimeScope); err != nil {
		return err
	}
	if requireSteps && len(r.EventSteps) == 0 {
		return newMalformed("event_steps", ErrMsgMissingEventSteps)
	}
	for i := range r.EventSteps {
		if err := validateEventStep(&r.EventSteps[i], "event_steps"); err != nil {
			return err
		}
	}
	return validateConditionGroup(r.GlobalCondition, "global_condition")
}

// GroupColumnOrDefault returns the bucket column, day when unset.
func (r *AnalysisRequest) GroupColumnOrDefault() string {
	if r.GroupColumn == "" {
		return GroupColumnDay
	}
	return r.GroupColumn
}

func validateTimeScope(scope TimeScope) error {
	switch s := scope.(type) {
	case nil:
		return newMalformed("time_scope", ErrMsgMissingTimeScope)
	case FixedRange:
		if s.Start.IsZero() || s.End.IsZero() {
			return newMalformed("time_scope", "fixed range needs start and end")
		}
		if s.End.Before(s.Start) {
			return newMalformed("time_scope", "end %s is before start %s",
				s.End.Format(U.DATETIME_FORMAT_YYYYMMDD_HYPHEN), s.Start.Format(U.DATETIME_FORMAT_YYYYMMDD_HYPHEN))
		}
	case RelativeRange:
		if s.LastN <= 0 {
			return newMalformed("time_scope", "last_n must be positive, got %d", s.LastN)
		}
		switch s.Unit {
		case RelativeTimeUnitDay, RelativeTimeUnitWeek, RelativeTimeUnitMonth, RelativeTimeUnitQuarter:
		default:
			return newMalformed("time_scope", "unknown unit %q", s.Unit)
		}
	default:
		return newMalformed("time_scope", "unknown time scope %T", scope)
	}
	return nil
}

func validateEventStep(step *EventStep, field string) error {
	if step.EventName == "" {
		return newMalformed(field, ErrMsgMissingEventName)
	}
	switch step.ComputeMethod {
	case "", ComputeMethodDistinctUser, ComputeMethodDistinctEvent:
	default:
		return newMalformed(field, "%s %q", ErrMsgInvalidComputeMethod, step.ComputeMethod)
	}
	return validateConditionGroup(step.Condition, field+".condition")
}

func validateConditionGroup(group *ConditionGroup, field string) error {
	if group == nil {
		return nil
	}
	if group.Operator != "" && !isValidLogicalOp(group.Operator) {
		return newMalformed(field, "invalid logical operator %q", group.Operator)
	}
	for _, c := range group.Conditions {
		if !c.Category.IsValid() {
			return newMalformed(field, "invalid category %q", c.Category)
		}
		if c.Property == "" {
			return newMalformed(field, "condition property is required")
		}
		if !c.Category.IsNested() && !U.IsValidIdentifier(c.Category.ColumnPrefix()+c.Property) {
			return newMalformed(field, "invalid property %q", c.Property)
		}
		switch c.ValueType {
		case ValueTypeString, ValueTypeInteger, ValueTypeFloat, ValueTypeDouble:
		default:
			return newMalformed(field, "invalid value type %q", c.ValueType)
		}
	}
	return nil
}

func (r *FunnelRequest) Validate() error {
	if err := r.AnalysisRequest.validate(true); err != nil {
		return err
	}
	if r.JoinSpec.SpecifyJoinColumn && r.JoinSpec.JoinColumn == "" {
		return newMalformed("join_spec", "join column is required when specify_join_column is set")
	}
	switch r.ConversionWindow.Type {
	case ConversionWindowCustom:
		if r.ConversionWindow.Seconds <= 0 {
			return newMalformed("conversion_window", "seconds must be positive, got %d", r.ConversionWindow.Seconds)
		}
	case ConversionWindowCalendarDay:
	default:
		return newMalformed("conversion_window", "unknown window type %q", r.ConversionWindow.Type)
	}
	return nil
}

func (r *EventRequest) Validate() error {
	return r.AnalysisRequest.validate(true)
}

func (r *PathRequest) Validate() error {
	spec := r.PathSpec
	if err := r.AnalysisRequest.validate(spec.NodeType == PathNodeTypeEvent); err != nil {
		return err
	}
	switch spec.SessionMode {
	case PathSessionModeSession:
	case PathSessionModeLag:
		if spec.LagSeconds <= 0 {
			return newMalformed("path_spec", "lag_seconds must be positive, got %d", spec.LagSeconds)
		}
	default:
		return newMalformed("path_spec", "unknown session mode %q", spec.SessionMode)
	}
	switch spec.NodeType {
	case PathNodeTypeEvent, PathNodeTypeAttributeName:
	default:
		return newMalformed("path_spec", "unknown node type %q", spec.NodeType)
	}
	if spec.MaxDepth < 0 {
		return newMalformed("path_spec", "max_depth must not be negative, got %d", spec.MaxDepth)
	}
	return nil
}

func (r *RetentionRequest) Validate() error {
	if err := r.AnalysisRequest.validate(false); err != nil {
		return err
	}
	if len(r.RetentionPairs) == 0 {
		return newMalformed("retention_pairs", "at least one retention pair is required")
	}
	for i := range r.RetentionPairs {
		pair := &r.RetentionPairs[i]
		if err := validateEventStep(&pair.StartEvent, "retention_pairs.start_event"); err != nil {
			return err
		}
		if err := validateEventStep(&pair.ReturnEvent, "retention_pairs.return_event"); err != nil {
			return err
		}
		if (pair.StartJoinColumn == nil) != (pair.ReturnJoinColumn == nil) {
			return newMalformed("retention_pairs", "join columns must be given for both start and return events")
		}
		for _, ref := range []*JoinColumnRef{pair.StartJoinColumn, pair.ReturnJoinColumn} {
			if ref == nil {
				continue
			}
			if !ref.Category.IsValid() || ref.Property == "" {
				return newMalformed("retention_pairs", "invalid join column %s.%s", ref.Category, ref.Property)
			}
			if !ref.Category.IsNested() && !U.IsValidIdentifier(ref.Category.ColumnPrefix()+ref.Property) {
				return newMalformed("retention_pairs", "invalid join column property %q", ref.Property)
			}
		}
	}
	return nil
}

// RetentionEventNames returns the distinct start and return event names of all pairs.
func (r *RetentionRequest) RetentionEventNames() []string {
	names := make([]string, 0)
	for _, pair := range r.RetentionPairs {
		for _, name := range []string{pair.StartEvent.EventName, pair.ReturnEvent.EventName} {
			if !U.ContainsStringInArray(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}
