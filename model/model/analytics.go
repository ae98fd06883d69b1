package model

import (
	"fmt"
	"time"
)

type AnalysisKind string

const (
	AnalysisKindFunnel    AnalysisKind = "funnel"
	AnalysisKindEvent     AnalysisKind = "event"
	AnalysisKindPath      AnalysisKind = "path"
	AnalysisKindRetention AnalysisKind = "retention"
)

type ComputeMethod string

const (
	ComputeMethodDistinctUser  ComputeMethod = "DISTINCT_USER"
	ComputeMethodDistinctEvent ComputeMethod = "DISTINCT_EVENT"
)

const (
	GroupColumnHour  = "hour"
	GroupColumnDay   = "day"
	GroupColumnWeek  = "week"
	GroupColumnMonth = "month"
)

// GroupColumns are the time bucket columns projected by every base table, in projection order.
var GroupColumns = []string{GroupColumnMonth, GroupColumnWeek, GroupColumnDay, GroupColumnHour}

type ConversionWindowType string

const (
	ConversionWindowCustom      ConversionWindowType = "CUSTOM"
	ConversionWindowCalendarDay ConversionWindowType = "CALENDAR_DAY"
)

type PathSessionMode string

const (
	PathSessionModeSession PathSessionMode = "SESSION"
	PathSessionModeLag     PathSessionMode = "LAG"
)

type PathNodeType string

const (
	PathNodeTypeEvent         PathNodeType = "EVENT"
	PathNodeTypeAttributeName PathNodeType = "ATTRIBUTE_NAME"
)

const (
	PlatformAndroid     = "ANDROID"
	PlatformIOS         = "IOS"
	PlatformWeb         = "WEB"
	PlatformWechatMP    = "WECHAT_MINIPROGRAM"
	EventScreenView     = "_screen_view"
	EventPageView       = "_page_view"
	AttributeScreenName = "_screen_name"
	AttributePageTitle  = "_page_title"
	AttributeSessionID  = "_session_id"
)

const (
	ErrMsgMissingSchema        = "schema is required"
	ErrMsgMissingViewName      = "view name is required"
	ErrMsgMissingEventSteps    = "at least one event step is required"
	ErrMsgMissingTimeScope     = "time scope is required"
	ErrMsgMissingEventName     = "event name is required"
	ErrMsgInvalidComputeMethod = "unknown compute method"
	ErrMsgInvalidGroupColumn   = "group column must be one of hour, day, week, month"
)

type AnalysisRequest struct {
	Schema          string          `json:"schema" yaml:"schema"`
	ViewName        string          `json:"view_name" yaml:"view_name"`
	ComputeMethod   ComputeMethod   `json:"compute_method" yaml:"compute_method"`
	GlobalCondition *ConditionGroup `json:"global_condition" yaml:"global_condition"`
	EventSteps      []EventStep     `json:"event_steps" yaml:"event_steps"`
	TimeScope       TimeScope       `json:"-" yaml:"-"`
	GroupColumn     string          `json:"group_column" yaml:"group_column"`
}

type EventStep struct {
	EventName string          `json:"event_name" yaml:"event_name"`
	Condition *ConditionGroup `json:"condition" yaml:"condition"`
	// Overrides the request compute method for this step. Only event analysis reads it.
	ComputeMethod ComputeMethod `json:"compute_method" yaml:"compute_method"`
}

// Analysis is implemented by the four request variants.
type Analysis interface {
	GetKind() AnalysisKind
	GetBase() *AnalysisRequest
	Validate() error
}

type JoinSpec struct {
	SpecifyJoinColumn bool   `json:"specify_join_column" yaml:"specify_join_column"`
	JoinColumn        string `json:"join_column" yaml:"join_column"`
}

type ConversionWindow struct {
	Type    ConversionWindowType `json:"type" yaml:"type"`
	Seconds int64                `json:"seconds" yaml:"seconds"`
}

type FunnelRequest struct {
	AnalysisRequest  `yaml:",inline"`
	JoinSpec         JoinSpec         `json:"join_spec" yaml:"join_spec"`
	ConversionWindow ConversionWindow `json:"conversion_window" yaml:"conversion_window"`
}

type EventRequest struct {
	AnalysisRequest `yaml:",inline"`
}

type PathSpec struct {
	SessionMode PathSessionMode `json:"session_mode" yaml:"session_mode"`
	NodeType    PathNodeType    `json:"node_type" yaml:"node_type"`
	// Event parameter holding the node value for attribute nodes.
	NodeAttribute string   `json:"node_attribute" yaml:"node_attribute"`
	LagSeconds    int64    `json:"lag_seconds" yaml:"lag_seconds"`
	MaxDepth      int      `json:"max_depth" yaml:"max_depth"`
	NodeValues    []string `json:"node_values" yaml:"node_values"`
	Platform      string   `json:"platform" yaml:"platform"`
}

type PathRequest struct {
	AnalysisRequest `yaml:",inline"`
	PathSpec        PathSpec `json:"path_spec" yaml:"path_spec"`
}

// JoinColumnRef names the attribute a retention pair must share between start and return events.
type JoinColumnRef struct {
	Category  ConditionCategory `json:"category" yaml:"category"`
	Property  string            `json:"property" yaml:"property"`
	ValueType ValueType         `json:"value_type" yaml:"value_type"`
}

type RetentionPair struct {
	StartEvent       EventStep      `json:"start_event" yaml:"start_event"`
	ReturnEvent      EventStep      `json:"return_event" yaml:"return_event"`
	StartJoinColumn  *JoinColumnRef `json:"start_join_column" yaml:"start_join_column"`
	ReturnJoinColumn *JoinColumnRef `json:"return_join_column" yaml:"return_join_column"`
}

type RetentionRequest struct {
	AnalysisRequest `yaml:",inline"`
	RetentionPairs  []RetentionPair `json:"retention_pairs" yaml:"retention_pairs"`
}

func (r *FunnelRequest) GetKind() AnalysisKind    { return AnalysisKindFunnel }
func (r *EventRequest) GetKind() AnalysisKind     { return AnalysisKindEvent }
func (r *PathRequest) GetKind() AnalysisKind      { return AnalysisKindPath }
func (r *RetentionRequest) GetKind() AnalysisKind { return AnalysisKindRetention }

func (r *FunnelRequest) GetBase() *AnalysisRequest    { return &r.AnalysisRequest }
func (r *EventRequest) GetBase() *AnalysisRequest     { return &r.AnalysisRequest }
func (r *PathRequest) GetBase() *AnalysisRequest      { return &r.AnalysisRequest }
func (r *RetentionRequest) GetBase() *AnalysisRequest { return &r.AnalysisRequest }

// EffectiveComputeMethod returns the step override when set, the request method otherwise.
func (s *EventStep) EffectiveComputeMethod(fallback ComputeMethod) ComputeMethod {
	if s.ComputeMethod != "" {
		return s.ComputeMethod
	}
	return fallback
}

// EventNames returns the distinct step event names in step order.
func (r *AnalysisRequest) EventNames() []string {
	names := make([]string, 0, len(r.EventSteps))
	seen := make(map[string]bool)
	for _, step := range r.EventSteps {
		if seen[step.EventName] {
			continue
		}
		seen[step.EventName] = true
		names = append(names, step.EventName)
	}
	return names
}

// TimeScope is either a FixedRange or a RelativeRange.
type TimeScope interface {
	isTimeScope()
}

// FixedRange is inclusive on both calendar days.
type FixedRange struct {
	Start time.Time
	End   time.Time
}

type RelativeTimeUnit string

const (
	RelativeTimeUnitDay     RelativeTimeUnit = "DAY"
	RelativeTimeUnitWeek    RelativeTimeUnit = "WEEK"
	RelativeTimeUnitMonth   RelativeTimeUnit = "MONTH"
	RelativeTimeUnitQuarter RelativeTimeUnit = "QUARTER"
)

// RelativeRange covers the last LastN units up to the current date.
type RelativeRange struct {
	LastN int
	Unit  RelativeTimeUnit
}

func (FixedRange) isTimeScope()    {}
func (RelativeRange) isTimeScope() {}

func (r FixedRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

func (r RelativeRange) String() string {
	return fmt.Sprintf("last %d %s", r.LastN, r.Unit)
}
