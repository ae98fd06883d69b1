package model

import (
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

const (
	TimeScopeTypeFixed    = "fixed"
	TimeScopeTypeRelative = "relative"
)

type timeScopeYAML struct {
	Type  string `yaml:"type"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	LastN int    `yaml:"last_n"`
	Unit  string `yaml:"unit"`
}

type requestEnvelope struct {
	Kind      AnalysisKind   `yaml:"kind"`
	TimeScope *timeScopeYAML `yaml:"time_scope"`
}

func (t *timeScopeYAML) toTimeScope() (TimeScope, error) {
	switch strings.ToLower(t.Type) {
	case TimeScopeTypeFixed:
		start, err := U.ParseDate(t.Start)
		if err != nil {
			return nil, newMalformed("time_scope.start", "invalid date %q", t.Start)
		}
		end, err := U.ParseDate(t.End)
		if err != nil {
			return nil, newMalformed("time_scope.end", "invalid date %q", t.End)
		}
		return FixedRange{Start: start, End: end}, nil
	case TimeScopeTypeRelative:
		return RelativeRange{LastN: t.LastN, Unit: RelativeTimeUnit(strings.ToUpper(t.Unit))}, nil
	}
	return nil, newMalformed("time_scope.type", "unknown time scope type %q", t.Type)
}

// DecodeAnalysisYAML decodes a request document. The kind key selects the variant
// and time_scope is decoded into a FixedRange or a RelativeRange.
func DecodeAnalysisYAML(raw []byte) (Analysis, error) {
	var envelope requestEnvelope
	if err := yaml.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to decode analysis request")
	}

	var analysis Analysis
	switch envelope.Kind {
	case AnalysisKindFunnel:
		analysis = &FunnelRequest{}
	case AnalysisKindEvent:
		analysis = &EventRequest{}
	case AnalysisKindPath:
		analysis = &PathRequest{}
	case AnalysisKindRetention:
		analysis = &RetentionRequest{}
	default:
		return nil, newMalformed("kind", "unknown analysis kind %q", envelope.Kind)
	}

	if err := yaml.Unmarshal(raw, analysis); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s request", envelope.Kind)
	}

	if envelope.TimeScope != nil {
		scope, err := envelope.TimeScope.toTimeScope()
		if err != nil {
			return nil, err
		}
		analysis.GetBase().TimeScope = scope
	}
	return analysis, nil
}
