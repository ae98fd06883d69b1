package model

import (
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
)

// Model - Interface of all methods to be implemented by the stores.
type Model interface {
	// funnel_analytics
	BuildFunnelView(req *model.FunnelRequest) (string, error)
	BuildFunnelChartView(req *model.FunnelRequest) (string, error)

	// event_analytics
	BuildEventAnalysisView(req *model.EventRequest) (string, error)

	// path_analysis
	BuildPathView(req *model.PathRequest) (string, error)

	// retention_analytics
	BuildRetentionView(req *model.RetentionRequest) (string, error)

	// view
	Compile(analysis model.Analysis) (string, error)
}
