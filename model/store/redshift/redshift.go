// Package redshift compiles analysis requests into Redshift view definitions.
package redshift

import (
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
)

type Redshift struct{}

func (r *Redshift) BuildFunnelView(req *model.FunnelRequest) (string, error) {
	return BuildFunnelView(req)
}

func (r *Redshift) BuildFunnelChartView(req *model.FunnelRequest) (string, error) {
	return BuildFunnelChartView(req)
}

func (r *Redshift) BuildEventAnalysisView(req *model.EventRequest) (string, error) {
	return BuildEventAnalysisView(req)
}

func (r *Redshift) BuildPathView(req *model.PathRequest) (string, error) {
	return BuildPathView(req)
}

func (r *Redshift) BuildRetentionView(req *model.RetentionRequest) (string, error) {
	return BuildRetentionView(req)
}

func (r *Redshift) Compile(analysis model.Analysis) (string, error) {
	return Compile(analysis)
}
