package redshift

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

// renderView renders the view statement, pretty printed unless disabled by config.
func renderView(view *plan.View, logFields log.Fields) (string, error) {
	sql, err := plan.Render(view)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to render view.")
		return "", errors.Wrapf(err, "failed to render view %s.%s", view.Schema, view.Name)
	}
	if C.IsSQLFormatEnabled() {
		sql = U.FormatSQL(sql)
	}
	return sql, nil
}

func compilationStatus(err error) string {
	var unsupported *model.UnsupportedConditionError
	var malformed *model.MalformedRequestError
	switch {
	case err == nil:
		return metricStatusSuccess
	case errors.As(err, &unsupported):
		return metricStatusUnsupported
	case errors.As(err, &malformed):
		return metricStatusMalformed
	}
	return metricStatusError
}

func isNilAnalysis(analysis model.Analysis) bool {
	if analysis == nil {
		return true
	}
	v := reflect.ValueOf(analysis)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Compile builds the view of any analysis kind.
func Compile(analysis model.Analysis) (string, error) {
	if isNilAnalysis(analysis) {
		return "", model.NewMalformedRequestError("analysis", "request is required")
	}
	kind := analysis.GetKind()
	logFields := log.Fields{"kind": kind}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	var sql string
	var err error
	switch req := analysis.(type) {
	case *model.FunnelRequest:
		sql, err = BuildFunnelView(req)
	case *model.EventRequest:
		sql, err = BuildEventAnalysisView(req)
	case *model.PathRequest:
		sql, err = BuildPathView(req)
	case *model.RetentionRequest:
		sql, err = BuildRetentionView(req)
	default:
		err = model.NewMalformedRequestError("analysis", "unsupported analysis %T", analysis)
	}

	viewCompilations.WithLabelValues(string(kind), compilationStatus(err)).Inc()
	if err != nil {
		return "", err
	}
	viewSQLBytes.WithLabelValues(string(kind)).Observe(float64(len(sql)))
	return sql, nil
}
