package redshift

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

// Columns carried by every funnel step table, suffixed with the step index.
var funnelStepColumns = []string{colEventDate, colEventName, colEventID, colEventTimestamp, colUserPseudoID}

func funnelJoinColumn(req *model.FunnelRequest) (string, error) {
	if !req.JoinSpec.SpecifyJoinColumn {
		return "", nil
	}
	column := req.JoinSpec.JoinColumn
	if !isCatalogColumn(column) {
		return "", model.NewMalformedRequestError("join_spec", "unknown join column %q", column)
	}
	return column, nil
}

func funnelStepTable(index int, stepPred plan.Predicate, joinColumn string) *plan.Select {
	columns := make([]plan.Column, 0)
	if index == 0 {
		for _, bucket := range model.GroupColumns {
			columns = append(columns, plan.Col(bucket))
		}
	}
	for _, column := range funnelStepColumns {
		columns = append(columns, plan.As(column, suffixed(column, index)))
	}
	if joinColumn != "" && !U.ContainsStringInArray(funnelStepColumns, joinColumn) {
		columns = append(columns, plan.As(joinColumn, suffixed(joinColumn, index)))
	}
	return &plan.Select{
		Columns: columns,
		From:    tableBaseData + " " + aliasBase,
		Where:   stepPred,
	}
}

// funnelJoinPredicate links step index to the previous step: same join key value
// (or any row) and the conversion window.
func funnelJoinPredicate(index int, joinColumn string, window model.ConversionWindow) plan.Predicate {
	prev, cur := stepTable(index-1), stepTable(index)

	key := plan.True
	if joinColumn != "" {
		key = plan.Eq(qualified(prev, suffixed(joinColumn, index-1)), qualified(cur, suffixed(joinColumn, index)))
	}

	prevTs := qualified(prev, suffixed(colEventTimestamp, index-1))
	curTs := qualified(cur, suffixed(colEventTimestamp, index))
	if window.Type == model.ConversionWindowCalendarDay {
		return plan.And(key, plan.Eq(dayOfTimestamp(prevTs), dayOfTimestamp(curTs)))
	}

	elapsed := fmt.Sprintf("%s - %s", curTs, prevTs)
	return plan.And(key,
		plan.Compare(elapsed, ">", "0"),
		plan.Compare(elapsed, "<", fmt.Sprintf("%d", window.Seconds*1000)),
	)
}

func funnelJoinTable(stepCount int, joinColumn string, window model.ConversionWindow) *plan.Select {
	columns := []plan.Column{plan.Col(qualified(stepTable(0), "*"))}
	joins := make([]plan.Join, 0, stepCount-1)
	for i := 1; i < stepCount; i++ {
		for _, column := range funnelStepColumns {
			columns = append(columns, plan.Col(qualified(stepTable(i), suffixed(column, i))))
		}
		if joinColumn != "" && !U.ContainsStringInArray(funnelStepColumns, joinColumn) {
			columns = append(columns, plan.Col(qualified(stepTable(i), suffixed(joinColumn, i))))
		}
		joins = append(joins, plan.Join{
			Kind:  plan.LeftOuterJoin,
			Table: stepTable(i),
			On:    funnelJoinPredicate(i, joinColumn, window),
		})
	}
	return &plan.Select{Columns: columns, From: stepTable(0), Joins: joins}
}

// buildFunnelCtes returns the CTEs shared by the funnel views, ending with join_table.
func buildFunnelCtes(req *model.FunnelRequest) ([]plan.Cte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	joinColumn, err := funnelJoinColumn(req)
	if err != nil {
		return nil, err
	}

	ctx := NewCompilationContext()
	bt, err := buildBaseCTE(ctx, req.EventNames(), req.EventSteps, &req.AnalysisRequest)
	if err != nil {
		return nil, err
	}

	ctes := bt.Ctes(true)
	for i := range req.EventSteps {
		ctes = append(ctes, plan.Cte{Name: stepTable(i), Query: funnelStepTable(i, bt.stepPreds[i], joinColumn)})
	}
	ctes = append(ctes, plan.Cte{Name: tableJoin,
		Query: funnelJoinTable(len(req.EventSteps), joinColumn, req.ConversionWindow)})
	return ctes, nil
}

// buildFunnelPlan counts the identities reaching every step per time bucket, with
// the overall conversion rate and the rate of every step against the previous one.
func buildFunnelPlan(req *model.FunnelRequest) (*plan.View, error) {
	ctes, err := buildFunnelCtes(req)
	if err != nil {
		return nil, err
	}

	groupColumn := req.GroupColumnOrDefault()
	identity := identityColumn(req.ComputeMethod)
	names, rateNames := funnelColumnNames(stepEventNames(req.EventSteps), groupColumn)
	scale := C.GetRateScale()
	last := len(req.EventSteps) - 1

	counts := make([]string, 0, len(names))
	for i := range names {
		counts = append(counts, countDistinct(suffixed(identity, i)))
	}

	columns := []plan.Column{plan.Col(groupColumn)}
	for i, name := range names {
		columns = append(columns, plan.As(counts[i], U.QuoteIdentifierIfNeeded(name)))
		if i == 0 {
			columns = append(columns, plan.As(rateExpr(counts[last], counts[0], scale), colRate))
			continue
		}
		columns = append(columns, plan.As(rateExpr(counts[i], counts[i-1], scale), U.QuoteIdentifierIfNeeded(rateNames[i])))
	}

	body := &plan.Select{
		Columns: columns,
		From:    tableJoin,
		GroupBy: []string{groupColumn},
	}
	return &plan.View{
		Schema: req.Schema,
		Name:   req.ViewName,
		Body:   &plan.With{Ctes: ctes, Body: body},
	}, nil
}

// buildFunnelChartPlan lists the distinct identities of every step per day, the
// shape used by funnel chart visuals.
func buildFunnelChartPlan(req *model.FunnelRequest) (*plan.View, error) {
	ctes, err := buildFunnelCtes(req)
	if err != nil {
		return nil, err
	}

	idPrefix, idColumn := "u_id", colUserPseudoID
	if req.ComputeMethod == model.ComputeMethodDistinctEvent {
		idPrefix, idColumn = "e_id", colEventID
	}

	finalColumns := make([]plan.Column, 0)
	groupBy := make([]string, 0)
	for _, bucket := range model.GroupColumns {
		finalColumns = append(finalColumns, plan.Col(bucket))
		groupBy = append(groupBy, bucket)
	}
	for i := range req.EventSteps {
		finalColumns = append(finalColumns,
			plan.As(suffixed(colEventName, i), suffixed("e_name", i)),
			plan.As(suffixed(idColumn, i), suffixed(idPrefix, i)),
		)
		groupBy = append(groupBy, suffixed("e_name", i), suffixed(idPrefix, i))
	}
	ctes = append(ctes, plan.Cte{Name: tableFinal, Query: &plan.Select{
		Columns: finalColumns,
		From:    tableJoin,
		GroupBy: groupBy,
	}})

	union := &plan.Union{All: true}
	for i := range req.EventSteps {
		union.Selects = append(union.Selects, &plan.Select{
			Columns: []plan.Column{
				plan.As("day::date", colEventDate),
				plan.As(suffixed("e_name", i)+"::varchar", colEventName),
				plan.As(suffixed(idPrefix, i)+"::varchar", colXID),
			},
			From:  tableFinal,
			Where: plan.IsNotNull(suffixed(idPrefix, i)),
		})
	}

	return &plan.View{
		Schema: req.Schema,
		Name:   req.ViewName,
		Body:   &plan.With{Ctes: ctes, Body: union},
	}, nil
}

func BuildFunnelView(req *model.FunnelRequest) (string, error) {
	logFields := log.Fields{
		"schema":    req.Schema,
		"view_name": req.ViewName,
		"steps":     len(req.EventSteps),
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	view, err := buildFunnelPlan(req)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to build funnel view.")
		return "", err
	}
	return renderView(view, logFields)
}

func BuildFunnelChartView(req *model.FunnelRequest) (string, error) {
	logFields := log.Fields{
		"schema":    req.Schema,
		"view_name": req.ViewName,
		"steps":     len(req.EventSteps),
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	view, err := buildFunnelChartPlan(req)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to build funnel chart view.")
		return "", err
	}
	return renderView(view, logFields)
}
