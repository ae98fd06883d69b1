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

const (
	colFirstDate          = "first_date"
	colGrouping           = "grouping"
	colStartEventDate     = "start_event_date"
	colStartUserPseudoID  = "start_user_pseudo_id"
	colEndEventDate       = "end_event_date"
	colEndUserPseudoID    = "end_user_pseudo_id"
	colRetention          = "retention"
	colRetentionJoinValue = "join_value"
)

func firstTable(index int) string {
	return suffixed("first_table", index)
}

func secondTable(index int) string {
	return suffixed("second_table", index)
}

func dateListTable(dates []CalendarDate) plan.Query {
	if len(dates) == 0 {
		return &plan.Select{
			Columns: []plan.Column{plan.As("NULL::date", colEventDate)},
			Where:   plan.Raw("1 = 0"),
		}
	}
	union := &plan.Union{All: true}
	for _, d := range dates {
		union.Selects = append(union.Selects, &plan.Select{Columns: []plan.Column{plan.As(d.SQL(), colEventDate)}})
	}
	return union
}

// retentionEventTable selects the rows of one side of a pair whose date relates
// to the cohort date by dateOp.
func retentionEventTable(stepPred plan.Predicate, dateOp, joinColumn string) *plan.Select {
	columns := []plan.Column{
		plan.Col(qualified(aliasBase, colEventDate)),
		plan.Col(qualified(aliasBase, colEventName)),
		plan.Col(qualified(aliasBase, colUserPseudoID)),
	}
	if joinColumn != "" {
		columns = append(columns, plan.As(qualified(aliasBase, joinColumn), colRetentionJoinValue))
	}
	return &plan.Select{
		Columns: columns,
		From:    tableTmpBaseData + " " + aliasBase,
		Joins: []plan.Join{{
			Kind:  plan.InnerJoin,
			Table: tableFirstDate,
			On:    plan.Compare(qualified(aliasBase, colEventDate), dateOp, qualified(tableFirstDate, colFirstDate)),
		}},
		Where: stepPred,
	}
}

func retentionResult(index int, grouping string, joined bool) *plan.Select {
	first, second := firstTable(index), secondTable(index)
	on := []plan.Predicate{
		plan.Eq(qualified(tableDateList, colEventDate), qualified(second, colEventDate)),
		plan.Eq(qualified(first, colUserPseudoID), qualified(second, colUserPseudoID)),
	}
	if joined {
		on = append(on, plan.Eq(qualified(first, colRetentionJoinValue), qualified(second, colRetentionJoinValue)))
	}
	return &plan.Select{
		Columns: []plan.Column{
			plan.As(U.QuoteLiteral(grouping), colGrouping),
			plan.As(qualified(first, colEventDate), colStartEventDate),
			plan.As(qualified(first, colUserPseudoID), colStartUserPseudoID),
			plan.As(qualified(tableDateList, colEventDate), colEventDate),
			plan.As(qualified(second, colUserPseudoID), colEndUserPseudoID),
			plan.As(qualified(second, colEventDate), colEndEventDate),
		},
		From: first,
		Joins: []plan.Join{
			{Kind: plan.InnerJoin, Table: tableDateList, On: plan.True},
			{Kind: plan.LeftOuterJoin, Table: second, On: plan.And(on...)},
		},
	}
}

// buildRetentionPlan measures, for every start/return pair, the share of the
// cohort (users doing the start event on the first day of the range) that does the
// return event on each later day.
func buildRetentionPlan(req *model.RetentionRequest) (*plan.View, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	steps := make([]model.EventStep, 0, 2*len(req.RetentionPairs))
	for _, pair := range req.RetentionPairs {
		steps = append(steps, pair.StartEvent, pair.ReturnEvent)
	}

	ctx := NewCompilationContext()
	bt, err := buildBaseCTE(ctx, req.RetentionEventNames(), steps, &req.AnalysisRequest)
	if err != nil {
		return nil, err
	}

	type joinColumns struct{ start, end string }
	pairJoins := make([]joinColumns, len(req.RetentionPairs))
	for i, pair := range req.RetentionPairs {
		if pair.StartJoinColumn != nil {
			pairJoins[i] = joinColumns{ctx.columnFor(pair.StartJoinColumn), ctx.columnFor(pair.ReturnJoinColumn)}
		}
	}

	dates, err := resolveDateList(req.TimeScope)
	if err != nil {
		return nil, err
	}

	ctes := bt.Ctes(false)
	ctes = append(ctes,
		plan.Cte{Name: tableFirstDate, Query: &plan.Select{
			Columns: []plan.Column{plan.As(fmt.Sprintf("MIN(%s)", colEventDate), colFirstDate)},
			From:    tableTmpData,
		}},
		plan.Cte{Name: tableDateList, Query: dateListTable(dates)},
	)

	results := &plan.Union{All: true}
	for i, pair := range req.RetentionPairs {
		ctes = append(ctes,
			plan.Cte{Name: firstTable(i), Query: retentionEventTable(bt.stepPreds[2*i], "=", pairJoins[i].start)},
			plan.Cte{Name: secondTable(i), Query: retentionEventTable(bt.stepPreds[2*i+1], ">", pairJoins[i].end)},
		)
		grouping := suffixed(pair.StartEvent.EventName, i)
		results.Selects = append(results.Selects, retentionResult(i, grouping, pair.StartJoinColumn != nil))
	}
	ctes = append(ctes, plan.Cte{Name: tableResult, Query: results})

	body := &plan.Select{
		Columns: []plan.Column{
			plan.Col(colGrouping),
			plan.Col(colStartEventDate),
			plan.Col(colEventDate),
			plan.As(rateExpr(countDistinct(colEndUserPseudoID), countDistinct(colStartUserPseudoID), C.GetRateScale()), colRetention),
		},
		From:    tableResult,
		GroupBy: []string{colGrouping, colStartEventDate, colEventDate},
		OrderBy: []string{colGrouping, colEventDate},
	}
	return &plan.View{
		Schema: req.Schema,
		Name:   req.ViewName,
		Body:   &plan.With{Ctes: ctes, Body: body},
	}, nil
}

func BuildRetentionView(req *model.RetentionRequest) (string, error) {
	logFields := log.Fields{
		"schema":    req.Schema,
		"view_name": req.ViewName,
		"pairs":     len(req.RetentionPairs),
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	view, err := buildRetentionPlan(req)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to build retention view.")
		return "", err
	}
	return renderView(view, logFields)
}
