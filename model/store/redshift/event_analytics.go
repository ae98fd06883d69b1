package redshift

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
)

func eventStepTable(index int, stepPred plan.Predicate) *plan.Select {
	columns := make([]plan.Column, 0)
	for _, bucket := range model.GroupColumns {
		columns = append(columns, plan.Col(bucket))
	}
	for _, column := range []string{colEventName, colEventTimestamp, colEventID, colUserPseudoID} {
		columns = append(columns, plan.As(column, suffixed(column, index)))
	}
	return &plan.Select{
		Columns: columns,
		From:    tableTmpBaseData + " " + aliasBase,
		Where:   stepPred,
	}
}

// buildEventPlan lists, per time bucket and event, the distinct identities that
// performed every step. Steps are independent, so their rows are stacked.
func buildEventPlan(req *model.EventRequest) (*plan.View, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx := NewCompilationContext()
	bt, err := buildBaseCTE(ctx, req.EventNames(), req.EventSteps, &req.AnalysisRequest)
	if err != nil {
		return nil, err
	}

	ctes := bt.Ctes(false)
	union := &plan.Union{All: true}
	for i := range req.EventSteps {
		step := &req.EventSteps[i]
		table := stepTable(i)
		ctes = append(ctes, plan.Cte{Name: table, Query: eventStepTable(i, bt.stepPreds[i])})

		columns := make([]plan.Column, 0)
		for _, bucket := range model.GroupColumns {
			columns = append(columns, plan.Col(qualified(table, bucket)))
		}
		identity := identityColumn(step.EffectiveComputeMethod(req.ComputeMethod))
		columns = append(columns,
			plan.As(qualified(table, suffixed(colEventName, i)), colEventName),
			plan.As(qualified(table, suffixed(colEventTimestamp, i)), colEventTimestamp),
			plan.As(qualified(table, suffixed(identity, i)), colXID),
		)
		union.Selects = append(union.Selects, &plan.Select{Columns: columns, From: table})
	}
	ctes = append(ctes, plan.Cte{Name: tableJoin, Query: union})

	groupColumn := req.GroupColumnOrDefault()
	columns := []plan.Column{plan.As("day::date", colEventDate)}
	groupBy := []string{model.GroupColumnDay}
	if groupColumn != model.GroupColumnDay {
		columns = append(columns, plan.Col(groupColumn))
		groupBy = append(groupBy, groupColumn)
	}
	columns = append(columns, plan.Col(colEventName), plan.Col(colXID))
	groupBy = append(groupBy, colEventName, colXID)

	body := &plan.Select{
		Columns: columns,
		From:    tableJoin,
		GroupBy: groupBy,
	}
	return &plan.View{
		Schema: req.Schema,
		Name:   req.ViewName,
		Body:   &plan.With{Ctes: ctes, Body: body},
	}, nil
}

func BuildEventAnalysisView(req *model.EventRequest) (string, error) {
	logFields := log.Fields{
		"schema":    req.Schema,
		"view_name": req.ViewName,
		"steps":     len(req.EventSteps),
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	view, err := buildEventPlan(req)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to build event analysis view.")
		return "", err
	}
	return renderView(view, logFields)
}
