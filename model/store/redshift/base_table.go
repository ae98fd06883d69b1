package redshift

import (
	"fmt"

	"github.com/pkg/errors"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
)

// baseTable assembles the CTEs every analysis starts from:
// tmp_data (filtered raw events with flattened columns and time buckets),
// tmp_base_data (tmp_data plus nested extractions) and base_data (rows of the steps).
type baseTable struct {
	ctx     *CompilationContext
	tmpData *plan.Select
	// Global predicate that needs nested columns, applied with every step.
	lateGlobal plan.Predicate
	stepPreds  []plan.Predicate
}

func tmpDataColumns(method model.ComputeMethod) []plan.Column {
	columns := make([]plan.Column, 0, len(eventColumnCatalog)+6)
	for _, c := range eventColumnCatalog {
		if c.name == colUserPseudoID && method == model.ComputeMethodDistinctUser {
			columns = append(columns, plan.As(fmt.Sprintf("COALESCE(%s, %s)", colUserID, colUserPseudoID), colUserPseudoID))
			continue
		}
		columns = append(columns, c.column())
	}
	columns = append(columns, bucketColumns()...)
	return append(columns, plan.Col(colUserProperties), plan.Col(colEventParams))
}

func eventTable(schema string) string {
	return fmt.Sprintf("%s.%s %s", schema, C.GetEventTable(), aliasRawEvents)
}

// buildBaseCTE filters the raw events to the time scope, the given event names and
// the global condition, and compiles the predicate of every step.
func buildBaseCTE(ctx *CompilationContext, eventNames []string, steps []model.EventStep,
	base *model.AnalysisRequest) (*baseTable, error) {

	if len(eventNames) == 0 {
		return nil, model.NewMalformedRequestError("event_steps", model.ErrMsgMissingEventSteps)
	}

	datePred, err := resolveDatePredicate(base.TimeScope)
	if err != nil {
		return nil, err
	}
	where := plan.And(datePred, plan.In(colEventName, quoteEventNames(eventNames)))

	bt := &baseTable{ctx: ctx}
	if base.GlobalCondition.HasNested() {
		bt.lateGlobal, err = compileConditionGroup(base.GlobalCondition, ctx.anyColumn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compile global condition")
		}
	} else {
		global, err := compileConditionGroup(base.GlobalCondition, flatColumn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compile global condition")
		}
		where = plan.And(where, global)
	}

	bt.tmpData = &plan.Select{
		Columns: tmpDataColumns(base.ComputeMethod),
		From:    eventTable(base.Schema),
		Where:   where,
	}

	for i := range steps {
		pred, err := bt.compileStep(&steps[i])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile condition of step %d", i)
		}
		bt.stepPreds = append(bt.stepPreds, pred)
	}
	return bt, nil
}

// compileStep returns the predicate selecting the rows of one step. It reads
// flattened and extracted columns, so it applies to tmp_base_data and later tables.
func (bt *baseTable) compileStep(step *model.EventStep) (plan.Predicate, error) {
	cond, err := compileConditionGroup(step.Condition, bt.ctx.anyColumn)
	if err != nil {
		return nil, err
	}
	return plan.And(plan.Eq(colEventName, quoteEventNames([]string{step.EventName})[0]), cond, bt.lateGlobal), nil
}

// addFilter narrows tmp_data.
func (bt *baseTable) addFilter(pred plan.Predicate) {
	bt.tmpData.Where = plan.And(bt.tmpData.Where, pred)
}

func (bt *baseTable) tmpBaseData() *plan.Select {
	columns := []plan.Column{plan.Col(qualified(aliasBase, "*"))}
	return &plan.Select{
		Columns: append(columns, bt.ctx.Extractions()...),
		From:    tableTmpData + " " + aliasBase,
	}
}

func (bt *baseTable) baseData() *plan.Select {
	return &plan.Select{
		Columns: []plan.Column{plan.Col("*")},
		From:    tableTmpBaseData + " " + aliasBase,
		Where:   plan.Or(bt.stepPreds...),
	}
}

// Ctes returns tmp_data and tmp_base_data, and base_data when withBaseData is set.
// Call it after every extraction of the request has been registered.
func (bt *baseTable) Ctes(withBaseData bool) []plan.Cte {
	ctes := []plan.Cte{
		{Name: tableTmpData, Query: bt.tmpData},
		{Name: tableTmpBaseData, Query: bt.tmpBaseData()},
	}
	if withBaseData {
		ctes = append(ctes, plan.Cte{Name: tableBaseData, Query: bt.baseData()})
	}
	return ctes
}
