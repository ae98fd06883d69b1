package redshift

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

const (
	tablePathData  = "data"
	tablePathEdges = "path_edges"

	colNode       = "node"
	colSessionID  = "session_id"
	colStep1      = "step_1"
	colStep2      = "step_2"
	colSeq        = "seq"
	colGroupStart = "group_start"
	colGroupID    = "group_id"
	colSource     = "source"
	colTarget     = "target"
	colWeight     = "weight"

	otherNodePrefix = "other_"
)

func isMobilePlatform(platform string) bool {
	switch strings.ToUpper(platform) {
	case model.PlatformAndroid, model.PlatformIOS:
		return true
	}
	return false
}

// pathSteps returns the steps a path is built from. Attribute paths without
// explicit steps follow screen views on mobile and page views elsewhere.
func pathSteps(req *model.PathRequest) []model.EventStep {
	if len(req.EventSteps) > 0 || req.PathSpec.NodeType == model.PathNodeTypeEvent {
		return req.EventSteps
	}
	eventName := model.EventPageView
	if isMobilePlatform(req.PathSpec.Platform) {
		eventName = model.EventScreenView
	}
	return []model.EventStep{{EventName: eventName}}
}

func pathNodeAttribute(spec model.PathSpec) string {
	if spec.NodeAttribute != "" {
		return spec.NodeAttribute
	}
	if isMobilePlatform(spec.Platform) {
		return model.AttributeScreenName
	}
	return model.AttributePageTitle
}

func pathMaxDepth(spec model.PathSpec) int {
	if spec.MaxDepth > 0 {
		return spec.MaxDepth
	}
	return C.GetDefaultMaxPathDepth()
}

func rowNumber(partitionBy []string, orderBy string) string {
	return fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s ASC)", strings.Join(partitionBy, ", "), orderBy)
}

// numberedRows numbers the rows of from within each partition: step_1 is the
// position of the row and step_2 the position of its successor.
func numberedRows(columns []plan.Column, from string, partitionBy []string, orderBy string) *plan.Select {
	number := rowNumber(partitionBy, orderBy)
	return &plan.Select{
		Columns: append(columns, plan.As(number, colStep1), plan.As(number+" + 1", colStep2)),
		From:    from,
	}
}

// pathMidTable selects the node label of every step row, dropping rows whose
// attribute value is not allowed.
func pathMidTable(req *model.PathRequest, nodeColumn, sessionColumn string) *plan.Select {
	columns := []plan.Column{
		plan.As("day::date", colEventDate),
		plan.As(nodeColumn, colNode),
		plan.Col(colUserPseudoID),
		plan.Col(colEventID),
		plan.Col(colEventTimestamp),
	}
	if sessionColumn != "" {
		columns = append(columns, plan.As(sessionColumn, colSessionID))
	}

	var where plan.Predicate
	if req.PathSpec.NodeType == model.PathNodeTypeAttributeName {
		if len(req.PathSpec.NodeValues) > 0 {
			where = plan.In(nodeColumn, U.QuoteLiterals(req.PathSpec.NodeValues))
		} else {
			where = plan.IsNotNull(nodeColumn)
		}
	}
	return &plan.Select{Columns: columns, From: tableBaseData, Where: where}
}

var pathRowColumns = []string{colEventDate, colNode, colUserPseudoID, colEventID, colEventTimestamp}

func pathColumns(names ...string) []plan.Column {
	columns := make([]plan.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, plan.Col(name))
	}
	return columns
}

// sessionModeCtes numbers the rows of every (user, session) by time.
func sessionModeCtes() []plan.Cte {
	columns := pathColumns(append(pathRowColumns, colSessionID)...)
	return []plan.Cte{{
		Name:  tablePathData,
		Query: numberedRows(columns, tableMid, []string{colUserPseudoID, colSessionID}, colEventTimestamp),
	}}
}

// lagModeCtes rebuilds sessions from event gaps: a row starts a new group unless
// the previous row of the same user happened at most lagSeconds before it. The
// running sum of group starts identifies the group, and rows are numbered again
// within every (user, group).
func lagModeCtes(lagSeconds int64) ([]plan.Cte, error) {
	data1 := numberedRows(pathColumns(pathRowColumns...), tableMid, []string{colUserPseudoID}, colEventTimestamp)

	previousRowWithinLag := plan.And(
		plan.IsNotNull("a."+colEventTimestamp),
		plan.Compare(fmt.Sprintf("b.%s - a.%s", colEventTimestamp, colEventTimestamp), "<=", fmt.Sprintf("%d", lagSeconds*1000)),
	)
	withinSQL, err := plan.ToSQL(previousRowWithinLag)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render lag predicate")
	}
	data2Columns := make([]plan.Column, 0)
	for _, column := range pathRowColumns {
		data2Columns = append(data2Columns, plan.Col("b."+column))
	}
	data2 := &plan.Select{
		Columns: append(data2Columns,
			plan.As("b."+colStep1, colSeq),
			plan.As(fmt.Sprintf("CASE WHEN %s THEN 0 ELSE 1 END", withinSQL), colGroupStart),
		),
		From: "data_1 b",
		Joins: []plan.Join{{
			Kind:  plan.LeftOuterJoin,
			Table: "data_1 a",
			On: plan.And(
				plan.Eq("a."+colUserPseudoID, "b."+colUserPseudoID),
				plan.Eq("a."+colStep2, "b."+colStep1),
			),
		}},
	}

	data3 := &plan.Select{
		Columns: []plan.Column{
			plan.Col("*"),
			plan.As(fmt.Sprintf("SUM(%s) OVER (PARTITION BY %s ORDER BY %s ASC ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)",
				colGroupStart, colUserPseudoID, colSeq), colGroupID),
		},
		From: "data_2",
	}

	data := numberedRows(pathColumns(append(pathRowColumns, colGroupID)...), "data_3",
		[]string{colUserPseudoID, colGroupID}, colSeq)

	return []plan.Cte{
		{Name: "data_1", Query: data1},
		{Name: "data_2", Query: data2},
		{Name: "data_3", Query: data3},
		{Name: tablePathData, Query: data},
	}, nil
}

// pathEdges links every row to the next row of its session. Rows without a
// successor lead to a synthetic other node.
func pathEdges(partitionColumn string, maxDepth int, identity string) *plan.Select {
	on := plan.And(
		plan.Eq("a."+colUserPseudoID, "b."+colUserPseudoID),
		plan.Eq("a."+partitionColumn, "b."+partitionColumn),
		plan.Eq("a."+colStep2, "b."+colStep1),
	)

	return &plan.Select{
		Columns: []plan.Column{
			plan.Col("a." + colEventDate),
			plan.As(fmt.Sprintf("a.%s || '_' || a.%s", colNode, colStep1), colSource),
			plan.As(fmt.Sprintf("CASE WHEN b.%s IS NOT NULL THEN b.%s || '_' || a.%s ELSE %s || a.%s END",
				colNode, colNode, colStep2, U.QuoteLiteral(otherNodePrefix), colStep2), colTarget),
			plan.As("a."+identity, colXID),
		},
		From:  tablePathData + " a",
		Joins: []plan.Join{{Kind: plan.LeftOuterJoin, Table: tablePathData + " b", On: on}},
		Where: plan.Compare("a."+colStep2, "<=", fmt.Sprintf("%d", maxDepth)),
	}
}

// buildPathPlan weighs the transitions between consecutive nodes of every
// session by the distinct identities taking them.
func buildPathPlan(req *model.PathRequest) (*plan.View, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	spec := req.PathSpec
	steps := pathSteps(req)

	ctx := NewCompilationContext()
	bt, err := buildBaseCTE(ctx, distinctEventNames(steps), steps, &req.AnalysisRequest)
	if err != nil {
		return nil, err
	}
	if spec.Platform != "" {
		bt.addFilter(plan.Eq(colPlatform, U.QuoteLiteral(spec.Platform)))
	}

	nodeColumn := colEventName
	if spec.NodeType == model.PathNodeTypeAttributeName {
		nodeColumn = ctx.extract(model.ConditionCategoryEvent, pathNodeAttribute(spec), model.ValueTypeString)
	}

	sessionColumn := ""
	if spec.SessionMode == model.PathSessionModeSession {
		sessionColumn = ctx.extract(model.ConditionCategoryEvent, model.AttributeSessionID, model.ValueTypeString)
	}

	ctes := bt.Ctes(true)
	ctes = append(ctes, plan.Cte{Name: tableMid, Query: pathMidTable(req, nodeColumn, sessionColumn)})

	groupColumn := colSessionID
	if spec.SessionMode == model.PathSessionModeLag {
		lagCtes, err := lagModeCtes(spec.LagSeconds)
		if err != nil {
			return nil, err
		}
		ctes = append(ctes, lagCtes...)
		groupColumn = colGroupID
	} else {
		ctes = append(ctes, sessionModeCtes()...)
	}

	identity := identityColumn(req.ComputeMethod)
	ctes = append(ctes, plan.Cte{Name: tablePathEdges, Query: pathEdges(groupColumn, pathMaxDepth(spec), identity)})

	body := &plan.Select{
		Columns: []plan.Column{
			plan.Col(colSource),
			plan.Col(colTarget),
			plan.As(countDistinct(colXID), colWeight),
		},
		From:    tablePathEdges,
		GroupBy: []string{colSource, colTarget},
	}
	return &plan.View{
		Schema: req.Schema,
		Name:   req.ViewName,
		Body:   &plan.With{Ctes: ctes, Body: body},
	}, nil
}

func BuildPathView(req *model.PathRequest) (string, error) {
	logFields := log.Fields{
		"schema":       req.Schema,
		"view_name":    req.ViewName,
		"session_mode": req.PathSpec.SessionMode,
		"node_type":    req.PathSpec.NodeType,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	view, err := buildPathPlan(req)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to build path view.")
		return "", err
	}
	return renderView(view, logFields)
}
