package redshift

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
)

func eventRequest(steps ...string) *model.EventRequest {
	return &model.EventRequest{AnalysisRequest: baseRequest("event_view", steps...)}
}

func TestBuildEventAnalysisView(t *testing.T) {
	req := eventRequest("A", "B")
	req.EventSteps[0].Condition = andGroup(stringCondition(model.ConditionCategoryEvent, "p1", model.EqualsOp, "x"))
	req.EventSteps[1].ComputeMethod = model.ComputeMethodDistinctEvent

	sql, err := BuildEventAnalysisView(req)
	require.NoError(t, err)

	assert.NotContains(t, sql, "base_data AS")
	assert.Contains(t, sql, "table_0 AS (SELECT month, week, day, hour, event_name AS event_name_0, "+
		"event_timestamp AS event_timestamp_0, event_id AS event_id_0, user_pseudo_id AS user_pseudo_id_0 "+
		"FROM tmp_base_data base WHERE (event_name = 'A' AND event_p1 = 'x'))")
	assert.Contains(t, sql, "FROM tmp_base_data base WHERE event_name = 'B')")
	assert.Contains(t, sql, "join_table AS (SELECT table_0.month, table_0.week, table_0.day, table_0.hour, "+
		"table_0.event_name_0 AS event_name, table_0.event_timestamp_0 AS event_timestamp, "+
		"table_0.user_pseudo_id_0 AS x_id FROM table_0 UNION ALL SELECT ")
	assert.Contains(t, sql, "table_1.event_id_1 AS x_id FROM table_1)")
	assert.True(t, strings.HasSuffix(sql,
		"SELECT day::date AS event_date, event_name, x_id FROM join_table GROUP BY day, event_name, x_id)"), sql)
}

func TestEventAnalysisGroupColumn(t *testing.T) {
	req := eventRequest("A")
	req.GroupColumn = model.GroupColumnWeek
	view, err := buildEventPlan(req)
	require.NoError(t, err)

	body := view.Body.Body.(*plan.Select)
	assert.Equal(t, []string{"event_date", "week", "event_name", "x_id"}, body.ColumnNames())
	assert.Equal(t, []string{"day", "week", "event_name", "x_id"}, body.GroupBy)

	union, ok := view.Body.Cte(tableJoin).Query.(*plan.Union)
	require.True(t, ok)
	assert.True(t, union.All)
	assert.Len(t, union.Selects, 1)
}

func TestEventAnalysisDistinctEvent(t *testing.T) {
	req := eventRequest("A", "B")
	req.ComputeMethod = model.ComputeMethodDistinctEvent
	req.EventSteps[0].ComputeMethod = model.ComputeMethodDistinctUser
	sql, err := BuildEventAnalysisView(req)
	require.NoError(t, err)

	assert.NotContains(t, sql, "COALESCE")
	assert.Contains(t, sql, "table_0.user_pseudo_id_0 AS x_id")
	assert.Contains(t, sql, "table_1.event_id_1 AS x_id")
}
