package redshift

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
)

func TestLastNDayNumber(t *testing.T) {
	testCases := []struct {
		lastN    int
		unit     model.RelativeTimeUnit
		expected int
	}{
		{3, model.RelativeTimeUnitDay, 3},
		{1, model.RelativeTimeUnitWeek, 7},
		{2, model.RelativeTimeUnitMonth, 62},
		{1, model.RelativeTimeUnitQuarter, 93},
	}
	for _, tc := range testCases {
		days, err := lastNDayNumber(tc.lastN, tc.unit)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, days, "%d %s", tc.lastN, tc.unit)
	}

	_, err := lastNDayNumber(1, "YEAR")
	var malformed *model.MalformedRequestError
	assert.True(t, errors.As(err, &malformed))
}

func TestResolveDatePredicate(t *testing.T) {
	pred, err := resolveDatePredicate(fixedRange("2024-01-01", "2024-01-02"))
	require.NoError(t, err)
	sql, _ := plan.ToSQL(pred)
	assert.Equal(t, "(event_date >= '2024-01-01' AND event_date <= '2024-01-02')", sql)

	pred, err = resolveDatePredicate(model.RelativeRange{LastN: 1, Unit: model.RelativeTimeUnitWeek})
	require.NoError(t, err)
	sql, _ = plan.ToSQL(pred)
	assert.Equal(t, "(event_date >= DATEADD(day, -7, CURRENT_DATE) AND event_date <= CURRENT_DATE)", sql)

	_, err = resolveDatePredicate(nil)
	assert.Error(t, err)
}

func TestResolveDateList(t *testing.T) {
	dates, err := resolveDateList(fixedRange("2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.False(t, dates[0].IsRelative())
	assert.Equal(t, "'2024-01-02'::date", dates[0].SQL())
	assert.Equal(t, "'2024-01-03'::date", dates[1].SQL())

	dates, err = resolveDateList(fixedRange("2024-01-01", "2024-01-01"))
	require.NoError(t, err)
	assert.Empty(t, dates)

	dates, err = resolveDateList(model.RelativeRange{LastN: 2, Unit: model.RelativeTimeUnitDay})
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].IsRelative())
	assert.Equal(t, "(CURRENT_DATE - INTERVAL '1 day')::date", dates[0].SQL())
	assert.Equal(t, "(CURRENT_DATE - INTERVAL '2 day')::date", dates[1].SQL())

	dates, err = resolveDateList(model.RelativeRange{LastN: 1, Unit: model.RelativeTimeUnitMonth})
	require.NoError(t, err)
	assert.Len(t, dates, 31)
}
