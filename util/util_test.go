package util

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestFormatSQL(t *testing.T) {
	statements := []string{
		"CREATE OR REPLACE VIEW app.funnel AS (WITH tmp_data AS (SELECT event_date, event_name, COALESCE(user_id, user_pseudo_id) AS user_pseudo_id FROM app.ods_events ods WHERE event_date >= '2024-01-01' AND event_name IN ('a b', 'it''s')), table_0 AS (SELECT * FROM tmp_data) SELECT day, COUNT(DISTINCT user_pseudo_id_0) AS A FROM table_0 GROUP BY day)",
		"SELECT TO_CHAR(DATE_TRUNC('week', x), 'YYYY-MM-DD') || ' - ' || 'y' AS week, (SELECT MAX(ep.value.string_value) FROM tmp_data e, e.event_params ep WHERE ep.key = 'p' AND e.event_id = base.event_id) AS event_p FROM tmp_data base",
		"SELECT (COUNT(DISTINCT a)::decimal / NULLIF(COUNT(DISTINCT b), 0))::decimal(20, 4) AS rate FROM t LEFT OUTER JOIN u ON (t.a = u.b AND 1 = 1)",
		"SELECT ROW_NUMBER() OVER (PARTITION BY user_pseudo_id ORDER BY event_timestamp ASC) AS step_1 FROM data UNION ALL SELECT 1 AS step_1",
	}

	for _, sql := range statements {
		formatted := FormatSQL(sql)
		assert.Equal(t, stripSpace(sql), stripSpace(formatted))
		assert.Equal(t, formatted, FormatSQL(formatted))
	}

	t.Run("LiteralsUntouched", func(t *testing.T) {
		formatted := FormatSQL("SELECT 'a   FROM   b' AS x, \"odd  name\" FROM t")
		assert.Contains(t, formatted, "'a   FROM   b'")
		assert.Contains(t, formatted, "\"odd  name\"")
	})

	t.Run("ClausesOnNewLines", func(t *testing.T) {
		formatted := FormatSQL("SELECT a FROM t WHERE a = 1 GROUP BY a ORDER BY a")
		assert.Equal(t, "SELECT a\nFROM t\nWHERE a = 1\nGROUP BY a\nORDER BY a", formatted)
	})

	t.Run("SubqueryIndented", func(t *testing.T) {
		formatted := FormatSQL("SELECT * FROM (SELECT a, b FROM t) x")
		assert.Equal(t, "SELECT *\nFROM (\n  SELECT a,\n    b\n  FROM t\n) x", formatted)
	})

	t.Run("WindowClauseInline", func(t *testing.T) {
		formatted := FormatSQL("SELECT SUM(g) OVER (PARTITION BY u ORDER BY ts ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS gid FROM d")
		assert.Contains(t, formatted, "SUM(g) OVER (PARTITION BY u ORDER BY ts ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS gid")
	})
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "'it''s'", QuoteLiteral("it's"))
	assert.Equal(t, []string{"'a'", "'b'"}, QuoteLiterals([]string{"a", "b"}))
	assert.Equal(t, "add_to_cart", QuoteIdentifierIfNeeded("add_to_cart"))
	assert.Equal(t, `"add to cart"`, QuoteIdentifierIfNeeded("add to cart"))
	assert.Equal(t, "page_title", SanitizeIdentifier("page-title"))
	assert.Equal(t, "_1st", SanitizeIdentifier("1st"))
	assert.True(t, IsValidIdentifier("_session_id"))
	assert.False(t, IsValidIdentifier("a;drop"))
}

func TestDates(t *testing.T) {
	start, err := ParseDate("2024-01-30")
	require.NoError(t, err)
	end, err := ParseDate("20240202")
	require.NoError(t, err)

	dates := DatesBetween(start, end)
	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, FormatDate(d))
	}
	assert.Equal(t, []string{"2024-01-31", "2024-02-01", "2024-02-02"}, formatted)

	assert.Empty(t, DatesBetween(start, start))

	withTime, err := ParseDate("2024-03-01 13:45:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), withTime)

	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}
