package redshift

import (
	"fmt"
	"time"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

// Days per relative unit. Months and quarters are approximated with fixed lengths.
var daysPerRelativeUnit = map[model.RelativeTimeUnit]int{
	model.RelativeTimeUnitDay:     1,
	model.RelativeTimeUnitWeek:    7,
	model.RelativeTimeUnitMonth:   31,
	model.RelativeTimeUnitQuarter: 93,
}

func lastNDayNumber(lastN int, unit model.RelativeTimeUnit) (int, error) {
	days, ok := daysPerRelativeUnit[unit]
	if !ok {
		return 0, model.NewMalformedRequestError("time_scope", "unknown unit %q", unit)
	}
	return lastN * days, nil
}

// resolveDatePredicate restricts event_date to the time scope, both ends inclusive.
func resolveDatePredicate(scope model.TimeScope) (plan.Predicate, error) {
	switch s := scope.(type) {
	case model.FixedRange:
		return plan.And(
			plan.Compare(colEventDate, ">=", U.QuoteLiteral(U.FormatDate(s.Start))),
			plan.Compare(colEventDate, "<=", U.QuoteLiteral(U.FormatDate(s.End))),
		), nil
	case model.RelativeRange:
		days, err := lastNDayNumber(s.LastN, s.Unit)
		if err != nil {
			return nil, err
		}
		return plan.And(
			plan.Compare(colEventDate, ">=", fmt.Sprintf("DATEADD(day, -%d, CURRENT_DATE)", days)),
			plan.Compare(colEventDate, "<=", "CURRENT_DATE"),
		), nil
	}
	return nil, model.NewMalformedRequestError("time_scope", "unsupported time scope %T", scope)
}

// CalendarDate is a concrete day or a day relative to CURRENT_DATE.
type CalendarDate struct {
	Fixed   time.Time
	DaysAgo int
}

func (d CalendarDate) IsRelative() bool {
	return d.Fixed.IsZero()
}

// SQL renders the date as a date typed expression.
func (d CalendarDate) SQL() string {
	if d.IsRelative() {
		return fmt.Sprintf("(CURRENT_DATE - INTERVAL '%d day')::date", d.DaysAgo)
	}
	return U.QuoteLiteral(U.FormatDate(d.Fixed)) + "::date"
}

// resolveDateList returns the days a retention can be observed on: the days after
// the range start through its end for a fixed range, and CURRENT_DATE-1 back to
// CURRENT_DATE-N for a relative range.
func resolveDateList(scope model.TimeScope) ([]CalendarDate, error) {
	switch s := scope.(type) {
	case model.FixedRange:
		dates := make([]CalendarDate, 0)
		for _, d := range U.DatesBetween(s.Start, s.End) {
			dates = append(dates, CalendarDate{Fixed: d})
		}
		return dates, nil
	case model.RelativeRange:
		days, err := lastNDayNumber(s.LastN, s.Unit)
		if err != nil {
			return nil, err
		}
		dates := make([]CalendarDate, 0, days)
		for i := 1; i <= days; i++ {
			dates = append(dates, CalendarDate{DaysAgo: i})
		}
		return dates, nil
	}
	return nil, model.NewMalformedRequestError("time_scope", "unsupported time scope %T", scope)
}
