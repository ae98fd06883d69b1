package redshift

import (
	"fmt"
	"strings"

	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/plan"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

const (
	tableTmpData     = "tmp_data"
	tableTmpBaseData = "tmp_base_data"
	tableBaseData    = "base_data"
	tableJoin        = "join_table"
	tableFinal       = "final_table"
	tableMid         = "mid_table"
	tableFirstDate   = "first_date"
	tableDateList    = "date_list"
	tableResult      = "result_table"

	aliasRawEvents = "ods"
	aliasBase      = "base"
)

const (
	colEventDate      = "event_date"
	colEventName      = "event_name"
	colEventID        = "event_id"
	colEventTimestamp = "event_timestamp"
	colUserID         = "user_id"
	colUserPseudoID   = "user_pseudo_id"
	colPlatform       = "platform"
	colXID            = "x_id"
	colUserProperties = "user_properties"
	colEventParams    = "event_params"
	colRate           = "rate"
)

// Expression of the event timestamp (epoch milliseconds) as a timestamp value.
const epochTimestampExpr = "TIMESTAMP 'epoch' + CAST(event_timestamp / 1000 AS BIGINT) * INTERVAL '1 second'"

// catalogColumn is one flattened column of the raw event table projected by tmp_data.
type catalogColumn struct {
	expr string
	name string
}

func (c catalogColumn) column() plan.Column {
	if c.expr == c.name {
		return plan.Col(c.name)
	}
	return plan.As(c.expr, c.name)
}

var eventColumnCatalog = []catalogColumn{
	{"event_date", "event_date"},
	{"event_name", "event_name"},
	{"event_id", "event_id"},
	{"event_bundle_sequence_id::bigint", "event_bundle_sequence_id"},
	{"event_previous_timestamp::bigint", "event_previous_timestamp"},
	{"event_server_timestamp_offset::bigint", "event_server_timestamp_offset"},
	{"event_timestamp::bigint", "event_timestamp"},
	{"ingest_timestamp", "ingest_timestamp"},
	{"event_value_in_usd", "event_value_in_usd"},
	{"app_info.app_id::varchar", "app_info_app_id"},
	{"app_info.id::varchar", "app_info_package_id"},
	{"app_info.install_source::varchar", "app_info_install_source"},
	{"app_info.version::varchar", "app_info_version"},
	{"device.vendor_id::varchar", "device_id"},
	{"device.mobile_brand_name::varchar", "device_mobile_brand_name"},
	{"device.mobile_model_name::varchar", "device_mobile_model_name"},
	{"device.manufacturer::varchar", "device_manufacturer"},
	{"device.screen_width::bigint", "device_screen_width"},
	{"device.screen_height::bigint", "device_screen_height"},
	{"device.viewport_height::bigint", "device_viewport_height"},
	{"device.carrier::varchar", "device_carrier"},
	{"device.network_type::varchar", "device_network_type"},
	{"device.operating_system::varchar", "device_operating_system"},
	{"device.operating_system_version::varchar", "device_operating_system_version"},
	{"device.ua_browser::varchar", "device_ua_browser"},
	{"device.ua_browser_version::varchar", "device_ua_browser_version"},
	{"device.ua_os::varchar", "device_ua_os"},
	{"device.ua_os_version::varchar", "device_ua_os_version"},
	{"device.ua_device::varchar", "device_ua_device"},
	{"device.ua_device_category::varchar", "device_ua_device_category"},
	{"device.system_language::varchar", "device_system_language"},
	{"device.time_zone_offset_seconds::bigint", "device_time_zone_offset_seconds"},
	{"device.advertising_id::varchar", "device_advertising_id"},
	{"geo.continent::varchar", "geo_continent"},
	{"geo.country::varchar", "geo_country"},
	{"geo.city::varchar", "geo_city"},
	{"geo.metro::varchar", "geo_metro"},
	{"geo.region::varchar", "geo_region"},
	{"geo.sub_continent::varchar", "geo_sub_continent"},
	{"geo.locale::varchar", "geo_locale"},
	{"platform", "platform"},
	{"project_id", "project_id"},
	{"traffic_source.name::varchar", "traffic_source_name"},
	{"traffic_source.medium::varchar", "traffic_source_medium"},
	{"traffic_source.source::varchar", "traffic_source_source"},
	{"user_first_touch_timestamp", "user_first_touch_timestamp"},
	{"user_id", "user_id"},
	{"user_pseudo_id", "user_pseudo_id"},
	{"user_ltv", "user_ltv"},
	{"event_dimensions", "event_dimensions"},
	{"ecommerce", "ecommerce"},
	{"items", "items"},
}

func isCatalogColumn(name string) bool {
	for _, c := range eventColumnCatalog {
		if c.name == name {
			return true
		}
	}
	return false
}

// bucketColumns are the month/week/day/hour columns derived from the event timestamp.
func bucketColumns() []plan.Column {
	return []plan.Column{
		plan.As(fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM')", epochTimestampExpr), model.GroupColumnMonth),
		plan.As(fmt.Sprintf("TO_CHAR(DATE_TRUNC('week', %s), 'YYYY-MM-DD') || ' - ' || TO_CHAR(DATE_TRUNC('week', (%s) + INTERVAL '6 days'), 'YYYY-MM-DD')",
			epochTimestampExpr, epochTimestampExpr), model.GroupColumnWeek),
		plan.As(fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", epochTimestampExpr), model.GroupColumnDay),
		plan.As(fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD HH24') || ':00:00'", epochTimestampExpr), model.GroupColumnHour),
	}
}

// dayOfTimestamp renders the calendar day of an epoch millisecond column.
func dayOfTimestamp(column string) string {
	return fmt.Sprintf("TO_CHAR(TIMESTAMP 'epoch' + CAST(%s / 1000 AS BIGINT) * INTERVAL '1 second', 'YYYY-MM-DD')", column)
}

func suffixed(column string, index int) string {
	return fmt.Sprintf("%s_%d", column, index)
}

func stepTable(index int) string {
	return suffixed("table", index)
}

func qualified(table, column string) string {
	return table + "." + column
}

// identityColumn is the column counted for a compute method.
func identityColumn(method model.ComputeMethod) string {
	if method == model.ComputeMethodDistinctEvent {
		return colEventID
	}
	return colUserPseudoID
}

func countDistinct(column string) string {
	return fmt.Sprintf("COUNT(DISTINCT %s)", column)
}

// rateExpr divides two counts, NULL when the denominator is zero.
func rateExpr(numerator, denominator string, scale int) string {
	return fmt.Sprintf("(%s::decimal / NULLIF(%s, 0))::decimal(20, %d)", numerator, denominator, scale)
}

// funnelColumnNames picks the count and rate column of every step. Redshift folds
// identifier case, so names are compared lowercased. The group column and the
// overall rate column are reserved, and a taken name gets the step index as
// suffix. rates[0] is empty since step 0 has no rate against a previous step.
func funnelColumnNames(eventNames []string, groupColumn string) (counts, rates []string) {
	used := map[string]bool{
		strings.ToLower(groupColumn): true,
		colRate:                      true,
	}
	claim := func(base string, index int) string {
		candidate := base
		for n := index; used[strings.ToLower(candidate)]; n++ {
			candidate = suffixed(base, n)
		}
		used[strings.ToLower(candidate)] = true
		return candidate
	}

	counts = make([]string, 0, len(eventNames))
	rates = make([]string, 0, len(eventNames))
	for i, name := range eventNames {
		count := claim(name, i)
		counts = append(counts, count)
		if i == 0 {
			rates = append(rates, "")
			continue
		}
		rates = append(rates, claim(count+"_"+colRate, i))
	}
	return counts, rates
}

func quoteEventNames(names []string) []string {
	return U.QuoteLiterals(names)
}

func stepEventNames(steps []model.EventStep) []string {
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.EventName)
	}
	return names
}

func distinctEventNames(steps []model.EventStep) []string {
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		if !U.ContainsStringInArray(names, step.EventName) {
			names = append(names, step.EventName)
		}
	}
	return names
}
