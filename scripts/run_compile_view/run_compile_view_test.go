package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	U "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/util"
)

const funnelRequestYAML = `
kind: funnel
schema: app
view_name: funnel_view
compute_method: DISTINCT_USER
event_steps:
  - event_name: A
  - event_name: B
conversion_window:
  type: CUSTOM
  seconds: 3600
time_scope:
  type: fixed
  start: "2024-01-01"
  end: "2024-01-02"
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCompileRequestFile(t *testing.T) {
	C.InitConf(&C.Configuration{DisableSQLFormat: true})
	requestPath := writeFile(t, "funnel.yaml", funnelRequestYAML)

	sql, err := compileRequestFile(requestPath, "", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "CREATE OR REPLACE VIEW app.funnel_view AS (WITH tmp_data AS"))
	assert.Contains(t, sql, "AS B_rate FROM join_table GROUP BY day)")

	sql, err = compileRequestFile(requestPath, "renamed_view", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "CREATE OR REPLACE VIEW app.renamed_view AS"))
	assert.Contains(t, sql, "u_id_1::varchar AS x_id")

	_, err = compileRequestFile(filepath.Join(t.TempDir(), "missing.yaml"), "", false)
	assert.Error(t, err)
}

func TestLoadRequestGeneratesViewName(t *testing.T) {
	requestPath := writeFile(t, "event.yaml", strings.Replace(
		strings.Replace(funnelRequestYAML, "kind: funnel", "kind: event", 1), "view_name: funnel_view\n", "", 1))

	analysis, err := loadRequest(requestPath, "")
	require.NoError(t, err)
	viewName := analysis.GetBase().ViewName
	assert.True(t, strings.HasPrefix(viewName, viewNamePrefix))
	assert.True(t, U.IsValidIdentifier(viewName))
	assert.NotEqual(t, viewName, generatedViewName())
}

func TestCompileViewCmd(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "event_table: events_cli\ndisable_sql_format: true\nlog_level: warn\n")
	requestPath := writeFile(t, "funnel.yaml", funnelRequestYAML)

	var out bytes.Buffer
	cmd := newCompileViewCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "--request", requestPath, "--view-name", "cli_view"})
	require.NoError(t, cmd.Execute())

	sql := out.String()
	assert.True(t, strings.HasPrefix(sql, "CREATE OR REPLACE VIEW app.cli_view AS"))
	assert.Contains(t, sql, "FROM app.events_cli ods")
	assert.True(t, strings.HasSuffix(sql, ")\n"))
}

func TestCompileViewCmdRequiresRequest(t *testing.T) {
	var out bytes.Buffer
	cmd := newCompileViewCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
