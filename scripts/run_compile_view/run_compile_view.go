package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	C "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/config"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/model"
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/store"
)

const viewNamePrefix = "explore_"

// generatedViewName returns a unique view name usable as a plain identifier.
func generatedViewName() string {
	return viewNamePrefix + strings.ReplaceAll(uuid.New().String(), "-", "_")
}

func loadRequest(requestPath, viewName string) (model.Analysis, error) {
	raw, err := ioutil.ReadFile(requestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read request file %s", requestPath)
	}
	analysis, err := model.DecodeAnalysisYAML(raw)
	if err != nil {
		return nil, err
	}

	base := analysis.GetBase()
	if viewName != "" {
		base.ViewName = viewName
	}
	if base.ViewName == "" {
		base.ViewName = generatedViewName()
	}
	return analysis, nil
}

// compileRequestFile compiles the request in requestPath. chart selects the funnel
// chart view for funnel requests.
func compileRequestFile(requestPath, viewName string, chart bool) (string, error) {
	logCtx := log.WithFields(log.Fields{
		"request_id": xid.New().String(),
		"request":    requestPath,
	})

	analysis, err := loadRequest(requestPath, viewName)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load analysis request.")
		return "", err
	}
	logCtx = logCtx.WithFields(log.Fields{"kind": analysis.GetKind(), "view_name": analysis.GetBase().ViewName})

	compiler := store.GetStore()
	var sql string
	if funnel, ok := analysis.(*model.FunnelRequest); ok && chart {
		sql, err = compiler.BuildFunnelChartView(funnel)
	} else {
		if chart {
			logCtx.Warn("Chart view is only available for funnel requests. Ignoring.")
		}
		sql, err = compiler.Compile(analysis)
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to compile view.")
		return "", err
	}
	logCtx.Info("Compiled view.")
	return sql, nil
}

func newCompileViewCmd() *cobra.Command {
	var (
		configPath  string
		requestPath string
		viewName    string
		chart       bool
	)

	cmd := &cobra.Command{
		Use:   "run_compile_view",
		Short: "Compile an analysis request into a CREATE OR REPLACE VIEW statement",
		Long:  "Reads a funnel, event, path or retention request from a YAML file and prints the view definition.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := C.Init(configPath); err != nil {
				return fmt.Errorf("init config: %w", err)
			}

			sql, err := compileRequestFile(requestPath, viewName, chart)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML config file")
	cmd.Flags().StringVar(&requestPath, "request", "", "Path to the YAML analysis request")
	cmd.Flags().StringVar(&viewName, "view-name", "", "View name, overrides the request. Generated when both are empty")
	cmd.Flags().BoolVar(&chart, "chart", false, "Build the funnel chart view instead of the funnel table view")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func main() {
	if err := newCompileViewCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
