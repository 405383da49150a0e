package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/logging"
	"github.com/caseflow-io/caseflow/oracle"
	anthropicoracle "github.com/caseflow-io/caseflow/oracle/anthropic"
	openaioracle "github.com/caseflow-io/caseflow/oracle/openai"
	"github.com/caseflow-io/caseflow/orchestrator"
	"github.com/caseflow-io/caseflow/policy"
	"github.com/caseflow-io/caseflow/server"
	"github.com/caseflow-io/caseflow/session"
	redissession "github.com/caseflow-io/caseflow/session/redis"
	"github.com/caseflow-io/caseflow/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the caseflow engine as an HTTP server. Decision tables are
loaded once at startup; publish a new version through the registry to change
behavior without restarting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowsDir, _ := cmd.Flags().GetString("workflows")
		addr, _ := cmd.Flags().GetString("addr")
		toolsURL, _ := cmd.Flags().GetString("tools-url")
		redisAddr, _ := cmd.Flags().GetString("redis-addr")
		oracleKind, _ := cmd.Flags().GetString("oracle")
		logFormat, _ := cmd.Flags().GetString("log-format")

		logger := logging.New(func(o *logging.Options) {
			o.Format = logFormat
		})

		tables, err := policy.LoadDir(workflowsDir)
		if err != nil {
			return fmt.Errorf("loading decision tables: %w", err)
		}
		registry, err := policy.NewRegistry(tables...)
		if err != nil {
			return fmt.Errorf("building policy registry: %w", err)
		}

		var sessions core.SessionStore
		if redisAddr != "" {
			store := redissession.New(redisAddr, "", 0)
			defer store.Close()
			sessions = store
		} else {
			sessions = session.NewInMemoryStore()
		}

		var transport tool.Transport
		if toolsURL != "" {
			transport = tool.NewHTTPTransport(toolsURL)
		} else {
			transport = tool.NewStubTransport()
			logger.Warn("no tools-url configured, using stub tool transport")
		}
		gateway := tool.NewGateway(tool.DefaultCatalog(), transport, func(o *tool.GatewayOptions) {
			o.Logger = logger
		})

		classifier, responder, err := buildOracles(oracleKind)
		if err != nil {
			return err
		}

		orch := orchestrator.New(sessions, registry, gateway, classifier, responder,
			func(o *orchestrator.Options) {
				o.Logger = logger
			})

		srv := &http.Server{
			Addr:    addr,
			Handler: server.New(orch, func(o *server.Options) { o.Logger = logger }).Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "workflows", workflowsDir, "policy_version", registry.Current().Version)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
		}
		return nil
	},
}

// buildOracles selects the language model backing. The static pair keeps the
// engine fully deterministic for local runs and demos.
func buildOracles(kind string) (oracle.Classifier, oracle.Responder, error) {
	switch kind {
	case "openai":
		o := openaioracle.New()
		return o, o, nil
	case "anthropic":
		o := anthropicoracle.New()
		return o, o, nil
	case "static":
		classifier := &oracle.StaticClassifier{Script: []oracle.Classification{
			{Intent: "WISMO", Confidence: 0.95},
		}}
		responder := &oracle.TemplateResponder{Templates: oracle.DefaultTemplates()}
		return classifier, responder, nil
	default:
		return nil, nil, fmt.Errorf("unknown oracle %q (want openai, anthropic or static)", kind)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("tools-url", "", "Base URL of the commerce tool backend")
	serveCmd.Flags().String("redis-addr", "", "Redis address for session persistence (empty = in-memory)")
	serveCmd.Flags().String("oracle", "static", "Language oracle backing: openai, anthropic or static")
	serveCmd.Flags().String("log-format", "json", "Log format: json or text")
}
