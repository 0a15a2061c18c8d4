package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/internal/filter"
	"github.com/yourorg/authflow/internal/pipeline"
	"github.com/yourorg/authflow/internal/replay"
	"github.com/yourorg/authflow/internal/report"
	"github.com/yourorg/authflow/internal/server"
	"github.com/yourorg/authflow/internal/store"
	"github.com/yourorg/authflow/pkg/types"
)

const defaultConfigContent = `classify:
  url_keywords:
    - login
    - auth
    - sso
    - saml
    - oauth
    - token
    - authorize
    - acs
    - idp
  param_names:
    - samlrequest
    - samlresponse
    - relaystate

flow:
  prefix_cap: 50
  sample_cap: 30

replay:
  user_agent: "authflow-har-replay/1.0"
  timeout_seconds: 30
  insecure_tls: false
  max_fallback_replays: 10
  snippet_limit: 800
  decoded_limit: 2000

filter:
  enabled: false
  ignore_extensions:
    - .js
    - .css
    - .png
    - .jpg
    - .gif
    - .svg
    - .woff
    - .woff2
    - .ico
    - .map
  ignore_paths:
    - /static/
    - /assets/
    - /favicon

sanitize:
  headers:
    - authorization
    - x-api-key

output:
  dir: "./output"

server:
  host: "127.0.0.1"
  port: 3000

log:
  level: "info"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "authflow",
		Short: "HAR-driven authentication flow discovery and replay",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	root.AddCommand(newInitCmd())
	root.AddCommand(newAnalyzeCmd(&cfgPath))
	root.AddCommand(newReplayCmd(&cfgPath))
	root.AddCommand(newImportCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newDeleteCmd())

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.authflow directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := baseDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(base, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(base, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(base, "authflow.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			return nil
		},
	}
}

func newAnalyzeCmd(cfgPath *string) *cobra.Command {
	var harPath, outPath string
	var markdown bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a HAR file offline (no network activity)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			an, err := pipeline.Analyze(harPath, cfg, stagePrinter(out))
			if err != nil {
				return err
			}
			rep := report.Assemble(harPath, len(an.Exchanges), an.Flow, an.Diagram, nil, cfg.Flow.SampleCap)
			if err := report.WriteJSON(rep, outPath); err != nil {
				return err
			}
			if markdown {
				if err := report.RenderMarkdown(rep, cfg.Output.Dir); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "entries: %d, candidate flow: %d (%s)\n", rep.EntryCount, rep.CandidateFlowLength, rep.FlowStrategy)
			fmt.Fprintln(out, an.Diagram)
			fmt.Fprintln(out, "report saved to", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	cmd.Flags().StringVar(&outPath, "out", "har_report.json", "report output path")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "also render a markdown summary to the output dir")
	_ = cmd.MarkFlagRequired("har")
	return cmd
}

func newReplayCmd(cfgPath *string) *cobra.Command {
	var harPath, outPath, user, pass, startURL string
	var markdown, save bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Analyze a HAR file and replay the auth flow (performs network calls)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if user == "" {
				user = os.Getenv("PSSIT_USER")
			}
			if pass == "" {
				pass = os.Getenv("PSSIT_PASS")
			}

			an, err := pipeline.Analyze(harPath, cfg, stagePrinter(out))
			if err != nil {
				return err
			}
			creds := replay.Credentials{Username: user, Password: pass}
			rep := pipeline.Replay(an, harPath, startURL, creds, cfg, stagePrinter(out))
			if err := report.WriteJSON(rep, outPath); err != nil {
				return err
			}
			if markdown {
				if err := report.RenderMarkdown(rep, cfg.Output.Dir); err != nil {
					return err
				}
			}
			if save {
				if err := saveRun(harPath, an, rep, cfg); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, "\nReport saved to", outPath)
			fmt.Fprintln(out, "\nASCII Diagram:")
			fmt.Fprintln(out, "----------------")
			fmt.Fprintln(out, an.Diagram)
			fmt.Fprintln(out, "----------------")
			if rr := rep.ReplayReport; rr != nil {
				if rr.FoundSAMLToken != "" {
					fmt.Fprintln(out, "\nFound samlToken cookie in replay session (value truncated):", head(rr.FoundSAMLToken, 80))
				}
				if rr.FoundAccessToken != "" {
					fmt.Fprintln(out, "\nFound access_token in last response (truncated):", head(rr.FoundAccessToken, 80))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	cmd.Flags().StringVar(&outPath, "out", "har_report.json", "report output path")
	cmd.Flags().StringVar(&user, "user", "", "username for form substitution (or set PSSIT_USER)")
	cmd.Flags().StringVar(&pass, "pass", "", "password for form substitution (or set PSSIT_PASS)")
	cmd.Flags().StringVar(&startURL, "start-url", "", "explicit start URL for replay")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "also render a markdown summary to the output dir")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run as a session in the database")
	_ = cmd.MarkFlagRequired("har")
	return cmd
}

func newImportCmd(cfgPath *string) *cobra.Command {
	var harPath, scenario string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a HAR file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			an, err := pipeline.Analyze(harPath, cfg, nil)
			if err != nil {
				return err
			}
			exchanges := an.Exchanges
			if cfg.Filter.Enabled {
				exchanges = filter.Apply(exchanges, cfg.Filter)
			}
			exchanges = filter.Sanitize(exchanges, cfg.Sanitize)

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sess, err := s.CreateSession(harPath, scenario, firstHost(exchanges))
			if err != nil {
				return err
			}
			if err := s.SaveExchanges(sess.ID, exchanges); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "imported", sess.ID, "with", len(exchanges), "exchanges")
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario description")
	_ = cmd.MarkFlagRequired("har")
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve imported sessions and reports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			srv, err := server.New(cfg, s)
			if err != nil {
				return err
			}
			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			slog.Info("serving", "addr", addr)
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "server host")
	cmd.Flags().IntVar(&port, "port", 0, "server port")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			sessions, err := s.ListSessions()
			if err != nil {
				return err
			}
			for _, sess := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d exchanges\t%s\n", sess.ID, sess.Host, sess.ExchangeCount, sess.Status)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show session details",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			sess, err := s.GetSession(session)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) host=%s status=%s\n", sess.ID, sess.Scenario, sess.Host, sess.Status)
			exchanges, err := s.GetExchanges(session)
			if err != nil {
				return err
			}
			for _, ex := range exchanges {
				marker := " "
				if ex.IsAuthLike {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %3d %s %s (%d)\n", marker, ex.Seq, ex.Method, ex.URL, ex.Status)
			}
			reports, err := s.GetReports(session)
			if err != nil {
				return err
			}
			for _, rep := range reports {
				fmt.Fprintf(out, "report %s: flow=%d strategy=%s\n", rep.RunID, rep.CandidateFlowLength, rep.FlowStrategy)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.DeleteSession(session)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func loadConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := setupLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(level, filename string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		})
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".authflow"), nil
}

func openStore() (*store.SQLiteStore, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(filepath.Join(base, "authflow.db"))
}

// saveRun persists a replay run as a session with its sanitized
// exchanges and the assembled report.
func saveRun(harPath string, an *pipeline.Analysis, rep *types.FlowReport, cfg *config.Config) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	exchanges := filter.Sanitize(an.Exchanges, cfg.Sanitize)
	sess, err := s.CreateSession(harPath, "replay run", firstHost(exchanges))
	if err != nil {
		return err
	}
	if err := s.SaveExchanges(sess.ID, exchanges); err != nil {
		return err
	}
	if err := s.SaveReport(sess.ID, rep); err != nil {
		return err
	}
	return s.UpdateSessionStatus(sess.ID, "replayed")
}

func stagePrinter(w io.Writer) pipeline.ProgressFunc {
	return func(stage string) {
		fmt.Fprintln(w, stage+"...")
	}
}

func firstHost(exchanges []types.CapturedExchange) string {
	for _, ex := range exchanges {
		if u, err := url.Parse(ex.URL); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return "unknown"
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
