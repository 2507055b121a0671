package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/pkg/observability"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	tests := []struct {
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{LogInfo, func(l *log.Logger) { l.Info("computed view") }, true},
		{LogInfo, func(l *log.Logger) { l.Debug("stage") }, false},
		{LogDebug, func(l *log.Logger) { l.Debug("stage") }, true},
		{LogInfo, func(l *log.Logger) { l.Warn("orphan node") }, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(newLogger(&buf, tt.level))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("level %s: wrote output = %v, want %v (%q)", tt.level, got, tt.want, buf.String())
		}
	}
}

func TestSetLogLevelDebugInstallsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.SetLogLevel(LogInfo)
	if _, ok := observability.Pipeline().(*logHooks); ok {
		t.Fatal("info level should keep the no-op hooks")
	}

	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %s, want debug", c.Logger.GetLevel())
	}
	for name, hooks := range map[string]any{
		"pipeline": observability.Pipeline(),
		"cache":    observability.Cache(),
		"http":     observability.HTTP(),
	} {
		if _, ok := hooks.(*logHooks); !ok {
			t.Errorf("%s hooks = %T, want *logHooks", name, hooks)
		}
	}

	ctx := context.Background()
	observability.Pipeline().OnFetchStart(ctx, "sales.json")
	observability.Cache().OnCacheMiss(ctx, "view")
	out := buf.String()
	for _, want := range []string{"sales.json", "cache miss", "view"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug log missing %q:\n%s", want, out)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFrom(context.Background()) != log.Default() {
		t.Error("loggerFrom without a logger should return log.Default")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, LogInfo)
	if loggerFrom(contextWithLogger(context.Background(), l)) != l {
		t.Error("loggerFrom should return the attached logger")
	}
}

func TestRootCommandAttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()

	var got *log.Logger
	root.AddCommand(&cobra.Command{
		Use: "whoami",
		Run: func(cmd *cobra.Command, args []string) { got = loggerFrom(cmd.Context()) },
	})
	root.SetArgs([]string{"whoami"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != c.Logger {
		t.Error("subcommands should see the CLI logger in their context")
	}
}

func TestStopwatchDone(t *testing.T) {
	var buf bytes.Buffer
	sw := startStopwatch(newLogger(&buf, LogInfo))
	sw.done("fetched payload", "source", "sales.json")

	out := buf.String()
	for _, want := range []string{"fetched payload", "source=sales.json", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("stopwatch output missing %q: %q", want, out)
		}
	}
}
