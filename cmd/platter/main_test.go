package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"platter/internal/config"
	"platter/internal/importer"
	"platter/internal/library"
	"platter/internal/queue"
	"platter/internal/stage"
	"platter/internal/testsupport"
)

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	raw, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, cfg
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestQueueListEmpty(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	output := runCommand(t, "--config", configPath, "queue", "list")
	if !strings.Contains(output, "Queue is empty.") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestQueueListShowsTasks(t *testing.T) {
	configPath, cfg := writeTestConfig(t)

	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewUnitItem(t, store, "/music/incoming/abraxas", "Abraxas", "fp-abraxas")

	output := runCommand(t, "--config", configPath, "queue", "list")
	if !strings.Contains(output, "Abraxas") || !strings.Contains(output, "pending") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestQueueHealthSummarizes(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	output := runCommand(t, "--config", configPath, "queue", "health")
	if !strings.Contains(output, "Total") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestConfigShowPrintsDefaults(t *testing.T) {
	output := runCommand(t, "config", "show")
	if !strings.Contains(output, "[matcher]") || !strings.Contains(output, "artist_weight") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(output, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
}

func TestPromptDecisionParsing(t *testing.T) {
	unit := testsupport.NewUnit(t, "Can", "Ege Bamyasi", 2)
	candidate := testsupport.NewCandidate(unit)
	set := stage.CandidateSet{
		Candidates: []stage.ScoredCandidate{{Release: candidate, Total: 0.02}},
	}
	item := &queue.Item{ID: 1, UnitTitle: unit.Album()}

	cases := []struct {
		name  string
		input string
		want  importer.DecisionAction
	}{
		{"enter accepts best", "\n", importer.ActionAcceptBest},
		{"number selects candidate", "1\n", importer.ActionAcceptCandidate},
		{"u imports as-is", "u\n", importer.ActionAsIs},
		{"s skips", "s\n", importer.ActionSkip},
		{"b aborts", "b\n", importer.ActionAbort},
		{"t splits singletons", "t\n", importer.ActionSingletons},
		{"garbage reprompts", "zzz\ns\n", importer.ActionSkip},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			provider := newPromptProvider(strings.NewReader(tc.input), &out)
			decision, err := provider.Decide(context.Background(), item, set)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if decision.Action != tc.want {
				t.Fatalf("action = %s, want %s", decision.Action, tc.want)
			}
		})
	}
}

func TestPromptEOFParks(t *testing.T) {
	var out bytes.Buffer
	provider := newPromptProvider(strings.NewReader(""), &out)
	_, err := provider.Decide(context.Background(), &queue.Item{}, stage.CandidateSet{})
	if err != importer.ErrNoDecision {
		t.Fatalf("err = %v, want ErrNoDecision", err)
	}
}

func TestPromptDuplicateResolution(t *testing.T) {
	var out bytes.Buffer
	provider := newPromptProvider(strings.NewReader("r\n"), &out)
	set := library.DuplicateSet{Entries: []library.Entry{{Artist: "Can", Album: "Ege Bamyasi"}}}
	resolution, err := provider.ResolveDuplicate(context.Background(), &queue.Item{UnitTitle: "Ege Bamyasi"}, set)
	if err != nil {
		t.Fatalf("ResolveDuplicate: %v", err)
	}
	if resolution != library.ResolutionReplace {
		t.Fatalf("resolution = %s, want replace", resolution)
	}
}
