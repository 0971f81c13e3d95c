package main

import (
	"bytes"
	"flag"
	"io"
	"strings"
	"testing"
)

func TestCommands_BuildRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want map[string]any
	}{
		{
			name: "transition",
			args: []string{"-id", "c-1", "-to", "ON_HOLD", "-hold-reason", "visa", "-follow-up", "2025-06-20"},
			want: map[string]any{"candidateId": "c-1", "toStage": "ON_HOLD", "holdReason": "visa", "nextFollowUpAt": "2025-06-20"},
		},
		{
			name: "substatus",
			args: []string{"-id", "c-1", "-status", "CONTACTED"},
			want: map[string]any{"candidateId": "c-1", "subStatus": "CONTACTED"},
		},
		{
			name: "due",
			args: []string{"-limit", "20"},
			want: map[string]any{"limit": 20},
		},
		{
			name: "graph",
			want: map[string]any{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := flag.NewFlagSet(tc.name, flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			got, err := commands[tc.name].build(fs, tc.args)
			if err != nil {
				t.Fatalf("build returned error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("expected %s=%v, got %v", k, v, got[k])
				}
			}
		})
	}
}

func TestCommands_RequiredFlags(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("transition", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err := commands["transition"].build(fs, []string{"-id", "c-1"})
	if err == nil || !strings.Contains(err.Error(), "-to is required") {
		t.Fatalf("expected missing -to error, got %v", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	err := run([]string{"promote"}, io.Discard, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown command "promote"`) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "usage: candidatectl") {
		t.Fatalf("expected usage output, got %q", stderr.String())
	}
}
