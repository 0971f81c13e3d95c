package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ogurasousui/candidate-lifecycle/internal/adapters/grpc/candidatev1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const usage = `usage: candidatectl [-addr host:port] [-timeout 5s] <command> [flags]

commands:
  create      -name NAME [-email E] [-phone P] [-batch B] [-recruiter ID]
  get         -id ID
  transition  -id ID -to STAGE [-reason R] [-close-reason C] [-withdraw-reason W]
              [-hold-reason H] [-follow-up YYYY-MM-DD] [-offer-type W2|C2C]
              [-start-date YYYY-MM-DD] [-reactivate-reason R]
  substatus   -id ID -status SUB_STATUS [-reason R]
  timeline    -id ID
  options     -id ID
  due         [-as-of RFC3339] [-limit N]
  graph
`

// command はサブコマンドの定義です。build はフラグを解釈してリクエストを組み立てます。
type command struct {
	method string
	build  func(fs *flag.FlagSet, args []string) (map[string]any, error)
}

var commands = map[string]command{
	"create": {candidatev1.CreateCandidateMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"name"},
			field{"name", "name"}, field{"email", "email"}, field{"phone", "phone"},
			field{"batch", "batch"}, field{"recruiter", "recruiterId"})
	}},
	"get": {candidatev1.GetCandidateMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"id"}, field{"id", "id"})
	}},
	"transition": {candidatev1.RequestTransitionMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"id", "to"},
			field{"id", "candidateId"}, field{"to", "toStage"}, field{"reason", "reason"},
			field{"close-reason", "closeReason"}, field{"withdraw-reason", "withdrawReason"},
			field{"hold-reason", "holdReason"}, field{"follow-up", "nextFollowUpAt"},
			field{"offer-type", "offerType"}, field{"start-date", "startDate"},
			field{"reactivate-reason", "reactivateReason"})
	}},
	"substatus": {candidatev1.RequestSubStatusUpdateMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"id", "status"},
			field{"id", "candidateId"}, field{"status", "subStatus"}, field{"reason", "reason"})
	}},
	"timeline": {candidatev1.ListTimelineMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"id"}, field{"id", "candidateId"})
	}},
	"options": {candidatev1.GetTransitionOptionsMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, []string{"id"}, field{"id", "candidateId"})
	}},
	"due": {candidatev1.ListDueFollowUpsMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		limit := fs.Int("limit", 0, "maximum number of candidates")
		req, err := parseFields(fs, args, nil, field{"as-of", "asOf"})
		if err != nil {
			return nil, err
		}
		if *limit > 0 {
			req["limit"] = *limit
		}
		return req, nil
	}},
	"graph": {candidatev1.GetStageGraphMethod, func(fs *flag.FlagSet, args []string) (map[string]any, error) {
		return parseFields(fs, args, nil)
	}},
}

// field はコマンドラインフラグ名とリクエストのキーの対応です。
type field struct {
	flag string
	key  string
}

func parseFields(fs *flag.FlagSet, args []string, required []string, fields ...field) (map[string]any, error) {
	values := make(map[string]*string, len(fields))
	for _, f := range fields {
		values[f.flag] = fs.String(f.flag, "", f.key)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, name := range required {
		if strings.TrimSpace(*values[name]) == "" {
			return nil, fmt.Errorf("-%s is required", name)
		}
	}

	req := make(map[string]any, len(fields))
	for _, f := range fields {
		if v := *values[f.flag]; v != "" {
			req[f.key] = v
		}
	}
	return req, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "candidatectl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("candidatectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	addr := global.String("addr", envOr("CANDIDATE_ADDR", "localhost:50051"), "gRPC server address")
	timeout := global.Duration("timeout", 5*time.Second, "per-call timeout")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("command is required")
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fields, err := cmd.build(fs, global.Args()[1:])
	if err != nil {
		return err
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := candidatev1.NewCandidateServiceClient(conn).Call(ctx, cmd.method, req)
	if err != nil {
		return describeError(err)
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}

func describeError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := fmt.Sprintf("%s: %s", st.Code(), st.Message())
	for _, d := range st.Details() {
		m, ok := d.(proto.Message)
		if !ok {
			continue
		}
		if b, err := protojson.Marshal(m); err == nil {
			msg += "\n  " + string(b)
		}
	}
	return errors.New(msg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
