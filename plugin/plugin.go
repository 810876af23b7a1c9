// Package plugin orchestrates producer subprocesses: stages run serially,
// the plugins within a stage run in parallel, grounded on
// owasp-amass-engine's registry.BuildPipelines/buildAssetPipeline shape
// with handlers replaced by subprocess invocations.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"

	"github.com/caffix/pipeline"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/ratelimit"

	"github.com/netdox/netdox/config"
	"github.com/netdox/netdox/neterr"
)

// launchRate caps how many plugin subprocesses may start per second within
// a stage, preventing a large parallel producer fan-out from exhausting
// file descriptors or saturating outbound network links.
var launchRate = ratelimit.New(5)

// Stage is one serial step of the plugin lifecycle; a plugin belongs to the
// first stage whose role field it populates.
type Stage int

const (
	StageWriteOnly Stage = iota
	StageReadWrite
	StageConnectors
)

func (s Stage) String() string {
	switch s {
	case StageWriteOnly:
		return "write-only"
	case StageReadWrite:
		return "read-write"
	case StageConnectors:
		return "connectors"
	default:
		return "unknown"
	}
}

var stageOrder = []Stage{StageWriteOnly, StageReadWrite, StageConnectors}

// Run executes every configured plugin, stage order serial and plugins
// within a stage in parallel, returning the aggregate of every plugin's
// failure without aborting siblings (same "collect, don't abort" posture as
// the publisher's fan-out).
func Run(ctx context.Context, cfgs []config.PluginConfig) error {
	var errs error
	for _, stage := range stageOrder {
		members := membersOf(cfgs, stage)
		if len(members) == 0 {
			continue
		}
		if err := runStage(ctx, stage, members); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func membersOf(cfgs []config.PluginConfig, stage Stage) []config.PluginConfig {
	var out []config.PluginConfig
	for _, c := range cfgs {
		switch {
		case stage == StageWriteOnly && c.WriteOnly != "":
			out = append(out, c)
		case stage == StageReadWrite && c.WriteOnly == "" && c.ReadWrite != "":
			out = append(out, c)
		case stage == StageConnectors && c.WriteOnly == "" && c.ReadWrite == "" && c.Connectors != "":
			out = append(out, c)
		}
	}
	return out
}

// runToken is the single pipeline.Data element threading through one
// stage's parallel tasks, accumulating per-plugin failures.
type runToken struct {
	mu   sync.Mutex
	errs error
}

func (t *runToken) Clone() pipeline.Data { return t }

// runStage collects every member plugin's failure rather than cancelling
// siblings on the first one; the original kills the remaining producers in
// a stage as soon as one spawn fails, which this does not replicate.
func runStage(ctx context.Context, stage Stage, members []config.PluginConfig) error {
	tasks := make([]pipeline.Task, 0, len(members))
	for _, m := range members {
		m := m
		tasks = append(tasks, pipeline.TaskFunc(func(ctx context.Context, data pipeline.Data, _ pipeline.TaskParams) (pipeline.Data, error) {
			tok, ok := data.(*runToken)
			if !ok {
				return nil, neterr.Pluginf(nil, "%s stage task received unexpected data", stage)
			}
			if err := execPlugin(ctx, m); err != nil {
				tok.mu.Lock()
				tok.errs = multierror.Append(tok.errs, err)
				tok.mu.Unlock()
			}
			return tok, nil
		}))
	}

	p := pipeline.NewPipeline(pipeline.Parallel(stage.String(), tasks...))
	tok := &runToken{}
	src := newOneShotSource(tok)

	if err := p.ExecuteBuffered(ctx, src, pipeline.SinkFunc(func(context.Context, pipeline.Data) error {
		return nil
	}), len(members)+1); err != nil {
		return neterr.Pluginf(err, "%s stage terminated", stage)
	}
	return tok.errs
}

// execPlugin invokes a producer binary named by cfg.Name, passing its
// plugin-scoped fields as a JSON document on stdin; the plugin is
// responsible for writing its own changelog entries.
func execPlugin(ctx context.Context, cfg config.PluginConfig) error {
	launchRate.Take()

	payload, err := json.Marshal(cfg.Fields)
	if err != nil {
		return neterr.Pluginf(err, "failed to encode config for plugin %q", cfg.Name)
	}

	cmd := exec.CommandContext(ctx, cfg.Name)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return neterr.Pluginf(err, "plugin %q failed: %s", cfg.Name, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// oneShotSource is a pipeline.InputSource yielding a single token, enough to
// drive one stage's parallel fan-out to completion.
type oneShotSource struct {
	token  *runToken
	served bool
}

func newOneShotSource(tok *runToken) *oneShotSource {
	return &oneShotSource{token: tok}
}

func (s *oneShotSource) Next(ctx context.Context) bool {
	if s.served {
		return false
	}
	s.served = true
	return true
}

func (s *oneShotSource) Data() pipeline.Data { return s.token }

func (s *oneShotSource) Error() error { return nil }
