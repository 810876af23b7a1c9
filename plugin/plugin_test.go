package plugin

import (
	"context"
	"testing"

	"github.com/netdox/netdox/config"
)

func TestMembersOfAssignsFirstPopulatedRole(t *testing.T) {
	cfgs := []config.PluginConfig{
		{Name: "amass", WriteOnly: "dns"},
		{Name: "shodan", ReadWrite: "dns"},
		{Name: "nmap", Connectors: "scan"},
		{Name: "both", WriteOnly: "dns", ReadWrite: "dns"},
	}

	if got := membersOf(cfgs, StageWriteOnly); len(got) != 2 {
		t.Errorf("expected amass and both in write-only stage, got %+v", got)
	}
	if got := membersOf(cfgs, StageReadWrite); len(got) != 1 || got[0].Name != "shodan" {
		t.Errorf("expected only shodan in read-write stage, got %+v", got)
	}
	if got := membersOf(cfgs, StageConnectors); len(got) != 1 || got[0].Name != "nmap" {
		t.Errorf("expected only nmap in connectors stage, got %+v", got)
	}
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StageWriteOnly: "write-only",
		StageReadWrite: "read-write",
		StageConnectors: "connectors",
		Stage(99): "unknown",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
}

func TestRunAggregatesFailuresWithoutAbortingSiblingStages(t *testing.T) {
	cfgs := []config.PluginConfig{
		{Name: "false", WriteOnly: "dns"},
		{Name: "true", ReadWrite: "dns"},
	}

	err := Run(context.Background(), cfgs)
	if err == nil {
		t.Fatal("expected an aggregated error from the failing write-only plugin")
	}
}

func TestRunSucceedsWhenEveryPluginSucceeds(t *testing.T) {
	cfgs := []config.PluginConfig{
		{Name: "true", WriteOnly: "dns"},
		{Name: "true", ReadWrite: "dns"},
	}

	if err := Run(context.Background(), cfgs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
