package main

import (
	"testing"

	"github.com/netdox/netdox/config"
)

func TestFilterStage(t *testing.T) {
	cfgs := []config.PluginConfig{
		{Name: "amass", WriteOnly: "dns"},
		{Name: "shodan", ReadWrite: "dns"},
		{Name: "nmap", Connectors: "scan"},
	}

	if got := filterStage(cfgs, "write-only"); len(got) != 1 || got[0].Name != "amass" {
		t.Errorf("got %+v", got)
	}
	if got := filterStage(cfgs, "read-write"); len(got) != 1 || got[0].Name != "shodan" {
		t.Errorf("got %+v", got)
	}
	if got := filterStage(cfgs, "connectors"); len(got) != 1 || got[0].Name != "nmap" {
		t.Errorf("got %+v", got)
	}
	if got := filterStage(cfgs, "bogus"); got != nil {
		t.Errorf("expected nil for an unrecognised stage, got %+v", got)
	}
}
