package publisher

import "testing"

func TestDnsDocID(t *testing.T) {
	got := dnsDocID("[dmz]host.example.com")
	want := "dns_dmz_host_example_com"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNodeDocID(t *testing.T) {
	if got := nodeDocID("link-1"); got != "node_link-1" {
		t.Errorf("got %q, want node_link-1", got)
	}
}

func TestReportDocID(t *testing.T) {
	if got := reportDocID("report-1"); got != "report_report-1" {
		t.Errorf("got %q, want report_report-1", got)
	}
}

func TestFragmentIDForRecord(t *testing.T) {
	if got := fragmentIDForRecord("A", "1.2.3.4"); got != "a_1.2.3.4" {
		t.Errorf("got %q, want a_1.2.3.4", got)
	}
	if got := fragmentIDForRecord("TXT", "v=spf1:include"); got != "txt_v=spf1_include" {
		t.Errorf("got %q, want txt_v=spf1_include", got)
	}
}
