package publisher

import (
	"strings"

	"github.com/netdox/netdox/qname"
)

// Document id helpers, named after original_source's
// remote/pageseeder/remote.rs dns_qname_to_docid/node_id_to_docid/
// report_id_to_docid.

func dnsDocID(name qname.Name) string {
	s := strings.NewReplacer("[", "", "]", "_", ".", "_").Replace(string(name))
	return "dns_" + s
}

func nodeDocID(linkID string) string {
	return "node_" + linkID
}

func reportDocID(reportID string) string {
	return "report_" + reportID
}

const changelogDocID = "changelog"
