// Package tracking builds carrier tracking links for shipments.
package tracking

import (
	"net/url"
	"regexp"
	"strings"
)

type template struct {
	match *regexp.Regexp
	build func(awb string) string
}

var templates = []template{
	{regexp.MustCompile(`(?i)delhivery`), func(n string) string { return "https://www.delhivery.com/tracking/" + url.PathEscape(n) }},
	{regexp.MustCompile(`(?i)bluedart|blue\s*dart`), func(n string) string { return "https://www.bluedart.com/tracking?trackno=" + url.QueryEscape(n) }},
	{regexp.MustCompile(`(?i)xpressbees|xpb`), func(n string) string { return "https://www.xpressbees.com/track?awb=" + url.QueryEscape(n) }},
	{regexp.MustCompile(`(?i)ecom\s*express`), func(n string) string { return "https://ecomexpress.in/tracking/?awb=" + url.QueryEscape(n) }},
	{regexp.MustCompile(`(?i)dtdc`), func(n string) string { return "https://www.dtdc.in/tracking.asp?cno=" + url.QueryEscape(n) }},
	{regexp.MustCompile(`(?i)india\s*post|speed\s*post`), func(string) string {
		return "https://www.indiapost.gov.in/_layouts/15/dop.portal.tracking/trackconsignment.aspx"
	}},
	{regexp.MustCompile(`(?i)shadowfax`), func(n string) string { return "https://www.shadowfax.in/track/" + url.PathEscape(n) }},
	{regexp.MustCompile(`(?i)ekart`), func(string) string { return "https://ekartlogistics.com/" }},
}

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// Link prefers an explicit http(s) URL, then a carrier template. It returns "" when neither applies.
func Link(carrier, awb, explicit string) string {
	if httpURL.MatchString(strings.TrimSpace(explicit)) {
		return strings.TrimSpace(explicit)
	}
	carrier, awb = strings.TrimSpace(carrier), strings.TrimSpace(awb)
	if carrier == "" || awb == "" {
		return ""
	}
	for _, t := range templates {
		if t.match.MatchString(carrier) {
			return t.build(awb)
		}
	}
	return ""
}
