package adf

import "regexp"

// Response is the parsed form of an ADF acknowledgement document.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	LeadID  string `json:"lead_id,omitempty"`
}

var (
	statusRe  = regexp.MustCompile(`<status>([^<]+)</status>`)
	messageRe = regexp.MustCompile(`<message>([^<]+)</message>`)
	leadIDRe  = regexp.MustCompile(`<leadid>([^<]+)</leadid>`)
)

// ParseResponse pulls status, message and the remote lead id out of an ADF
// acknowledgement. CRMs are loose about the envelope, so this matches the
// tags anywhere in the body rather than parsing strictly.
func ParseResponse(xml string) Response {
	r := Response{Status: "unknown"}
	if m := statusRe.FindStringSubmatch(xml); m != nil {
		r.Status = m[1]
	}
	if m := messageRe.FindStringSubmatch(xml); m != nil {
		r.Message = m[1]
	}
	if m := leadIDRe.FindStringSubmatch(xml); m != nil {
		r.LeadID = m[1]
	}
	return r
}
