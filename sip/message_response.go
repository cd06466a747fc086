package sip

import (
	"log/slog"
	"strconv"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/internal/util"
)

// ResponseStatus is a SIP response status code.
type ResponseStatus uint16

// Response status codes used by the transaction layer.
const (
	ResponseStatusTrying               ResponseStatus = 100
	ResponseStatusRinging              ResponseStatus = 180
	ResponseStatusCallIsBeingForwarded ResponseStatus = 181
	ResponseStatusQueued               ResponseStatus = 182
	ResponseStatusSessionProgress      ResponseStatus = 183
	ResponseStatusOK                   ResponseStatus = 200
	ResponseStatusAccepted             ResponseStatus = 202
	ResponseStatusMovedTemporarily     ResponseStatus = 302
	ResponseStatusBadRequest           ResponseStatus = 400
	ResponseStatusUnauthorized         ResponseStatus = 401
	ResponseStatusForbidden            ResponseStatus = 403
	ResponseStatusNotFound             ResponseStatus = 404
	ResponseStatusRequestTimeout       ResponseStatus = 408
	ResponseStatusTemporarilyUnavail   ResponseStatus = 480
	ResponseStatusBusyHere             ResponseStatus = 486
	ResponseStatusRequestTerminated    ResponseStatus = 487
	ResponseStatusServerInternalError  ResponseStatus = 500
	ResponseStatusServiceUnavailable   ResponseStatus = 503
	ResponseStatusBusyEverywhere       ResponseStatus = 600
	ResponseStatusDecline              ResponseStatus = 603
)

var statusReasons = map[ResponseStatus]string{
	ResponseStatusTrying:               "Trying",
	ResponseStatusRinging:              "Ringing",
	ResponseStatusCallIsBeingForwarded: "Call Is Being Forwarded",
	ResponseStatusQueued:               "Queued",
	ResponseStatusSessionProgress:      "Session Progress",
	ResponseStatusOK:                   "OK",
	ResponseStatusAccepted:             "Accepted",
	ResponseStatusMovedTemporarily:     "Moved Temporarily",
	ResponseStatusBadRequest:           "Bad Request",
	ResponseStatusUnauthorized:         "Unauthorized",
	ResponseStatusForbidden:            "Forbidden",
	ResponseStatusNotFound:             "Not Found",
	ResponseStatusRequestTimeout:       "Request Timeout",
	ResponseStatusTemporarilyUnavail:   "Temporarily Unavailable",
	ResponseStatusBusyHere:             "Busy Here",
	ResponseStatusRequestTerminated:    "Request Terminated",
	ResponseStatusServerInternalError:  "Server Internal Error",
	ResponseStatusServiceUnavailable:   "Service Unavailable",
	ResponseStatusBusyEverywhere:       "Busy Everywhere",
	ResponseStatusDecline:              "Decline",
}

// Reason returns the default reason phrase of the status.
func (s ResponseStatus) Reason() string {
	if r, ok := statusReasons[s]; ok {
		return r
	}
	return "Unknown"
}

// IsValid checks whether the status is in the 100-699 range.
func (s ResponseStatus) IsValid() bool { return s >= 100 && s <= 699 }

func (s ResponseStatus) IsProvisional() bool { return s >= 100 && s <= 199 }

func (s ResponseStatus) IsSuccessful() bool { return s >= 200 && s <= 299 }

// IsFinal checks whether the status is in the 200-699 range.
func (s ResponseStatus) IsFinal() bool { return s >= 200 && s <= 699 }

// Response is a SIP response.
type Response struct {
	Status  ResponseStatus
	Reason  string
	Headers Headers
	Body    []byte
}

var resCopyHdrs = []string{"Via", "From", "To", "Call-ID", "CSeq", "Timestamp"}

// NewResponse builds a response to the request as described in RFC 3261 Section 8.2.6.
// Via, From, To, Call-ID, CSeq and Timestamp header fields are copied from the request.
// Empty reason is replaced with the default reason phrase of the status.
func NewResponse(req *Request, status ResponseStatus, reason string) *Response {
	if reason == "" {
		reason = status.Reason()
	}
	res := &Response{
		Status: status,
		Reason: reason,
	}
	for _, h := range req.Headers {
		for _, name := range resCopyHdrs {
			if hdrNameEq(h.Name, name) {
				res.Headers = append(res.Headers, h)
				break
			}
		}
	}
	return res
}

// ToTag returns the tag parameter of the To header.
func (r *Response) ToTag() string { return headerTag(r.Headers, "To") }

// CSeq returns the sequence number and method of the CSeq header.
func (r *Response) CSeq() (uint32, RequestMethod, error) {
	return errtrace.Wrap3(parseCSeq(r.Headers))
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Status:  r.Status,
		Reason:  r.Reason,
		Headers: r.Headers.Clone(),
		Body:    append([]byte(nil), r.Body...),
	}
}

// String renders the response in the wire format.
func (r *Response) String() string {
	if r == nil {
		return ""
	}

	sb := util.Builder()
	defer util.PutBuilder(sb)

	sb.WriteString("SIP/2.0 ")
	sb.WriteString(strconv.Itoa(int(r.Status)))
	sb.WriteByte(' ')
	sb.WriteString(r.Reason)
	sb.WriteString("\r\n")
	writeMessageTail(sb, r.Headers, r.Body)
	return sb.String()
}

// LogValue implements [slog.LogValuer].
func (r *Response) LogValue() slog.Value {
	if r == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Int("status", int(r.Status)),
		slog.String("reason", r.Reason),
		slog.String("to_tag", r.ToTag()),
	)
}
