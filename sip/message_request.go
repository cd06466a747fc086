package sip

import (
	"log/slog"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/internal/util"
)

// RequestMethod is a SIP request method.
type RequestMethod string

// Request methods used by the transaction layer.
const (
	RequestMethodAck      RequestMethod = "ACK"
	RequestMethodBye      RequestMethod = "BYE"
	RequestMethodCancel   RequestMethod = "CANCEL"
	RequestMethodInfo     RequestMethod = "INFO"
	RequestMethodInvite   RequestMethod = "INVITE"
	RequestMethodMessage  RequestMethod = "MESSAGE"
	RequestMethodNotify   RequestMethod = "NOTIFY"
	RequestMethodOptions  RequestMethod = "OPTIONS"
	RequestMethodPrack    RequestMethod = "PRACK"
	RequestMethodRegister RequestMethod = "REGISTER"
)

// Equal compares methods case-insensitively.
func (m RequestMethod) Equal(other RequestMethod) bool { return util.EqFold(m, other) }

// Request is a SIP request.
type Request struct {
	Method  RequestMethod
	URI     string
	Headers Headers
	Body    []byte
}

// Validate checks that the request carries the headers the transaction layer relies on.
func (r *Request) Validate() error {
	if r == nil {
		return errtrace.Wrap(NewInvalidArgumentError(ErrInvalidMessage))
	}
	if r.Method == "" || r.URI == "" {
		return errtrace.Wrap(newInvalidMessageError("empty request line"))
	}
	if _, err := r.TopVia(); err != nil {
		return errtrace.Wrap(err)
	}
	if _, _, err := r.CSeq(); err != nil {
		return errtrace.Wrap(err)
	}
	return nil
}

// TopVia returns the topmost Via value.
func (r *Request) TopVia() (Via, error) {
	val, ok := r.Headers.Get("Via")
	if !ok {
		return Via{}, errtrace.Wrap(newInvalidMessageError("missing Via header"))
	}
	return errtrace.Wrap2(ParseVia(val))
}

// Branch returns the branch parameter of the topmost Via.
func (r *Request) Branch() string {
	via, err := r.TopVia()
	if err != nil {
		return ""
	}
	return via.Branch()
}

// SetVia writes the branch and the transport protocol into the topmost Via.
// Other Via values are kept.
func (r *Request) SetVia(branch string, proto TransportProto) error {
	for i, h := range r.Headers {
		if !hdrNameEq(h.Name, "Via") {
			continue
		}
		top, rest, _ := strings.Cut(h.Value, ",")
		via, err := ParseVia(top)
		if err != nil {
			return errtrace.Wrap(err)
		}
		via.Transport = proto
		via.Params = via.Params.Set("branch", branch)
		val := via.String()
		if rest != "" {
			val += "," + rest
		}
		r.Headers[i].Value = val
		return nil
	}
	return errtrace.Wrap(newInvalidMessageError("missing Via header"))
}

// ToTag returns the tag parameter of the To header.
func (r *Request) ToTag() string { return headerTag(r.Headers, "To") }

// FromTag returns the tag parameter of the From header.
func (r *Request) FromTag() string { return headerTag(r.Headers, "From") }

// CallID returns the Call-ID header value.
func (r *Request) CallID() string {
	v, _ := r.Headers.Get("Call-ID")
	return util.Trim(v)
}

// CSeq returns the sequence number and method of the CSeq header.
func (r *Request) CSeq() (uint32, RequestMethod, error) {
	return errtrace.Wrap3(parseCSeq(r.Headers))
}

func parseCSeq(hs Headers) (uint32, RequestMethod, error) {
	val, ok := hs.Get("CSeq")
	if !ok {
		return 0, "", errtrace.Wrap(newInvalidMessageError("missing CSeq header"))
	}
	fields := strings.Fields(val)
	if len(fields) != 2 {
		return 0, "", errtrace.Wrap(newInvalidMessageError("malformed CSeq %q", val))
	}
	num, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, "", errtrace.Wrap(newInvalidMessageError("malformed CSeq %q", val))
	}
	return uint32(num), RequestMethod(fields[1]), nil
}

func formatCSeq(seq uint32, method RequestMethod) string {
	return strconv.FormatUint(uint64(seq), 10) + " " + string(method)
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		Method:  r.Method,
		URI:     r.URI,
		Headers: r.Headers.Clone(),
		Body:    append([]byte(nil), r.Body...),
	}
}

// String renders the request in the wire format.
func (r *Request) String() string {
	if r == nil {
		return ""
	}

	sb := util.Builder()
	defer util.PutBuilder(sb)

	sb.WriteString(string(r.Method))
	sb.WriteByte(' ')
	sb.WriteString(r.URI)
	sb.WriteString(" SIP/2.0\r\n")
	writeMessageTail(sb, r.Headers, r.Body)
	return sb.String()
}

// LogValue implements [slog.LogValuer].
func (r *Request) LogValue() slog.Value {
	if r == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Any("method", r.Method),
		slog.String("uri", r.URI),
		slog.String("branch", r.Branch()),
		slog.String("call_id", r.CallID()),
	)
}

func writeMessageTail(sb *strings.Builder, hs Headers, body []byte) {
	hs.writeTo(sb)
	if !hs.Has("Content-Length") {
		sb.WriteString("Content-Length: ")
		sb.WriteString(strconv.Itoa(len(body)))
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	sb.Write(body)
}
