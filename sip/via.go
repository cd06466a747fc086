package sip

import (
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/internal/util"
)

// MagicCookie is the branch prefix of RFC 3261 compliant elements.
const MagicCookie = "z9hG4bK"

// IsRFC3261Branch checks whether the branch was generated by an RFC 3261 compliant element.
func IsRFC3261Branch(branch string) bool {
	return len(branch) > len(MagicCookie) && strings.HasPrefix(branch, MagicCookie)
}

// Via is a single Via header value.
type Via struct {
	// Proto is a protocol name and version, SIP/2.0 usually.
	Proto     string
	Transport TransportProto
	// SentBy is a host with an optional port.
	SentBy string
	Params Params
}

// ParseVia parses the first value of a Via header field.
func ParseVia(s string) (Via, error) {
	s, _, _ = strings.Cut(s, ",")
	s = util.Trim(s)

	main, params, _ := strings.Cut(s, ";")
	fields := strings.Fields(main)
	if len(fields) != 2 {
		return Via{}, errtrace.Wrap(newInvalidMessageError("malformed Via %q", s))
	}
	i := strings.LastIndexByte(fields[0], '/')
	if i <= 0 || i == len(fields[0])-1 {
		return Via{}, errtrace.Wrap(newInvalidMessageError("malformed Via protocol %q", fields[0]))
	}
	return Via{
		Proto:     fields[0][:i],
		Transport: TransportProto(util.Upper(fields[0][i+1:])),
		SentBy:    fields[1],
		Params:    ParseParams(params),
	}, nil
}

// Branch returns the branch parameter.
func (v Via) Branch() string {
	b, _ := v.Params.Get("branch")
	return b
}

func (v Via) String() string {
	sb := util.Builder()
	defer util.PutBuilder(sb)

	proto := v.Proto
	if proto == "" {
		proto = "SIP/2.0"
	}
	sb.WriteString(proto)
	sb.WriteByte('/')
	sb.WriteString(string(v.Transport))
	sb.WriteByte(' ')
	sb.WriteString(v.SentBy)
	sb.WriteString(v.Params.String())
	return sb.String()
}
