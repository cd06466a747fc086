package sip

import (
	"slices"
	"strings"

	"github.com/ghettovoice/siptx/internal/util"
)

// Header is a single SIP header field.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of header fields.
// Lookups are case-insensitive and aware of RFC 3261 compact header names.
type Headers []Header

var compactHdrNames = map[string]string{
	"c": "Content-Type",
	"e": "Content-Encoding",
	"f": "From",
	"i": "Call-ID",
	"k": "Supported",
	"l": "Content-Length",
	"m": "Contact",
	"s": "Subject",
	"t": "To",
	"v": "Via",
}

// CanonicHeaderName expands a compact header name to its long form.
// Other names are returned as is.
func CanonicHeaderName(name string) string {
	name = util.Trim(name)
	if len(name) == 1 {
		if full, ok := compactHdrNames[strings.ToLower(name)]; ok {
			return full
		}
	}
	return name
}

func hdrNameEq(n1, n2 string) bool {
	return util.EqFold(CanonicHeaderName(n1), CanonicHeaderName(n2))
}

// Get returns the value of the first header field with the given name.
func (hs Headers) Get(name string) (string, bool) {
	for _, h := range hs {
		if hdrNameEq(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Values returns values of all header fields with the given name in order.
// Comma-separated values of a single header field are not split.
func (hs Headers) Values(name string) []string {
	var vals []string
	for _, h := range hs {
		if hdrNameEq(h.Name, name) {
			vals = append(vals, h.Value)
		}
	}
	return vals
}

// Has checks whether a header field with the given name exists.
func (hs Headers) Has(name string) bool {
	_, ok := hs.Get(name)
	return ok
}

// Set replaces all header fields with the given name with a single one.
// The new field takes the position of the first replaced one or is appended.
func (hs *Headers) Set(name, value string) *Headers {
	idx := -1
	out := (*hs)[:0]
	for _, h := range *hs {
		if hdrNameEq(h.Name, name) {
			if idx >= 0 {
				continue
			}
			idx = len(out)
			h = Header{name, value}
		}
		out = append(out, h)
	}
	if idx < 0 {
		out = append(out, Header{name, value})
	}
	*hs = out
	return hs
}

// Add appends a header field.
func (hs *Headers) Add(name, value string) *Headers {
	*hs = append(*hs, Header{name, value})
	return hs
}

// Prepend inserts a header field before all others.
func (hs *Headers) Prepend(name, value string) *Headers {
	*hs = slices.Insert(*hs, 0, Header{name, value})
	return hs
}

// Del removes all header fields with the given name.
func (hs *Headers) Del(name string) *Headers {
	*hs = slices.DeleteFunc(*hs, func(h Header) bool { return hdrNameEq(h.Name, name) })
	return hs
}

// Clone returns a deep copy of the headers.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	return slices.Clone(hs)
}

func (hs Headers) writeTo(sb *strings.Builder) {
	for _, h := range hs {
		sb.WriteString(h.Name)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString("\r\n")
	}
}

// Param is a header parameter, an empty value means a flag parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of header parameters.
type Params []Param

// ParseParams parses a ";name=value;flag" parameter list.
// A leading semicolon is optional.
func ParseParams(s string) Params {
	var ps Params
	for p := range strings.SplitSeq(strings.TrimPrefix(util.Trim(s), ";"), ";") {
		p = util.Trim(p)
		if p == "" {
			continue
		}
		name, val, _ := strings.Cut(p, "=")
		ps = append(ps, Param{util.Trim(name), util.Trim(val)})
	}
	return ps
}

// Get returns the value of the parameter with the given name.
func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if util.EqFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// Set sets the parameter value, appending it if it does not exist.
func (ps Params) Set(name, value string) Params {
	for i := range ps {
		if util.EqFold(ps[i].Name, name) {
			ps[i].Value = value
			return ps
		}
	}
	return append(ps, Param{name, value})
}

func (ps Params) String() string {
	var sb strings.Builder
	for _, p := range ps {
		sb.WriteByte(';')
		sb.WriteString(p.Name)
		if p.Value != "" {
			sb.WriteByte('=')
			sb.WriteString(p.Value)
		}
	}
	return sb.String()
}

// headerParams extracts parameters of a name-addr or addr-spec header value like From or To.
func headerParams(val string) Params {
	if i := strings.LastIndexByte(val, '>'); i >= 0 {
		return ParseParams(val[i+1:])
	}
	if i := strings.IndexByte(val, ';'); i >= 0 {
		return ParseParams(val[i:])
	}
	return nil
}

func headerTag(hs Headers, name string) string {
	val, ok := hs.Get(name)
	if !ok {
		return ""
	}
	tag, _ := headerParams(val).Get("tag")
	return tag
}
