package mimetype

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Param is a single media type or accept-extension parameter. Names are lower case.
type Param struct {
	Name  string
	Value string
}

// Wildcard is the type or subtype token matching anything.
const Wildcard = "*"

/*
MediaRange is one entry of an Accept header:

	type "/" subtype *( ";" parameter ) [ ";" "q=" qvalue *( ";" accept-ext ) ]

Parameters before q narrow the range and take part in matching. Parameters after q
are accept-extensions and are kept only for reference.
*/
type MediaRange struct {
	// Lower-cased type token, or "*".
	Type string
	// Lower-cased subtype token, or "*".
	Subtype string
	// Quality weight from 0 to 1. Defaults to 1.
	Q float64
	// Media type parameters that appear before q.
	Params []Param
	// Accept-extension parameters that appear after q.
	Extensions []Param
}

// MimeType returns "type/subtype" without parameters.
func (mediaRange MediaRange) MimeType() MimeType {
	return MimeType(mediaRange.Type + "/" + mediaRange.Subtype)
}

// String renders the range back to header form.
func (mediaRange MediaRange) String() string {
	builder := strings.Builder{}
	builder.WriteString(mediaRange.Type)
	builder.WriteByte('/')
	builder.WriteString(mediaRange.Subtype)
	for _, param := range mediaRange.Params {
		builder.WriteString(";" + param.Name + "=" + param.Value)
	}
	if mediaRange.Q != 1 || len(mediaRange.Extensions) > 0 {
		builder.WriteString(";q=" + strconv.FormatFloat(mediaRange.Q, 'g', 3, 64))
	}
	for _, param := range mediaRange.Extensions {
		builder.WriteString(";" + param.Name + "=" + param.Value)
	}
	return builder.String()
}

// Param returns the value of the media type parameter name.
func (mediaRange MediaRange) Param(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, param := range mediaRange.Params {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Match levels returned by MediaRange.Specificity. Each parameter on an exact range
// adds one to MatchExact.
const (
	MatchAny     = 1
	MatchType    = 2
	MatchExact   = 3
	paramsWeight = 1000
)

// Specificity ranks how narrow the range is. Exact ranges with parameters rank above
// exact ranges without.
func (mediaRange MediaRange) Specificity() int {
	switch {
	case mediaRange.Type == Wildcard:
		return MatchAny * paramsWeight
	case mediaRange.Subtype == Wildcard:
		return MatchType * paramsWeight
	default:
		return MatchExact*paramsWeight + len(mediaRange.Params)
	}
}

// Matches reports whether candidate falls inside the range. Only type and subtype
// are compared; parameters are ranked by Precedence.
func (mediaRange MediaRange) Matches(candidate MediaRange) bool {
	if mediaRange.Type != Wildcard && mediaRange.Type != candidate.Type {
		return false
	}
	return mediaRange.Subtype == Wildcard || mediaRange.Subtype == candidate.Subtype
}

// Precedence ranks a matching range against candidate. It is the match level of the
// range plus one for each range parameter the candidate carries with an equal
// (case-insensitive) value.
func (mediaRange MediaRange) Precedence(candidate MediaRange) int {
	if mediaRange.Type == Wildcard || mediaRange.Subtype == Wildcard {
		return mediaRange.Specificity()
	}

	precedence := MatchExact * paramsWeight
	for _, param := range mediaRange.Params {
		value, ok := candidate.Param(param.Name)
		if ok && strings.EqualFold(value, param.Value) {
			precedence++
		}
	}
	return precedence
}

// ParseMediaType parses a concrete media type such as a Content-Type value or a
// server-side candidate. Wildcards are rejected.
func ParseMediaType(text string) (MediaRange, error) {
	mediaRange, err := ParseMediaRange(text)
	if err != nil {
		return MediaRange{}, err
	}
	if mediaRange.Type == Wildcard || mediaRange.Subtype == Wildcard {
		return MediaRange{}, xerrors.Errorf("media type %q contains a wildcard", text)
	}
	return mediaRange, nil
}

// ParseMediaRange parses a single Accept header entry.
func ParseMediaRange(text string) (MediaRange, error) {
	parts := strings.Split(text, ";")

	fullType := strings.ToLower(strings.TrimSpace(parts[0]))
	slash := strings.IndexByte(fullType, '/')
	if slash < 0 {
		return MediaRange{}, xerrors.Errorf("media range %q has no subtype", text)
	}

	mediaRange := MediaRange{
		Type:    strings.TrimSpace(fullType[:slash]),
		Subtype: strings.TrimSpace(fullType[slash+1:]),
		Q:       1,
	}

	if !isToken(mediaRange.Type) || !isToken(mediaRange.Subtype) {
		return MediaRange{}, xerrors.Errorf("media range %q is malformed", text)
	}
	if mediaRange.Type == Wildcard && mediaRange.Subtype != Wildcard {
		return MediaRange{}, xerrors.Errorf(
			"media range %q has a wildcard type with a concrete subtype", text,
		)
	}

	seenQ := false
	for _, rawParam := range parts[1:] {
		rawParam = strings.TrimSpace(rawParam)
		if rawParam == "" {
			continue
		}

		param, err := parseParam(rawParam)
		if err != nil {
			return MediaRange{}, xerrors.Errorf("media range %q: %w", text, err)
		}

		switch {
		case param.Name == "q" && !seenQ:
			q, err := ParseQuality(param.Value)
			if err != nil {
				return MediaRange{}, xerrors.Errorf("media range %q: %w", text, err)
			}
			mediaRange.Q = q
			seenQ = true
		case seenQ:
			mediaRange.Extensions = append(mediaRange.Extensions, param)
		default:
			mediaRange.Params = append(mediaRange.Params, param)
		}
	}

	return mediaRange, nil
}

// ParseQuality parses a qvalue: a number from 0 to 1 with at most three decimals.
func ParseQuality(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > 5 {
		return 0, xerrors.Errorf("invalid quality value %q", text)
	}
	if dot := strings.IndexByte(text, '.'); dot >= 0 && dot != 1 {
		return 0, xerrors.Errorf("invalid quality value %q", text)
	}

	q, err := strconv.ParseFloat(text, 64)
	if err != nil || q < 0 || q > 1 {
		return 0, xerrors.Errorf("invalid quality value %q", text)
	}
	return q, nil
}

func parseParam(rawParam string) (Param, error) {
	equals := strings.IndexByte(rawParam, '=')
	if equals <= 0 {
		return Param{}, xerrors.Errorf("parameter %q has no value", rawParam)
	}

	name := strings.ToLower(strings.TrimSpace(rawParam[:equals]))
	value := strings.TrimSpace(rawParam[equals+1:])
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	if !isToken(name) {
		return Param{}, xerrors.Errorf("parameter name %q is not a token", name)
	}

	return Param{Name: name, Value: value}, nil
}

// Reports whether text is a non-empty RFC 7230 token.
func isToken(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		char := text[i]
		if char <= ' ' || char >= 0x7f || strings.IndexByte("()<>@,;:\\\"/[]?={}", char) >= 0 {
			return false
		}
	}
	return true
}
