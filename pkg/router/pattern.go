package router

import (
	"strings"
)

// segmentKind classifies one pattern segment.
type segmentKind uint8

const (
	segStatic segmentKind = iota
	segParam
	segCatchAll
)

func (k segmentKind) String() string {
	switch k {
	case segStatic:
		return "static"
	case segParam:
		return "param"
	case segCatchAll:
		return "catch-all"
	default:
		return "unknown"
	}
}

// CatchAllKey is the params key an unnamed catch-all ("*") binds under.
const CatchAllKey = "*"

// segment is one parsed pattern segment. For static segments value is the
// literal; for params and catch-alls it is the bound name.
type segment struct {
	kind  segmentKind
	value string
}

// String renders the segment back into pattern syntax.
func (s segment) String() string {
	switch s.kind {
	case segParam:
		return ":" + s.value
	case segCatchAll:
		if s.value == CatchAllKey {
			return "*"
		}
		return "*" + s.value
	default:
		return s.value
	}
}

// pattern is a validated route pattern.
type pattern struct {
	raw       string
	canonical string
	segments  []segment
}

// parsePattern validates a route pattern and splits it into segments.
//
// Input: "/users/:id/files/*path"
// Output: [static "users"] [param "id"] [static "files"] [catch-all "path"]
func parsePattern(raw string) (pattern, error) {
	p := pattern{raw: raw}

	var names []string
	for i := 0; ; {
		var seg string
		seg, i = nextSegment(raw, i)
		if seg == "" {
			break
		}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1].kind == segCatchAll {
			return pattern{}, invalidPattern(raw, "catch-all segment must be the last segment")
		}

		s, err := parseSegment(raw, seg)
		if err != nil {
			return pattern{}, err
		}
		if s.kind != segStatic {
			for _, n := range names {
				if n == s.value {
					return pattern{}, invalidPattern(raw, "duplicate parameter name %q", s.value)
				}
			}
			names = append(names, s.value)
		}
		p.segments = append(p.segments, s)
	}

	p.canonical = joinSegments(p.segments)
	return p, nil
}

// parseSegment classifies a single non-empty segment.
func parseSegment(raw, seg string) (segment, error) {
	switch seg[0] {
	case ':':
		name := seg[1:]
		if name == "" {
			return segment{}, invalidPattern(raw, "parameter segment %q has an empty name", seg)
		}
		if err := checkName(raw, seg, name); err != nil {
			return segment{}, err
		}
		return segment{kind: segParam, value: name}, nil

	case '*':
		name := seg[1:]
		if name == "" {
			return segment{kind: segCatchAll, value: CatchAllKey}, nil
		}
		if err := checkName(raw, seg, name); err != nil {
			return segment{}, err
		}
		return segment{kind: segCatchAll, value: name}, nil
	}

	if strings.ContainsAny(seg, "{}*") {
		return segment{}, invalidPattern(raw, "static segment %q contains a reserved character", seg)
	}
	return segment{kind: segStatic, value: seg}, nil
}

func checkName(raw, seg, name string) error {
	if strings.ContainsAny(name, ":*{}") {
		return invalidPattern(raw, "segment %q has an invalid name %q", seg, name)
	}
	return nil
}

// joinSegments renders segments as a canonical pattern ("/" for none).
func joinSegments(segs []segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// nextSegment returns the first non-empty segment at or after offset i and
// the offset just past it. An empty result means the input is exhausted.
func nextSegment(path string, i int) (string, int) {
	for i < len(path) && path[i] == '/' {
		i++
	}
	start := i
	for i < len(path) && path[i] != '/' {
		i++
	}
	return path[start:i], i
}

// splitPath appends the non-empty segments of path to dst.
func splitPath(path string, dst []string) []string {
	for i := 0; ; {
		var seg string
		seg, i = nextSegment(path, i)
		if seg == "" {
			return dst
		}
		dst = append(dst, seg)
	}
}

// splitOffsets is splitPath that also records the byte offset each segment
// starts at, so a catch-all can bind path[starts[i]:] verbatim.
func splitOffsets(path string, dst []string, starts []int) ([]string, []int) {
	for i := 0; ; {
		var seg string
		seg, i = nextSegment(path, i)
		if seg == "" {
			return dst, starts
		}
		dst = append(dst, seg)
		starts = append(starts, i-len(seg))
	}
}

// CanonicalPattern returns the normalized form of a route pattern: a single
// leading slash, no empty segments and no trailing slash.
func CanonicalPattern(raw string) (string, error) {
	p, err := parsePattern(raw)
	if err != nil {
		return "", err
	}
	return p.canonical, nil
}
