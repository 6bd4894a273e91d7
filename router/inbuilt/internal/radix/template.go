package radix

import (
	"errors"
	"fmt"
	"strings"
)

type templateParserState uint8

const (
	eStatic templateParserState = iota + 1
	eSlash
	eDynamic
	eFinishDynamic
)

var ErrEmptyPath = errors.New("template cannot be empty")

type Segment struct {
	Payload    string
	IsWildcard bool
}

// Template is a parsed path template. Segments are path sections between slashes,
// either static or wildcards, written as {name}.
type Template struct {
	segments []Segment
}

func Parse(tmpl string) (Template, error) {
	var (
		offset   = 1
		template = Template{}
		state    = eSlash
	)

	if len(tmpl) == 0 {
		return template, ErrEmptyPath
	}

	if tmpl[0] != '/' {
		return template, fmt.Errorf(`"%s": a leading slash is required`, tmpl)
	}

	for i := 1; i < len(tmpl); i++ {
		switch state {
		case eStatic:
			switch tmpl[i] {
			case '/':
				template.segments = append(template.segments, Segment{
					IsWildcard: false,
					Payload:    tmpl[offset:i],
				})
				offset = i + 1
				state = eSlash
			case '{', '}':
				return template, fmt.Errorf(
					`"%s": dynamic part must be a whole path section, without prefixes and suffixes`,
					tmpl,
				)
			}
		case eSlash:
			switch tmpl[i] {
			case '/':
				offset = i + 1
			case '{':
				offset = i + 1
				state = eDynamic
			case '}':
				return template, fmt.Errorf(`"%s": unbalanced figure braces`, tmpl)
			default:
				state = eStatic
			}
		case eDynamic:
			switch tmpl[i] {
			case '}':
				if offset == i {
					return template, fmt.Errorf(`"%s": dynamic part must have a name`, tmpl)
				}

				template.segments = append(template.segments, Segment{
					IsWildcard: true,
					Payload:    tmpl[offset:i],
				})
				state = eFinishDynamic
			case '/', '{':
				return template, fmt.Errorf(
					`"%s": slashes or figure braces are not allowed inside of the template part name`,
					tmpl,
				)
			}
		case eFinishDynamic:
			switch tmpl[i] {
			case '/':
				offset = i + 1
				state = eSlash
			default:
				return template, fmt.Errorf(
					`"%s": dynamic part must be a whole path section, without prefixes and suffixes`,
					tmpl,
				)
			}
		}
	}

	switch state {
	case eStatic:
		template.segments = append(template.segments, Segment{
			IsWildcard: false,
			Payload:    tmpl[offset:],
		})
	case eDynamic:
		return template, fmt.Errorf(`"%s": unbalanced figure braces`, tmpl)
	}

	return template, nil
}

func MustParse(tmpl string) Template {
	template, err := Parse(tmpl)
	if err != nil {
		panic(err.Error())
	}

	return template
}

// IsStatic tells whether the template contains any of wildcards
func (t Template) IsStatic() bool {
	for _, segment := range t.segments {
		if segment.IsWildcard {
			return false
		}
	}

	return true
}

// Wildcards returns names of all the dynamic parts.
func (t Template) Wildcards() (names []string) {
	for _, segment := range t.segments {
		if segment.IsWildcard {
			names = append(names, segment.Payload)
		}
	}

	return names
}

// String returns the normalized template.
func (t Template) String() string {
	var b strings.Builder
	for _, segment := range t.segments {
		b.WriteByte('/')
		if segment.IsWildcard {
			b.WriteString("{" + segment.Payload + "}")
		} else {
			b.WriteString(segment.Payload)
		}
	}

	if b.Len() == 0 {
		return "/"
	}

	return b.String()
}

// split turns the template into tree keys. Static keys keep their slashes, except the
// one right after a wildcard, which is consumed by the wildcard match itself.
func (t Template) split() (result []pathSegment) {
	static := "/"
	for _, segment := range t.segments {
		if !segment.IsWildcard {
			static += segment.Payload + "/"
			continue
		}

		if len(static) > 0 {
			result = append(result, pathSegment{false, static})
		}

		result = append(result, pathSegment{true, segment.Payload})
		static = ""
	}

	static = strings.TrimSuffix(static, "/")
	if len(result) == 0 && len(static) == 0 {
		static = "/"
	}

	if len(static) > 0 {
		result = append(result, pathSegment{false, static})
	}

	return result
}
