package codec

import (
	"strings"

	"github.com/indigo-web/tandem/internal/strutil"
)

// Negotiate picks the first codec, in the order of the passed codecs, which is acceptable
// by the Accept-Encoding values. Codings with zero quality are never picked. Nil is
// returned if nothing is acceptable.
func Negotiate(acceptEncoding []string, codecs []Codec) Codec {
	for _, c := range codecs {
		if accepts(acceptEncoding, c.Token()) {
			return c
		}
	}

	return nil
}

func accepts(acceptEncoding []string, token string) (ok bool) {
	wildcard := false

	for _, value := range acceptEncoding {
		for len(value) > 0 {
			var element string
			element, value, _ = strings.Cut(value, ",")
			coding, params, _ := strings.Cut(element, ";")
			coding = strutil.StripWS(coding)

			switch {
			case strutil.CmpFold(coding, token):
				return !zeroQuality(params)
			case coding == "*":
				wildcard = !zeroQuality(params)
			}
		}
	}

	return wildcard
}

func zeroQuality(params string) bool {
	for len(params) > 0 {
		var param string
		param, params, _ = strings.Cut(params, ";")
		key, value, found := strings.Cut(strutil.StripWS(param), "=")
		if !found || !strutil.CmpFold(strutil.StripWS(key), "q") {
			continue
		}

		value = strutil.StripWS(value)
		if len(value) == 0 || value[0] != '0' {
			return false
		}

		return strings.Trim(value[1:], ".0") == ""
	}

	return false
}

// AcceptEncoding renders the Accept-Encoding value advertising the codecs.
func AcceptEncoding(codecs []Codec) string {
	if len(codecs) == 0 {
		return "identity"
	}

	var b strings.Builder

	b.WriteString(codecs[0].Token())
	for _, c := range codecs[1:] {
		b.WriteString(", ")
		b.WriteString(c.Token())
	}

	return b.String()
}

// Find returns the codec of the token, or nil.
func Find(codecs []Codec, token string) Codec {
	for _, c := range codecs {
		if strutil.CmpFold(c.Token(), token) {
			return c
		}
	}

	return nil
}
