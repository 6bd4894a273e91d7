package proto

type Protocol uint8

const (
	Unknown Protocol = iota
	HTTP10
	HTTP11
)

const (
	protoTokenLength   = len("HTTP/x.x")
	majorVersionOffset = len("HTTP/x") - 1
	minorVersionOffset = len("HTTP/x.x") - 1
	httpScheme         = "HTTP/"
)

func (p Protocol) String() string {
	switch p {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return ""
	}
}

// KeepAliveByDefault reports whether connections of the protocol persist unless
// explicitly told otherwise.
func (p Protocol) KeepAliveByDefault() bool {
	return p == HTTP11
}

// FromBytes parses a protocol token. Anything but HTTP/1.0 and HTTP/1.1 is Unknown.
func FromBytes(raw []byte) Protocol {
	if len(raw) != protoTokenLength || string(raw[:majorVersionOffset]) != httpScheme ||
		raw[majorVersionOffset+1] != '.' {
		return Unknown
	}

	return Parse(raw[majorVersionOffset]-'0', raw[minorVersionOffset]-'0')
}

func Parse(major, minor uint8) Protocol {
	if major != 1 {
		return Unknown
	}

	switch minor {
	case 0:
		return HTTP10
	case 1:
		return HTTP11
	default:
		return Unknown
	}
}
