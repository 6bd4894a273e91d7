package config

import (
	"io"
	"os"
	"time"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	// durations are accepted both as Go duration strings ("90s") and as nanoseconds
	jsoniter.RegisterTypeDecoderFunc("time.Duration", decodeDuration)
}

func decodeDuration(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		d, err := time.ParseDuration(iter.ReadString())
		if err != nil {
			iter.ReportError("decode duration", err.Error())
			return
		}

		*(*time.Duration)(ptr) = d
	case jsoniter.NumberValue:
		*(*time.Duration)(ptr) = time.Duration(iter.ReadInt64())
	default:
		iter.ReportError("decode duration", "expected a string or a number")
		iter.Skip()
	}
}

// Decode overlays the JSON document onto the defaults, so only the settings to be
// changed must be present.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// Load reads the config from the JSON file.
func Load(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	return Decode(fd)
}
