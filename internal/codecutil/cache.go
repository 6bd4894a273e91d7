package codecutil

import (
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/internal/strutil"
)

// Cache hands out codec instances of a single connection. Instances are created on the
// first demand only, since most of connections never need any.
type Cache struct {
	accept    string
	codecs    []codec.Codec
	instances []codec.Instance
}

func NewCache(codecs []codec.Codec) Cache {
	return Cache{
		accept:    codec.AcceptEncoding(codecs),
		codecs:    codecs,
		instances: make([]codec.Instance, len(codecs)),
	}
}

func (c Cache) find(token string) (int, codec.Codec) {
	for i, entry := range c.codecs {
		if strutil.CmpFold(entry.Token(), token) {
			return i, entry
		}
	}

	return -1, nil
}

// Get returns the instance of the codec of the token, or nil if there's no such.
func (c Cache) Get(token string) codec.Instance {
	idx, cd := c.find(token)
	if idx == -1 {
		return nil
	}

	inst := c.instances[idx]
	if inst == nil {
		inst = cd.New()
		c.instances[idx] = inst
	}

	return inst
}

// Codecs returns the codecs the cache is built of.
func (c Cache) Codecs() []codec.Codec {
	return c.codecs
}

// AcceptEncoding returns the Accept-Encoding value advertising all the codecs.
func (c Cache) AcceptEncoding() string {
	return c.accept
}
