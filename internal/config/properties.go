package config

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/magiconair/properties"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// propertiesCodec reads and writes Java-style .properties files for viper.
// Keys stay flat: dotted keys are not expanded into nested maps.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(b)
	if err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		v[key] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, key := range keys {
		if _, _, err := p.Set(key, cast.ToString(v[key])); err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
	}

	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newViper returns a viper instance that understands the "properties" config type.
func newViper() (*viper.Viper, error) {
	registry := viper.NewCodecRegistry()
	if err := registry.RegisterCodec("properties", propertiesCodec{}); err != nil {
		return nil, fmt.Errorf("register properties codec: %w", err)
	}
	return viper.NewWithOptions(viper.WithCodecRegistry(registry)), nil
}
