// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving

import (
	"github.com/mitchellh/mapstructure"
)

// Decode extracts fields of a payload into a structure.  out must be
// a pointer to a structure; fields are matched by their
// "mapstructure" tags or case-insensitively by name.  Unknown keys
// are ignored and scalar types are converted where that is sensible
// ("true" decodes into a bool field), since payloads usually arrive
// from loosely-typed JSON clients.  A payload that cannot be decoded
// produces ErrBadParameter.
func (p Payload) Decode(out interface{}) error {
	config := mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return err
	}
	err = decoder.Decode(map[string]interface{}(p))
	if err != nil {
		return ErrBadParameter{Reason: err.Error()}
	}
	return nil
}

// With returns a shallow copy of p with key set to value.
func (p Payload) With(key string, value interface{}) Payload {
	result := make(Payload, len(p)+1)
	for k, v := range p {
		result[k] = v
	}
	result[key] = value
	return result
}

// Object converts a decoded JSON value to a Payload, if it is an
// object.  This accepts both map[string]interface{} and the
// map[interface{}]interface{} that some decoders produce.
func Object(value interface{}) (Payload, bool) {
	switch v := value.(type) {
	case Payload:
		return v, true
	case map[string]interface{}:
		return Payload(v), true
	case map[interface{}]interface{}:
		result := make(Payload, len(v))
		for key, item := range v {
			s, ok := key.(string)
			if !ok {
				return nil, false
			}
			result[s] = item
		}
		return result, true
	default:
		return nil, false
	}
}
