// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"reflect"

	"github.com/ugorji/go/codec"

	"github.com/diffeo/go-modelserve/serving"
)

// payload <-> binary encoders

func cborHandle() *codec.CborHandle {
	cbor := new(codec.CborHandle)
	cbor.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return cbor
}

func payloadToBytes(in serving.Payload) (out []byte, err error) {
	encoder := codec.NewEncoderBytes(&out, cborHandle())
	err = encoder.Encode(map[string]interface{}(in))
	return
}

func bytesToPayload(in []byte) (out serving.Payload, err error) {
	var m map[string]interface{}
	decoder := codec.NewDecoderBytes(in, cborHandle())
	err = decoder.Decode(&m)
	if err == nil {
		out = serving.Payload(m)
	}
	return
}
