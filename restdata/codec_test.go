// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-modelserve/serving"
)

func TestCanonicalMediaType(t *testing.T) {
	tests := []struct{ in, out string }{
		{"application/json", JSONMediaType},
		{"text/json", JSONMediaType},
		{"", JSONMediaType},
		{"application/x-www-form-urlencoded", JSONMediaType},
		{"application/cbor", CBORMediaType},
		{"application/xml", ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.out, CanonicalMediaType(test.in), test.in)
	}
}

func TestDecodeJSONPayload(t *testing.T) {
	var p serving.Payload
	err := Decode("application/json; charset=utf-8",
		strings.NewReader(`{"service":"mnist","parameters":{"input":{"width":224}},"data":["a.png"]}`),
		&p)
	require.NoError(t, err)
	assert.Equal(t, "mnist", p["service"])
	params, ok := serving.Object(p["parameters"])
	if assert.True(t, ok) {
		input, ok := serving.Object(params["input"])
		if assert.True(t, ok) {
			assert.EqualValues(t, 224, input["width"])
		}
	}
	assert.Equal(t, []interface{}{"a.png"}, p["data"])
}

func TestDecodeUnsupported(t *testing.T) {
	var p serving.Payload
	err := Decode("application/xml", strings.NewReader("<x/>"), &p)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "application/xml"}, err)
	assert.Equal(t, 415, StatusOf(err))

	err = Decode("not a media type;;", strings.NewReader("{}"), &p)
	assert.Equal(t, 400, StatusOf(err))
}

func TestDecodeNotAnObject(t *testing.T) {
	var p serving.Payload
	err := Decode(JSONMediaType, strings.NewReader(`[1, 2, 3]`), &p)
	assert.Error(t, err)
}

// roundTrip encodes and decodes a response in a media type.
func roundTrip(t *testing.T, mediaType string, in Response[*serving.ServiceInfo]) Response[*serving.ServiceInfo] {
	var buf bytes.Buffer
	require.NoError(t, Encode(mediaType, &buf, in))
	var out Response[*serving.ServiceInfo]
	require.NoError(t, Decode(mediaType, &buf, &out))
	return out
}

func TestResponseRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC)
	in := Response[*serving.ServiceInfo]{
		Status: OK(201),
		Head:   Head{Method: "/services", Service: "mnist"},
		Body: &serving.ServiceInfo{
			Name:        "mnist",
			Status:      serving.StatusActive,
			CreatedAt:   created,
			LastTouched: created,
			Model: serving.ModelDescription{
				MLLib:  "caffe",
				Type:   "supervised",
				Labels: []string{"cat", "dog"},
			},
			Details: serving.Payload{"predictions": "7"},
		},
	}
	for _, mediaType := range []string{JSONMediaType, CBORMediaType} {
		t.Run(mediaType, func(tt *testing.T) {
			out := roundTrip(tt, mediaType, in)
			assert.Equal(tt, in.Status, out.Status)
			assert.Equal(tt, in.Head, out.Head)
			if assert.NotNil(tt, out.Body) {
				assert.Equal(tt, "mnist", out.Body.Name)
				assert.Equal(tt, serving.StatusActive, out.Body.Status)
				assert.True(tt, created.Equal(out.Body.CreatedAt),
					"created %v, got %v", created, out.Body.CreatedAt)
				assert.Equal(tt, in.Body.Model, out.Body.Model)
				assert.Equal(tt, "7", out.Body.Details["predictions"])
			}
		})
	}
}

func TestResponseNullBody(t *testing.T) {
	in := Response[*serving.ServiceInfo]{Status: OK(200)}
	for _, mediaType := range []string{JSONMediaType, CBORMediaType} {
		out := roundTrip(t, mediaType, in)
		assert.Equal(t, 200, out.Status.Code)
		assert.Nil(t, out.Body, mediaType)
	}
}
