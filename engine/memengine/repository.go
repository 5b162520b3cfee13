// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memengine

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ugorji/go/codec"

	"github.com/diffeo/go-modelserve/serving"
)

// Files and directories within a service directory.
const (
	modelFile = "model.json"
	indexDir  = "index"
)

// repository stores model state in one directory per service:
//
//     <root>/<service>/model.json    trained model state
//     <root>/<service>/index/        similarity-search index
//
// A repository with an empty root stores nothing.
type repository struct {
	root string
}

func (r repository) enabled() bool {
	return r.root != ""
}

// dir returns the directory for a service.  Names that would escape
// the repository root are rejected.
func (r repository) dir(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return "", serving.ErrBadParameter{
			Param:  "name",
			Reason: fmt.Sprintf("%q cannot be used as a model directory", name),
		}
	}
	return filepath.Join(r.root, name), nil
}

var jsonHandle = &codec.JsonHandle{}

// Load reads a service's stored model state.  It returns false if
// there is none.
func (r repository) Load(name string) (modelState, bool, error) {
	var state modelState
	if !r.enabled() {
		return state, false, nil
	}
	dir, err := r.dir(name)
	if err != nil {
		return state, false, err
	}
	data, err := ioutil.ReadFile(filepath.Join(dir, modelFile))
	if os.IsNotExist(err) {
		return state, false, nil
	}
	if err != nil {
		return state, false, err
	}
	err = codec.NewDecoderBytes(data, jsonHandle).Decode(&state)
	if err != nil {
		return state, false, fmt.Errorf("corrupt model file for %v: %v", name, err)
	}
	return state, true, nil
}

// Save writes a service's model state, replacing the stored state
// atomically.
func (r repository) Save(name string, state modelState) error {
	if !r.enabled() {
		return nil
	}
	dir, err := r.dir(name)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var data []byte
	if err = codec.NewEncoderBytes(&data, jsonHandle).Encode(state); err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(dir, modelFile+".")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(dir, modelFile))
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
	}
	return err
}

// SaveIndex records the feature vectors of an unsupervised model's
// training run in the service's index.
func (r repository) SaveIndex(name string, iterations int, vectors []serving.Payload) error {
	if !r.enabled() {
		return nil
	}
	dir, err := r.dir(name)
	if err != nil {
		return err
	}
	dir = filepath.Join(dir, indexDir)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var data []byte
	if err = codec.NewEncoderBytes(&data, jsonHandle).Encode(vectors); err != nil {
		return err
	}
	file := filepath.Join(dir, fmt.Sprintf("vectors-%06d.json", iterations))
	return ioutil.WriteFile(file, data, 0644)
}

// Clear removes on-disk state for a service according to mode.
func (r repository) Clear(name string, mode serving.ClearMode) error {
	if !r.enabled() {
		return nil
	}
	dir, err := r.dir(name)
	if err != nil {
		return err
	}
	var remove []string
	switch mode {
	case serving.ClearMem:
	case serving.ClearLib:
		remove = []string{filepath.Join(dir, modelFile)}
	case serving.ClearIndex:
		remove = []string{filepath.Join(dir, indexDir)}
	case serving.ClearFull:
		remove = []string{filepath.Join(dir, modelFile), filepath.Join(dir, indexDir)}
	case serving.ClearDir:
		remove = []string{dir}
	default:
		return serving.ErrBadParameter{
			Param:  "clear",
			Reason: fmt.Sprintf("unknown clear mode %q", mode),
		}
	}
	for _, path := range remove {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}
