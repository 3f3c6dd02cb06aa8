// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"errors"
	"testing"
)

func TestConfigErrorUnwraps(t *testing.T) {
	err := newConfigError(ErrUnknownID, "resource id 7")
	if !errors.Is(err, ErrUnknownID) {
		t.Fatalf("errors.Is(ConfigError, ErrUnknownID):\nhave false\nwant true")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("errors.As(ConfigError):\nhave false\nwant true")
	}
	if ce.Detail != "resource id 7" {
		t.Fatalf("ConfigError.Detail:\nhave %q\nwant %q", ce.Detail, "resource id 7")
	}
}

func TestAllocErrorUnwraps(t *testing.T) {
	cause := errors.New("out of device memory")
	err := newAllocError(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(AllocError, cause):\nhave false\nwant true")
	}
}

func TestDeviceLostErrorUnwraps(t *testing.T) {
	cause := errors.New("device removed")
	err := newDeviceLostError(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(DeviceLostError, cause):\nhave false\nwant true")
	}
}

func TestMeshletWarningString(t *testing.T) {
	w := &MeshletWarning{Group: 3, Tris: 140, Want: 124}
	want := "group 3 stuck at 140 triangles (wanted <= 124)"
	if have := w.String(); have != want {
		t.Fatalf("MeshletWarning.String:\nhave %q\nwant %q", have, want)
	}
}
