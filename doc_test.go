// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctg

import (
	"runtime/debug"
	"testing"
)

func TestVersion(t *testing.T) {
	_, _ = Version()

	const root = "github.com/go-lpc/ctg"
	for _, tc := range []struct {
		name string
		b    *debug.BuildInfo
		vers string
		sum  string
	}{
		{name: "nil"},
		{
			name: "main",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: root, Version: "(devel)"},
			},
			vers: "(devel)",
		},
		{
			name: "dep",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/daq"},
				Deps: []*debug.Module{
					{Path: "gopkg.in/yaml.v3", Version: "v3.0.1"},
					{Path: root, Version: "v0.3.0", Sum: "h1:xyz"},
				},
			},
			vers: "v0.3.0",
			sum:  "h1:xyz",
		},
		{
			name: "replace-version",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: root, Version: "v0.3.0", Replace: &debug.Module{Version: "v0.3.1", Sum: "h1:abc"}},
				},
			},
			vers: "v0.3.1",
			sum:  "h1:abc",
		},
		{
			name: "replace-path",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: root, Version: "v0.3.0", Replace: &debug.Module{Path: "../ctg"}},
				},
			},
			vers: "../ctg",
		},
		{
			name: "replace-path-version",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: root, Version: "v0.3.0", Replace: &debug.Module{Path: "example.com/ctg", Version: "v1.0.0"}},
				},
			},
			vers: "example.com/ctg v1.0.0",
		},
		{
			name: "replace-empty",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: root, Version: "v0.3.0", Replace: &debug.Module{}},
				},
			},
			vers: "v0.3.0*",
		},
		{
			name: "missing",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: "gopkg.in/yaml.v3", Version: "v3.0.1"},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vers, sum := versionOf(tc.b)
			if vers != tc.vers || sum != tc.sum {
				t.Fatalf("got=(%q, %q), want=(%q, %q)", vers, sum, tc.vers, tc.sum)
			}
		})
	}
}
