package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigPathPrefersFlag(t *testing.T) {
	a := &app{Config: "/etc/gosh.yaml"}
	require.Equal(t, "/etc/gosh.yaml", a.configPath())

	a = &app{}
	require.True(t, strings.HasSuffix(a.configPath(), filepath.Join("", ".gosh.yaml")))
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	a := &app{LogLevel: "loud"}
	code, err := a.run()
	require.Error(t, err)
	require.Equal(t, 1, code)
}
