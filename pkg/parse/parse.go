// Package parse splits a raw command line into a pipeline of stages.
//
// The grammar is deliberately small: whitespace-separated words, `|` between
// stages, and an optional trailing `&` that requests background execution.
// There is no quoting, globbing or redirection.
package parse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for malformed command lines.
var ErrSyntax = errors.New("syntax error")

// Stage is one element of a pipeline: a program and its arguments.
type Stage struct {
	Name string
	Args []string
}

// Pipeline is an ordered sequence of stages plus the background flag.
type Pipeline struct {
	Stages     []Stage
	Background bool
}

// Split parses a trimmed, non-empty command line into a Pipeline.
//
// An empty stage (leading, trailing or doubled pipe) is a syntax error and
// leaves the caller's job state untouched.
func Split(line string) (Pipeline, error) {
	trimmed := strings.TrimSpace(line)
	background := false
	if strings.HasSuffix(trimmed, "&") {
		background = true
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "&"))
	}
	if trimmed == "" {
		return Pipeline{}, fmt.Errorf("%w: empty command", ErrSyntax)
	}

	parts := strings.Split(trimmed, "|")
	stages := make([]Stage, 0, len(parts))
	for _, part := range parts {
		words := strings.Fields(part)
		if len(words) == 0 {
			return Pipeline{}, fmt.Errorf("%w: missing command next to '|'", ErrSyntax)
		}
		stages = append(stages, Stage{Name: words[0], Args: words[1:]})
	}
	return Pipeline{Stages: stages, Background: background}, nil
}
