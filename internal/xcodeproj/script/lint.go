// Package script checks the body of a run-script build phase before it is
// written into a project.
package script

import (
	"context"
	"fmt"
	"path"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
)

// Problem is one syntax error found in a script.
type Problem struct {
	Line   int
	Column int
	Text   string
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d, column %d: %s", p.Line, p.Column, p.Text)
}

var shells = map[string]bool{"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true}

// Checked reports whether scripts run by shellPath are checked at all.
// Scripts for other interpreters, such as /usr/bin/python3, are not.
func Checked(shellPath string) bool {
	return shells[path.Base(shellPath)]
}

// Lint parses a shell script and returns its syntax errors. A script for an
// interpreter that Checked rejects yields no problems.
func Lint(ctx context.Context, shellPath, body string) []Problem {
	if !Checked(shellPath) {
		return nil
	}
	src := []byte(body)
	parser := sitter.NewParser()
	parser.SetLanguage(bash.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil
	}
	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	var problems []Problem
	iter := sitter.NewIterator(root, sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			break
		}
		if !n.IsError() && !n.IsMissing() {
			continue
		}
		at := n.StartPoint()
		p := Problem{Line: int(at.Row) + 1, Column: int(at.Column) + 1}
		if n.IsMissing() {
			p.Text = fmt.Sprintf("missing %q", n.Type())
		} else {
			p.Text = fmt.Sprintf("unexpected %q", excerpt(n.Content(src)))
		}
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		problems = append(problems, Problem{Line: 1, Column: 1, Text: "script does not parse"})
	}
	return problems
}

// excerpt shortens s to at most 20 runes.
func excerpt(s string) string {
	const max = 20
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
