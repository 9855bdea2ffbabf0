package filetype

import (
	"bytes"
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// cppOnly are node types the C++ grammar produces only for constructs C
// headers cannot contain.
var cppOnly = map[string]bool{
	"class_specifier":      true,
	"namespace_definition": true,
	"template_declaration": true,
	"using_declaration":    true,
	"alias_declaration":    true,
	"access_specifier":     true,
	"reference_declarator": true,
	"operator_name":        true,
}

// Objective-C headers are C-family headers to Xcode, whatever they contain.
var objcMarkers = [][]byte{[]byte("@interface"), []byte("@protocol"), []byte("#import")}

// IsCppHeader reports whether a header uses C++-only constructs.
func IsCppHeader(ctx context.Context, src []byte) bool {
	for _, m := range objcMarkers {
		if bytes.Contains(src, m) {
			return false
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return false
	}

	iter := sitter.NewIterator(tree.RootNode(), sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			return false
		}
		if n.IsError() {
			continue
		}
		if cppOnly[n.Type()] {
			return true
		}
	}
}
