package pbxproj

import (
	"fmt"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
)

// ReferenceFields lists the record fields whose values are object identifiers,
// either a single identifier or an array of them. remoteGlobalIDString is
// deliberately absent: it may name an object in another project file.
var ReferenceFields = map[string]bool{
	"mainGroup":                  true,
	"productRefGroup":            true,
	"targets":                    true,
	"children":                   true,
	"buildPhases":                true,
	"files":                      true,
	"fileRef":                    true,
	"buildConfigurationList":     true,
	"buildConfigurations":        true,
	"dependencies":               true,
	"target":                     true,
	"targetProxy":                true,
	"productReference":           true,
	"baseConfigurationReference": true,
	"packageReferences":          true,
	"packageProductDependencies": true,
	"productRef":                 true,
	"package":                    true,
	"containerPortal":            true,
	"currentVersion":             true,
}

// Validate checks the project schema of a parsed document.
func Validate(doc *Document) error {
	root := doc.Root
	if err := checkVersion(root, "archiveVersion", func(v string) bool { return v == "1" }); err != nil {
		return err
	}
	if err := checkVersion(root, "objectVersion", func(v string) bool { return domain.SupportedObjectVersions[v] }); err != nil {
		return err
	}

	objects, ok := root.GetDict("objects")
	if !ok {
		return &ParseError{Pos: root.Pos(), Msg: "missing objects table"}
	}
	declared := make(map[string]bool, objects.Len())
	for _, e := range objects.Entries() {
		rec, ok := e.Value.(*Dict)
		if !ok {
			return &ParseError{Pos: e.Key.Pos(), Msg: fmt.Sprintf("object %s is not a dictionary", e.Key.Text)}
		}
		if _, ok := rec.GetString("isa"); !ok {
			return &ParseError{Pos: e.Key.Pos(), Msg: fmt.Sprintf("object %s has no isa", e.Key.Text)}
		}
		if declared[e.Key.Text] {
			return &ParseError{Pos: e.Key.Pos(), Msg: fmt.Sprintf("object %s is declared twice", e.Key.Text)}
		}
		declared[e.Key.Text] = true
	}

	rootObject, ok := root.Get("rootObject").(*String)
	if !ok {
		return &ParseError{Pos: root.Pos(), Msg: "missing rootObject"}
	}
	if !declared[rootObject.Text] {
		return &ParseError{Pos: rootObject.Pos(), Msg: fmt.Sprintf("rootObject references undeclared identifier %s", rootObject.Text)}
	}

	for _, e := range objects.Entries() {
		rec := e.Value.(*Dict)
		for _, field := range rec.Entries() {
			if !ReferenceFields[field.Key.Text] {
				continue
			}
			for _, ref := range referenceTokens(field.Value) {
				if !declared[ref.Text] {
					return &ParseError{
						Pos: ref.Pos(),
						Msg: fmt.Sprintf("object %s field %s references undeclared identifier %s", e.Key.Text, field.Key.Text, ref.Text),
					}
				}
			}
		}
	}
	return nil
}

func checkVersion(root *Dict, key string, ok func(string) bool) error {
	v, present := root.Get(key).(*String)
	if !present {
		return &ParseError{Pos: root.Pos(), Msg: "missing " + key}
	}
	if !ok(v.Text) {
		return &ParseError{Pos: v.Pos(), Msg: fmt.Sprintf("unsupported %s %s", key, v.Text)}
	}
	return nil
}

func referenceTokens(v Value) []*String {
	switch t := v.(type) {
	case *String:
		return []*String{t}
	case *Array:
		out := make([]*String, 0, len(t.Items))
		for _, it := range t.Items {
			if s, ok := it.(*String); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
