// Package filetype infers the Xcode file type tag written to a file
// reference's lastKnownFileType field.
package filetype

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

const (
	CHeader   = "sourcecode.c.h"
	CppHeader = "sourcecode.cpp.h"
	Generic   = "file"
)

var byExtension = map[string]string{
	"swift":         "sourcecode.swift",
	"m":             "sourcecode.c.objc",
	"mm":            "sourcecode.cpp.objcpp",
	"c":             "sourcecode.c.c",
	"cc":            "sourcecode.cpp.cpp",
	"cpp":           "sourcecode.cpp.cpp",
	"cxx":           "sourcecode.cpp.cpp",
	"h":             CHeader,
	"hh":            CppHeader,
	"hpp":           CppHeader,
	"metal":         "sourcecode.metal",
	"s":             "sourcecode.asm",
	"js":            "sourcecode.javascript",
	"storyboard":    "file.storyboard",
	"xib":           "file.xib",
	"xcassets":      "folder.assetcatalog",
	"plist":         "text.plist.xml",
	"entitlements":  "text.plist.entitlements",
	"strings":       "text.plist.strings",
	"stringsdict":   "text.plist.stringsdict",
	"xcstrings":     "text.json.xcstrings",
	"json":          "text.json",
	"xcconfig":      "text.xcconfig",
	"md":            "net.daringfireball.markdown",
	"txt":           "text",
	"html":          "text.html",
	"sh":            "text.script.sh",
	"png":           "image.png",
	"jpg":           "image.jpeg",
	"jpeg":          "image.jpeg",
	"pdf":           "image.pdf",
	"framework":     "wrapper.framework",
	"xcframework":   "wrapper.xcframework",
	"a":             "archive.ar",
	"dylib":         "compiled.mach-o.dylib",
	"tbd":           "sourcecode.text-based-dylib-definition",
	"bundle":        "wrapper.plug-in",
	"app":           "wrapper.application",
	"appex":         "wrapper.app-extension",
	"xctest":        "wrapper.cfbundle",
	"xcdatamodeld":  "wrapper.xcdatamodeld",
}

// ForPath returns the file type implied by the extension of p.
func ForPath(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return Generic
}

// ForFile is ForPath, refined by reading the file when the extension is
// ambiguous. Only ".h" is ambiguous: the header is parsed to decide between C
// and C++. Unreadable files fall back to the extension table.
func ForFile(ctx context.Context, p string) string {
	t := ForPath(p)
	if t != CHeader {
		return t
	}
	src, err := os.ReadFile(p)
	if err != nil {
		return t
	}
	if IsCppHeader(ctx, src) {
		return CppHeader
	}
	return t
}

// ForProduct returns the explicitFileType of a target's product reference
// from the product's wrapper extension.
func ForProduct(ext string) string {
	switch ext {
	case "":
		return "compiled.mach-o.executable"
	case "bundle":
		return "wrapper.cfbundle"
	}
	return ForPath("x." + ext)
}
