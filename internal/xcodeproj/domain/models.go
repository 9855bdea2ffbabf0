package domain

import (
	"sort"
	"strings"
)

// ObjectID is the opaque 24-hex-digit token identifying a record in a project graph.
type ObjectID string

// Isa is the record type tag stored in every object's "isa" field.
type Isa string

const (
	IsaProject             Isa = "PBXProject"
	IsaGroup               Isa = "PBXGroup"
	IsaVariantGroup        Isa = "PBXVariantGroup"
	IsaFileReference       Isa = "PBXFileReference"
	IsaNativeTarget        Isa = "PBXNativeTarget"
	IsaAggregateTarget     Isa = "PBXAggregateTarget"
	IsaBuildFile           Isa = "PBXBuildFile"
	IsaSourcesPhase        Isa = "PBXSourcesBuildPhase"
	IsaFrameworksPhase     Isa = "PBXFrameworksBuildPhase"
	IsaResourcesPhase      Isa = "PBXResourcesBuildPhase"
	IsaCopyFilesPhase      Isa = "PBXCopyFilesBuildPhase"
	IsaShellScriptPhase    Isa = "PBXShellScriptBuildPhase"
	IsaHeadersPhase        Isa = "PBXHeadersBuildPhase"
	IsaConfigurationList   Isa = "XCConfigurationList"
	IsaBuildConfiguration  Isa = "XCBuildConfiguration"
	IsaTargetDependency    Isa = "PBXTargetDependency"
	IsaContainerItemProxy  Isa = "PBXContainerItemProxy"
	IsaVersionGroup        Isa = "XCVersionGroup"
	IsaSwiftPackageProduct Isa = "XCSwiftPackageProductDependency"
)

// IsBuildPhase reports whether records of this type carry a phase file list.
func (i Isa) IsBuildPhase() bool {
	switch i {
	case IsaSourcesPhase, IsaFrameworksPhase, IsaResourcesPhase,
		IsaCopyFilesPhase, IsaShellScriptPhase, IsaHeadersPhase:
		return true
	}
	return false
}

// IsGroup reports whether records of this type hold navigator children.
func (i Isa) IsGroup() bool {
	return i == IsaGroup || i == IsaVariantGroup || i == IsaVersionGroup
}

// IsTarget reports whether records of this type are build targets.
func (i Isa) IsTarget() bool {
	return i == IsaNativeTarget || i == IsaAggregateTarget
}

// DefaultPhaseName is the label Xcode shows for an unnamed phase.
func (i Isa) DefaultPhaseName() string {
	switch i {
	case IsaSourcesPhase:
		return "Sources"
	case IsaFrameworksPhase:
		return "Frameworks"
	case IsaResourcesPhase:
		return "Resources"
	case IsaCopyFilesPhase:
		return "CopyFiles"
	case IsaShellScriptPhase:
		return "ShellScript"
	case IsaHeadersPhase:
		return "Headers"
	}
	return string(i)
}

// SourceTree is the anchor a FileReference or Group path is relative to.
type SourceTree string

const (
	SourceTreeGroup         SourceTree = "<group>"
	SourceTreeAbsolute      SourceTree = "<absolute>"
	SourceTreeSourceRoot    SourceTree = "SOURCE_ROOT"
	SourceTreeSDKRoot       SourceTree = "SDKROOT"
	SourceTreeBuiltProducts SourceTree = "BUILT_PRODUCTS_DIR"
	SourceTreeDeveloperDir  SourceTree = "DEVELOPER_DIR"
)

// PhaseKind names the phase types callers may append with AddBuildPhase.
type PhaseKind string

const (
	PhaseRunScript PhaseKind = "run_script"
	PhaseCopyFiles PhaseKind = "copy_files"
)

// DstSubfolder is the dstSubfolderSpec value of a copy-files phase.
type DstSubfolder int

const (
	DstAbsolute         DstSubfolder = 0
	DstWrapper          DstSubfolder = 1
	DstExecutables      DstSubfolder = 6
	DstResources        DstSubfolder = 7
	DstFrameworks       DstSubfolder = 10
	DstSharedFrameworks DstSubfolder = 11
	DstSharedSupport    DstSubfolder = 12
	DstPlugins          DstSubfolder = 13
	DstJavaResources    DstSubfolder = 15
	DstProducts         DstSubfolder = 16
)

var dstSubfolders = map[string]DstSubfolder{
	"absolute":          DstAbsolute,
	"absolute_path":     DstAbsolute,
	"wrapper":           DstWrapper,
	"executables":       DstExecutables,
	"resources":         DstResources,
	"frameworks":        DstFrameworks,
	"shared_frameworks": DstSharedFrameworks,
	"shared_support":    DstSharedSupport,
	"plugins":           DstPlugins,
	"java_resources":    DstJavaResources,
	"products":          DstProducts,
}

// ParseDstSubfolder maps a destination tag such as "resources" or
// "shared-support" to its dstSubfolderSpec value.
func ParseDstSubfolder(tag string) (DstSubfolder, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "-", "_")
	d, ok := dstSubfolders[key]
	return d, ok
}

// DstSubfolderTags lists the accepted destination tags in sorted order.
func DstSubfolderTags() []string {
	tags := make([]string, 0, len(dstSubfolders))
	for k := range dstSubfolders {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	return tags
}

const productTypePrefix = "com.apple.product-type."

var productTypeAliases = map[string]string{
	"app":               productTypePrefix + "application",
	"application":       productTypePrefix + "application",
	"framework":         productTypePrefix + "framework",
	"static_library":    productTypePrefix + "library.static",
	"dynamic_library":   productTypePrefix + "library.dynamic",
	"unit_test":         productTypePrefix + "bundle.unit-test",
	"ui_test":           productTypePrefix + "bundle.ui-testing",
	"command_line_tool": productTypePrefix + "tool",
	"tool":              productTypePrefix + "tool",
	"bundle":            productTypePrefix + "bundle",
	"app_extension":     productTypePrefix + "app-extension",
}

// ResolveProductType expands a short alias to a full product-type tag.
// Full tags pass through unchanged.
func ResolveProductType(s string) (string, bool) {
	if strings.HasPrefix(s, productTypePrefix) {
		return s, true
	}
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	full, ok := productTypeAliases[key]
	return full, ok
}

// ProductExtension returns the wrapper extension a product of this type is built as.
func ProductExtension(productType string) string {
	switch strings.TrimPrefix(productType, productTypePrefix) {
	case "application":
		return "app"
	case "framework":
		return "framework"
	case "library.static":
		return "a"
	case "library.dynamic":
		return "dylib"
	case "bundle.unit-test", "bundle.ui-testing":
		return "xctest"
	case "app-extension":
		return "appex"
	case "tool":
		return ""
	}
	return "bundle"
}

// SupportedObjectVersions lists the objectVersion values the codec accepts.
var SupportedObjectVersions = map[string]bool{
	"42": true, "44": true, "45": true, "46": true, "47": true, "48": true,
	"50": true, "51": true, "52": true, "53": true, "54": true, "55": true,
	"56": true, "60": true, "63": true, "70": true, "71": true, "77": true,
}

// DefaultObjectVersion is written by newly created projects.
const DefaultObjectVersion = "56"
