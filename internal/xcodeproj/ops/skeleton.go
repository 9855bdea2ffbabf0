package ops

import (
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

var (
	debugSettings = map[string]string{
		"ALWAYS_SEARCH_USER_PATHS":            "NO",
		"CLANG_ENABLE_MODULES":                "YES",
		"DEBUG_INFORMATION_FORMAT":            "dwarf",
		"ENABLE_TESTABILITY":                  "YES",
		"GCC_OPTIMIZATION_LEVEL":              "0",
		"ONLY_ACTIVE_ARCH":                    "YES",
		"SDKROOT":                             "iphoneos",
		"SWIFT_ACTIVE_COMPILATION_CONDITIONS": "DEBUG $(inherited)",
		"SWIFT_OPTIMIZATION_LEVEL":            "-Onone",
	}
	releaseSettings = map[string]string{
		"ALWAYS_SEARCH_USER_PATHS": "NO",
		"CLANG_ENABLE_MODULES":     "YES",
		"DEBUG_INFORMATION_FORMAT": "dwarf-with-dsym",
		"SDKROOT":                  "iphoneos",
		"SWIFT_COMPILATION_MODE":   "wholemodule",
		"VALIDATE_PRODUCT":         "YES",
	}
)

func stringDict(m map[string]string) *pbxproj.Dict {
	fields := make(map[string]pbxproj.Value, len(m))
	for k, v := range m {
		fields[k] = pbxproj.Str(v)
	}
	return pbxproj.SortedDict(fields)
}

// NewProjectSkeleton builds the graph of an empty project: a PBXProject with
// Debug and Release configurations, a main group holding a Products group,
// and no targets.
func NewProjectSkeleton(name, organization string) (*graph.Store, error) {
	alloc := graph.NewAllocator(nil)
	objects := pbxproj.NewDict()
	add := func(fields map[string]pbxproj.Value) domain.ObjectID {
		id := alloc.Allocate()
		objects.Append(pbxproj.Str(string(id)), pbxproj.SortedDict(fields))
		return id
	}

	debug := add(map[string]pbxproj.Value{
		"isa":           pbxproj.Str(string(domain.IsaBuildConfiguration)),
		"buildSettings": stringDict(debugSettings),
		"name":          pbxproj.Str("Debug"),
	})
	release := add(map[string]pbxproj.Value{
		"isa":           pbxproj.Str(string(domain.IsaBuildConfiguration)),
		"buildSettings": stringDict(releaseSettings),
		"name":          pbxproj.Str("Release"),
	})
	configList := add(map[string]pbxproj.Value{
		"isa":                           pbxproj.Str(string(domain.IsaConfigurationList)),
		"buildConfigurations":           pbxproj.StrArray(string(debug), string(release)),
		"defaultConfigurationIsVisible": pbxproj.Str("0"),
		"defaultConfigurationName":      pbxproj.Str("Release"),
	})
	products := add(map[string]pbxproj.Value{
		"isa":        pbxproj.Str(string(domain.IsaGroup)),
		"children":   pbxproj.StrArray(),
		"name":       pbxproj.Str("Products"),
		"sourceTree": pbxproj.Str(string(domain.SourceTreeGroup)),
	})
	mainGroup := add(map[string]pbxproj.Value{
		"isa":        pbxproj.Str(string(domain.IsaGroup)),
		"children":   pbxproj.StrArray(string(products)),
		"sourceTree": pbxproj.Str(string(domain.SourceTreeGroup)),
	})

	attrs := map[string]pbxproj.Value{
		"BuildIndependentTargetsInParallel": pbxproj.Str("1"),
		"LastUpgradeCheck":                  pbxproj.Str("1500"),
		"TargetAttributes":                  pbxproj.NewDict(),
	}
	if organization != "" {
		attrs["ORGANIZATIONNAME"] = pbxproj.Str(organization)
	}
	project := add(map[string]pbxproj.Value{
		"isa":                    pbxproj.Str(string(domain.IsaProject)),
		"attributes":             pbxproj.SortedDict(attrs),
		"buildConfigurationList": pbxproj.Str(string(configList)),
		"compatibilityVersion":   pbxproj.Str("Xcode 14.0"),
		"developmentRegion":      pbxproj.Str("en"),
		"hasScannedForEncodings": pbxproj.Str("0"),
		"knownRegions":           pbxproj.StrArray("en", "Base"),
		"mainGroup":              pbxproj.Str(string(mainGroup)),
		"productRefGroup":        pbxproj.Str(string(products)),
		"projectDirPath":         pbxproj.Str(""),
		"projectRoot":            pbxproj.Str(""),
		"targets":                pbxproj.StrArray(),
	})

	root := pbxproj.NewDict()
	root.Append(pbxproj.Str("archiveVersion"), pbxproj.Str("1"))
	root.Append(pbxproj.Str("classes"), pbxproj.NewDict())
	root.Append(pbxproj.Str("objectVersion"), pbxproj.Str(domain.DefaultObjectVersion))
	root.Append(pbxproj.Str("objects"), objects)
	root.Append(pbxproj.Str("rootObject"), pbxproj.Str(string(project)))

	s, err := graph.Load(&pbxproj.Document{Root: root})
	if err != nil {
		return nil, err
	}
	s.Name = name
	return s, nil
}
