package ops

import (
	"context"
	"regexp"
	"strings"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/filetype"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

// ListTargets enumerates targets in their stored order.
func (x *Session) ListTargets(_ context.Context) (*Outcome, error) {
	out := success(KindTarget, "")
	for _, t := range x.Store.Targets() {
		out.Targets = append(out.Targets, TargetInfo{Name: t.Name(), ProductType: t.ProductType()})
	}
	if len(out.Targets) == 0 {
		out.Status = StatusEmpty
	}
	return out, nil
}

// AddTargetRequest describes an AddTarget call.
type AddTargetRequest struct {
	Name string
	// ProductType is a com.apple.product-type tag or a short alias such as
	// "app" or "framework".
	ProductType      string
	BundleIdentifier string
}

var bundleUnsafe = regexp.MustCompile(`[^A-Za-z0-9.-]+`)

// AddTarget creates a native target with empty Sources, Frameworks and
// Resources phases, Debug and Release configurations, and a product
// reference in the Products group.
func (x *Session) AddTarget(_ context.Context, req AddTargetRequest) (*Outcome, error) {
	if err := requireNonEmpty("target name", req.Name); err != nil {
		return nil, err
	}
	productType, ok := domain.ResolveProductType(req.ProductType)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown product type %q", req.ProductType)
	}
	s := x.Store
	if t, ok := s.FindTarget(req.Name); ok {
		dup := alreadyExists(KindTarget, req.Name)
		dup.ID = t.ID
		return dup, nil
	}

	bundleID := req.BundleIdentifier
	if bundleID == "" {
		bundleID = "com.example." + strings.Trim(bundleUnsafe.ReplaceAllString(req.Name, "-"), "-")
	}
	configs := make([]string, 0, 2)
	for _, name := range []string{"Debug", "Release"} {
		settings := pbxproj.SortedDict(map[string]pbxproj.Value{
			"PRODUCT_BUNDLE_IDENTIFIER": pbxproj.Str(bundleID),
			"PRODUCT_NAME":              pbxproj.Str("$(TARGET_NAME)"),
		})
		id := s.Insert(domain.IsaBuildConfiguration, map[string]pbxproj.Value{
			"buildSettings": settings,
			"name":          pbxproj.Str(name),
		})
		configs = append(configs, string(id))
	}
	configList := s.Insert(domain.IsaConfigurationList, map[string]pbxproj.Value{
		"buildConfigurations":           pbxproj.StrArray(configs...),
		"defaultConfigurationIsVisible": pbxproj.Str("0"),
		"defaultConfigurationName":      pbxproj.Str("Release"),
	})

	ext := domain.ProductExtension(productType)
	productPath := req.Name
	if ext != "" {
		productPath += "." + ext
	}
	product := s.Insert(domain.IsaFileReference, map[string]pbxproj.Value{
		"explicitFileType": pbxproj.Str(filetype.ForProduct(ext)),
		"includeInIndex":   pbxproj.Str("0"),
		"path":             pbxproj.Str(productPath),
		"sourceTree":       pbxproj.Str(string(domain.SourceTreeBuiltProducts)),
	})
	s.AppendRef(x.productsGroup(), "children", product)

	target := s.Insert(domain.IsaNativeTarget, map[string]pbxproj.Value{
		"buildConfigurationList": pbxproj.Str(string(configList)),
		"buildPhases":            pbxproj.StrArray(),
		"buildRules":             pbxproj.StrArray(),
		"dependencies":           pbxproj.StrArray(),
		"name":                   pbxproj.Str(req.Name),
		"productName":            pbxproj.Str(req.Name),
		"productReference":       pbxproj.Str(string(product)),
		"productType":            pbxproj.Str(productType),
	})
	t, _ := s.Target(target)
	for _, isa := range []domain.Isa{domain.IsaSourcesPhase, domain.IsaFrameworksPhase, domain.IsaResourcesPhase} {
		x.appendPhase(t, isa, nil)
	}
	s.AppendRef(s.RootID(), "targets", target)

	out := success(KindTarget, req.Name)
	out.ID = target
	out.Targets = []TargetInfo{{Name: req.Name, ProductType: productType}}
	return out, nil
}

// productsGroup returns the project's product group, creating and
// registering one when the project has none.
func (x *Session) productsGroup() domain.ObjectID {
	s := x.Store
	if id := s.Project().ProductsGroup(); id != "" {
		if _, err := s.Group(id); err == nil {
			return id
		}
	}
	id := s.Insert(domain.IsaGroup, map[string]pbxproj.Value{
		"children":   pbxproj.StrArray(),
		"name":       pbxproj.Str("Products"),
		"sourceTree": pbxproj.Str(string(domain.SourceTreeGroup)),
	})
	s.AppendRef(s.Project().MainGroup(), "children", id)
	s.SetField(s.RootID(), "productRefGroup", pbxproj.Str(string(id)))
	return id
}
