package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSession returns a session over a fresh project with one app target,
// rooted in a temporary directory. The store starts clean.
func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewProjectSkeleton("Demo", "Acme")
	require.NoError(t, err)
	x := NewSession(s, t.TempDir())
	out, err := x.AddTarget(context.Background(), AddTargetRequest{Name: "App", ProductType: "app"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)

	// Reload so later assertions about dirtiness only see the edit under test.
	reloaded, err := graph.Decode(s.Encode())
	require.NoError(t, err)
	reloaded.Name = "Demo"
	x.Store = reloaded
	return x
}

func phaseFiles(t *testing.T, x *Session, target string, isa domain.Isa) []domain.ObjectID {
	t.Helper()
	tg, ok := x.Store.FindTarget(target)
	require.True(t, ok)
	var refs []domain.ObjectID
	for _, p := range x.Store.PhasesOf(tg, isa) {
		for _, bf := range p.Files() {
			refs = append(refs, x.Store.Ref(bf, "fileRef"))
		}
	}
	return refs
}

func assertEncodesCleanly(t *testing.T, x *Session) {
	t.Helper()
	data := x.Store.Encode()
	again, err := graph.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again.Encode()), "re-encoding a decoded graph must be stable")
}

func TestSkeletonHasNoTargets(t *testing.T) {
	s, err := NewProjectSkeleton("Empty", "")
	require.NoError(t, err)
	x := NewSession(s, t.TempDir())

	out, err := x.ListTargets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, out.Status)
	assert.Empty(t, out.Targets)

	_, err = graph.Decode(s.Encode())
	require.NoError(t, err)
}

func TestAddTarget(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	out, err := x.AddTarget(ctx, AddTargetRequest{Name: "Kit", ProductType: "com.apple.product-type.framework", BundleIdentifier: "com.acme.Kit"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)

	list, err := x.ListTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TargetInfo{
		{Name: "App", ProductType: "com.apple.product-type.application"},
		{Name: "Kit", ProductType: "com.apple.product-type.framework"},
	}, list.Targets)

	kit, ok := x.Store.FindTarget("Kit")
	require.True(t, ok)
	require.Len(t, kit.Phases(), 3)
	product, err := x.Store.FileRef(x.Store.Ref(kit.ID, "productReference"))
	require.NoError(t, err)
	assert.Equal(t, "Kit.framework", product.Path())
	assert.Equal(t, "wrapper.framework", product.FileType())

	dup, err := x.AddTarget(ctx, AddTargetRequest{Name: "Kit", ProductType: "framework"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, dup.Status)

	_, err = x.AddTarget(ctx, AddTargetRequest{Name: "Odd", ProductType: "spaceship"})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	out2 := string(x.Store.Encode())
	assert.Contains(t, out2, `/* Build configuration list for PBXNativeTarget "Kit" */`)
	assertEncodesCleanly(t, x)
}

func TestAddFrameworkTwiceIsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	first, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "UIKit"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)

	ref, err := x.Store.FileRef(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "System/Library/Frameworks/UIKit.framework", ref.Path())
	assert.Equal(t, domain.SourceTreeSDKRoot, ref.SourceTree())
	assert.Equal(t, "UIKit.framework", ref.Name())

	reloaded, err := graph.Decode(x.Store.Encode())
	require.NoError(t, err)
	x.Store = reloaded

	second, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "UIKit"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, second.Status)
	assert.False(t, x.Store.Dirty(), "a duplicate must not change the graph")
	assert.Equal(t, []domain.ObjectID{first.ID}, phaseFiles(t, x, "App", domain.IsaFrameworksPhase))

	g, ok := x.Store.FindGroup("Frameworks", x.Store.Project().MainGroup())
	require.True(t, ok)
	assert.Equal(t, []domain.ObjectID{first.ID}, g.Children())
}

func TestAddFrameworkEmbedCreatesTwoJoins(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	out, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "Custom.framework", Embed: true})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.Embedded)

	assert.Equal(t, []domain.ObjectID{out.ID}, phaseFiles(t, x, "App", domain.IsaFrameworksPhase))
	assert.Equal(t, []domain.ObjectID{out.ID}, phaseFiles(t, x, "App", domain.IsaCopyFilesPhase))

	app, _ := x.Store.FindTarget("App")
	copies := x.Store.PhasesOf(app, domain.IsaCopyFilesPhase)
	require.Len(t, copies, 1)
	dst, ok := copies[0].DstSubfolder()
	require.True(t, ok)
	assert.Equal(t, domain.DstFrameworks, dst)
	assert.Equal(t, "Embed Frameworks", copies[0].Name())

	embedJoin, err := x.Store.Get(copies[0].Files()[0], domain.IsaBuildFile)
	require.NoError(t, err)
	settings, ok := embedJoin.Fields.GetDict("settings")
	require.True(t, ok)
	assert.Equal(t, []string{"CodeSignOnCopy", "RemoveHeadersOnCopy"}, settings.Strings("ATTRIBUTES"))

	again, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "Custom.framework", Embed: true})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, again.Status)
	assertEncodesCleanly(t, x)
}

func TestAddFrameworkEmbedsLinkedFramework(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	_, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "Vendor/Lib.framework"})
	require.NoError(t, err)
	out, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "Vendor/Lib.framework", Embed: true})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Len(t, phaseFiles(t, x, "App", domain.IsaFrameworksPhase), 1)
	assert.Len(t, phaseFiles(t, x, "App", domain.IsaCopyFilesPhase), 1)

	ref, err := x.Store.FileRef(out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vendor/Lib.framework", ref.Path())
	assert.Equal(t, domain.SourceTreeGroup, ref.SourceTree())
}

func TestAddFrameworkMissingTarget(t *testing.T) {
	x := newSession(t)
	out, err := x.AddFramework(context.Background(), AddFrameworkRequest{Target: "Ghost", Name: "UIKit"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, out.Status)
	assert.Equal(t, KindTarget, out.Kind)
	assert.False(t, x.Store.Dirty())
}

func TestCreateGroupPreservesOrder(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	main := x.Store.Project().MainGroup()
	before, err := x.Store.Group(main)
	require.NoError(t, err)
	prior := before.Children()

	a, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "A"})
	require.NoError(t, err)
	b, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "B", Path: "B"})
	require.NoError(t, err)

	after, _ := x.Store.Group(main)
	assert.Equal(t, append(append([]domain.ObjectID{}, prior...), a.ID, b.ID), after.Children())

	groupB, _ := x.Store.Group(b.ID)
	assert.Equal(t, "B", groupB.Path())
	assert.False(t, groupB.Fields.Has("name"), "a group whose path is its name stores only the path")

	child, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "ChildGroup", Parent: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", child.Parent)
	groupA, _ := x.Store.Group(a.ID)
	assert.Equal(t, []domain.ObjectID{child.ID}, groupA.Children())
}

func TestCreateGroupDuplicateAndMissingParent(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	_, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "Views"})
	require.NoError(t, err)
	dup, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "Views"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, dup.Status)

	_, err = x.CreateGroup(ctx, CreateGroupRequest{Name: "Child", Parent: "Nope"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestAddFile(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	out, err := x.AddFile(ctx, AddFileRequest{Path: "AppDelegate.swift", Target: "App"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "AppDelegate.swift", out.Subject)
	assert.Equal(t, []domain.ObjectID{out.ID}, phaseFiles(t, x, "App", domain.IsaSourcesPhase))

	ref, _ := x.Store.FileRef(out.ID)
	assert.Equal(t, "sourcecode.swift", ref.FileType())
	assert.Equal(t, domain.SourceTreeGroup, ref.SourceTree())

	dup, err := x.AddFile(ctx, AddFileRequest{Path: "AppDelegate.swift", Target: "App"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, dup.Status)
	assert.Len(t, phaseFiles(t, x, "App", domain.IsaSourcesPhase), 1)

	missingGroup, err := x.AddFile(ctx, AddFileRequest{Path: "View.swift", Group: "Views"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, missingGroup.Status)
	assert.Equal(t, KindGroup, missingGroup.Kind)

	missingTarget, err := x.AddFile(ctx, AddFileRequest{Path: "View.swift", Target: "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, missingTarget.Status)
	_, found := x.Store.FindFileReference("View.swift", domain.SourceTreeGroup)
	assert.False(t, found, "a not-found outcome must not leave a partial edit behind")
}

func TestAddFileIntoGroupRelativizesPath(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	_, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "Sources", Path: "Sources"})
	require.NoError(t, err)

	abs := filepath.Join(x.SourceRoot, "Sources", "Model.swift")
	out, err := x.AddFile(ctx, AddFileRequest{Path: abs, Group: "Sources", Target: "App"})
	require.NoError(t, err)
	ref, _ := x.Store.FileRef(out.ID)
	assert.Equal(t, "Model.swift", ref.Path())
	assert.Equal(t, domain.SourceTreeGroup, ref.SourceTree())

	outside, err := x.AddFile(ctx, AddFileRequest{Path: "/opt/shared/Log.swift"})
	require.NoError(t, err)
	ref, _ = x.Store.FileRef(outside.ID)
	assert.Equal(t, "/opt/shared/Log.swift", ref.Path())
	assert.Equal(t, domain.SourceTreeAbsolute, ref.SourceTree())
	assert.Equal(t, "Log.swift", ref.Name())

	list, err := x.ListFiles(ctx, "App")
	require.NoError(t, err)
	require.Len(t, list.Files, 1)
	assert.Equal(t, FileEntry{Path: "Sources/Model.swift", FileType: "sourcecode.swift", Phase: "Sources"}, list.Files[0])
}

func TestAddFileSameNameInDifferentGroups(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	for _, name := range []string{"A", "B"} {
		_, err := x.CreateGroup(ctx, CreateGroupRequest{Name: name, Path: name})
		require.NoError(t, err)
	}

	a, err := x.AddFile(ctx, AddFileRequest{Path: "A/x.swift", Group: "A", Target: "App"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, a.Status)
	b, err := x.AddFile(ctx, AddFileRequest{Path: "B/x.swift", Group: "B", Target: "App"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, b.Status)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []domain.ObjectID{a.ID, b.ID}, phaseFiles(t, x, "App", domain.IsaSourcesPhase))

	again, err := x.AddFile(ctx, AddFileRequest{Path: "B/x.swift", Group: "B", Target: "App"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, again.Status)

	list, err := x.ListFiles(ctx, "App")
	require.NoError(t, err)
	require.Len(t, list.Files, 2)
	assert.Equal(t, "A/x.swift", list.Files[0].Path)
	assert.Equal(t, "B/x.swift", list.Files[1].Path)
	assertEncodesCleanly(t, x)
}

func TestAddFrameworkPathIsScopedToItsDirectory(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	_, err := x.CreateGroup(ctx, CreateGroupRequest{Name: "Vendor", Path: "Vendor"})
	require.NoError(t, err)
	vendored, err := x.AddFile(ctx, AddFileRequest{Path: "Vendor/Lib.framework", Group: "Vendor"})
	require.NoError(t, err)

	local, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "./Lib.framework"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, local.Status)
	assert.NotEqual(t, vendored.ID, local.ID, "./Lib.framework is not Vendor/Lib.framework")

	linked, err := x.AddFramework(ctx, AddFrameworkRequest{Target: "App", Name: "Vendor/Lib.framework"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, linked.Status)
	assert.Equal(t, vendored.ID, linked.ID)
	assert.Equal(t, []domain.ObjectID{local.ID, vendored.ID}, phaseFiles(t, x, "App", domain.IsaFrameworksPhase))
}

func TestMoveFilePreservesJoins(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	oldDisk := filepath.Join(x.SourceRoot, "old.swift")
	require.NoError(t, os.WriteFile(oldDisk, []byte("let x = 1\n"), 0o644))

	added, err := x.AddFile(ctx, AddFileRequest{Path: "old.swift", Target: "App"})
	require.NoError(t, err)

	out, err := x.MoveFile(ctx, MoveFileRequest{OldPath: "old.swift", NewPath: "new.swift"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.False(t, out.MovedOnDisk)

	joins := phaseFiles(t, x, "App", domain.IsaSourcesPhase)
	require.Equal(t, []domain.ObjectID{added.ID}, joins)
	ref, _ := x.Store.FileRef(joins[0])
	assert.Equal(t, "new.swift", ref.Path())

	assert.FileExists(t, oldDisk)
	assert.NoFileExists(t, filepath.Join(x.SourceRoot, "new.swift"))
	assert.Contains(t, string(x.Store.Encode()), "/* new.swift in Sources */")
}

func TestMoveFileOnDisk(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	require.NoError(t, os.WriteFile(filepath.Join(x.SourceRoot, "a.swift"), []byte("//\n"), 0o644))
	_, err := x.AddFile(ctx, AddFileRequest{Path: "a.swift"})
	require.NoError(t, err)

	out, err := x.MoveFile(ctx, MoveFileRequest{OldPath: "a.swift", NewPath: "Nested/Dir/b.swift", MoveOnDisk: true})
	require.NoError(t, err)
	assert.True(t, out.MovedOnDisk)
	assert.FileExists(t, filepath.Join(x.SourceRoot, "Nested", "Dir", "b.swift"))
	assert.NoFileExists(t, filepath.Join(x.SourceRoot, "a.swift"))

	ref, _ := x.Store.FileRef(out.ID)
	assert.Equal(t, "Nested/Dir/b.swift", ref.Path())
	assert.Equal(t, "b.swift", ref.Name())

	require.NoError(t, out.Rollback())
	assert.FileExists(t, filepath.Join(x.SourceRoot, "a.swift"))
	assert.NoDirExists(t, filepath.Join(x.SourceRoot, "Nested"))
}

func TestMoveFileNotFound(t *testing.T) {
	x := newSession(t)
	out, err := x.MoveFile(context.Background(), MoveFileRequest{OldPath: "ghost.swift", NewPath: "x.swift"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, out.Status)
	assert.False(t, x.Store.Dirty())
}

func TestMoveFileOntoTrackedPath(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	a, err := x.AddFile(ctx, AddFileRequest{Path: "a.swift", Target: "App"})
	require.NoError(t, err)
	b, err := x.AddFile(ctx, AddFileRequest{Path: "b.swift", Target: "App"})
	require.NoError(t, err)

	out, err := x.MoveFile(ctx, MoveFileRequest{OldPath: "a.swift", NewPath: "b.swift"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, out.Status)
	assert.Equal(t, b.ID, out.ID)

	ref, _ := x.Store.FileRef(a.ID)
	assert.Equal(t, "a.swift", ref.Path())
	assert.Equal(t, []domain.ObjectID{a.ID, b.ID}, phaseFiles(t, x, "App", domain.IsaSourcesPhase))
}

func TestRemoveFile(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	disk := filepath.Join(x.SourceRoot, "Gone.swift")
	require.NoError(t, os.WriteFile(disk, []byte("//\n"), 0o644))
	added, err := x.AddFile(ctx, AddFileRequest{Path: "Gone.swift", Target: "App"})
	require.NoError(t, err)

	out, err := x.RemoveFile(ctx, RemoveFileRequest{Path: "Gone.swift", RemoveFromDisk: true})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.RemovedFromDisk)
	assert.Empty(t, phaseFiles(t, x, "App", domain.IsaSourcesPhase))
	assert.Empty(t, x.Store.Referrers(added.ID))
	assert.NoFileExists(t, disk)

	require.NoError(t, out.Rollback())
	assert.FileExists(t, disk, "rollback restores the staged delete")

	out, err = x.RemoveFile(ctx, RemoveFileRequest{Path: "Gone.swift"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, out.Status)
}

func TestRemoveFileCommitDeletes(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	disk := filepath.Join(x.SourceRoot, "Tmp.swift")
	require.NoError(t, os.WriteFile(disk, []byte("//\n"), 0o644))
	_, err := x.AddFile(ctx, AddFileRequest{Path: "Tmp.swift"})
	require.NoError(t, err)

	out, err := x.RemoveFile(ctx, RemoveFileRequest{Path: "Tmp.swift", RemoveFromDisk: true})
	require.NoError(t, err)
	require.NoError(t, out.Commit())

	entries, err := os.ReadDir(x.SourceRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddBuildPhaseValidation(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	cases := []AddBuildPhaseRequest{
		{Target: "App", Name: "Lint", Type: "run_script"},
		{Target: "App", Name: "Copy", Type: "copy_files"},
		{Target: "App", Name: "Copy", Type: "copy_files", Destination: "moon"},
		{Target: "App", Name: "Copy", Type: "copy_files", Destination: "resources", Files: []string{"[unclosed"}},
		{Target: "App", Name: "X", Type: "compile"},
	}
	for _, req := range cases {
		_, err := x.AddBuildPhase(ctx, req)
		require.Error(t, err, "%+v", req)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
	}
	assert.False(t, x.Store.Dirty())
}

func TestAddBuildPhaseGhostTargetIsNotFound(t *testing.T) {
	x := newSession(t)
	out, err := x.AddBuildPhase(context.Background(), AddBuildPhaseRequest{
		Target: "Ghost", Name: "SwiftLint", Type: "run_script", Script: "swiftlint",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, out.Status)
	assert.False(t, x.Store.Dirty())
}

func TestAddBuildPhaseRunScript(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	out, err := x.AddBuildPhase(ctx, AddBuildPhaseRequest{
		Target: "App", Name: "SwiftLint", Type: "run_script",
		Script: "if which swiftlint >/dev/null; then\n  swiftlint\nfi\n", InputPaths: []string{"$(SRCROOT)/.swiftlint.yml"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Empty(t, out.Warnings)

	app, _ := x.Store.FindTarget("App")
	phases := app.Phases()
	assert.Equal(t, out.ID, phases[len(phases)-1], "new phases are appended")
	ph, err := x.Store.Phase(out.ID)
	require.NoError(t, err)
	assert.Equal(t, "SwiftLint", ph.Name())
	assert.Equal(t, "/bin/sh", ph.Fields.String("shellPath"))
	assert.Equal(t, []string{"$(SRCROOT)/.swiftlint.yml"}, ph.Fields.Strings("inputPaths"))

	broken, err := x.AddBuildPhase(ctx, AddBuildPhaseRequest{Target: "App", Name: "Broken", Type: "run_script", Script: "if true; then\n  echo\n"})
	require.NoError(t, err)
	assert.NotEmpty(t, broken.Warnings)
	assertEncodesCleanly(t, x)
}

func TestAddBuildPhaseCopyFilesResolvesPatterns(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)
	for _, p := range []string{"Config/a.json", "Config/b.json", "Config/readme.md"} {
		_, err := x.AddFile(ctx, AddFileRequest{Path: p})
		require.NoError(t, err)
	}

	out, err := x.AddBuildPhase(ctx, AddBuildPhaseRequest{
		Target: "App", Name: "Copy Config", Type: "copy_files", Destination: "Resources", Subpath: "cfg",
		Files: []string{"Config/**/*.json", "Config/readme.md", "missing.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{"Config/a.json", "Config/b.json", "Config/readme.md"}, out.Added)
	assert.Equal(t, []string{"missing.txt"}, out.Skipped)

	ph, err := x.Store.Phase(out.ID)
	require.NoError(t, err)
	dst, _ := ph.DstSubfolder()
	assert.Equal(t, domain.DstResources, dst)
	assert.Equal(t, "cfg", ph.Fields.String("dstPath"))
	assert.Len(t, ph.Files(), 3)
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	x := newSession(t)

	all, err := x.ListFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, all.Files, 1, "only the product reference exists")
	assert.Equal(t, "App.app", all.Files[0].Path)

	empty, err := x.ListFiles(ctx, "App")
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, empty.Status)

	ghost, err := x.ListFiles(ctx, "Ghost")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, ghost.Status)
}

func TestOutcomeCommitAndRollbackOrder(t *testing.T) {
	var calls []string
	o := &Outcome{}
	o.rollback = append(o.rollback,
		func() error { calls = append(calls, "first"); return nil },
		func() error { calls = append(calls, "second"); return nil },
	)
	o.commit = append(o.commit, func() error { calls = append(calls, "commit"); return nil })
	require.NoError(t, o.Rollback())
	require.NoError(t, o.Commit())
	assert.Equal(t, []string{"second", "first"}, calls, "rollback runs newest first and cancels commits")
}
