package bundle

import (
	"archive/tar"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/nodebundle/internal/bundletest"
	"github.com/matzehuels/nodebundle/pkg/bundler"
	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/notice"
	"github.com/matzehuels/nodebundle/pkg/observability"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

func newBundle(t *testing.T, pkg *bundletest.Package, mutate func(*Config), opts ...Option) *Bundle {
	t.Helper()
	cfg := Config{
		PackageDir:  pkg.Dir,
		Copyright:   "copyright",
		Entrypoints: []string{bundletest.Entrypoint},
		Licenses:    []string{"Apache-2.0", "MIT"},
		Bundler:     BundlerScan,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return b
}

// consumer is the package of the end-to-end scenario: two dependencies with
// allowed licenses and no NOTICE yet.
func consumer(t *testing.T) *bundletest.Package {
	t.Helper()
	pkg := bundletest.New(t, "consumer", "Apache-2.0")
	pkg.AddDependency("dep1", "MIT")
	pkg.AddDependency("dep2", "Apache-2.0")
	return pkg.Write()
}

func violationTypes(vs []Violation) []ViolationType {
	out := make([]ViolationType, len(vs))
	for i, v := range vs {
		out[i] = v.Type
	}
	return out
}

func TestValidate_AllViolations(t *testing.T) {
	pkg := bundletest.New(t, "consumer", "Apache-2.0")
	pkg.Circular = true
	pkg.AddDependency("dep1", "INVALID")
	pkg.AddDependency("dep2", "Apache-2.0", "MIT")
	pkg.Write()

	b := newBundle(t, pkg, func(c *Config) {
		c.Licenses = []string{"Apache-2.0"}
		c.Resources = []resource.Mapping{{Source: "missing", Dest: "bin/missing"}}
	})

	report, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := []string{
		"invalid-license: Dependency dep1@0.0.0 has an invalid license: UNKNOWN",
		"multiple-license: Dependency dep2@0.0.0 has multiple licenses: Apache-2.0,MIT",
		"circular-import: lib/bar.js -> lib/foo.js",
		"outdated-notice: NOTICE is outdated",
		"missing-resource: Unable to find resource (missing) relative to the package directory",
	}
	var got []string
	for _, v := range report.Violations {
		got = append(got, v.String())
	}
	if !slices.Equal(got, want) {
		t.Errorf("violations =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if report.Success {
		t.Error("Success = true, want false")
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	for _, v := range report.Violations {
		if v.Fixable() != (v.Type == OutdatedNotice) {
			t.Errorf("%s Fixable() = %v", v.Type, v.Fixable())
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	pkg := bundletest.New(t, "consumer", "Apache-2.0")
	pkg.Circular = true
	pkg.AddDependency("dep1", "GPL-3.0")
	pkg.AddDependency("dep2", "MIT")
	pkg.Write()
	b := newBundle(t, pkg, nil)

	first, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	second, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !slices.Equal(first.Violations, second.Violations) {
		t.Errorf("second run = %v, want %v", second.Violations, first.Violations)
	}
	if first.RunID == second.RunID {
		t.Error("runs share a RunID")
	}
}

func TestValidate_LicenseClassification(t *testing.T) {
	pkg := bundletest.New(t, "consumer")
	pkg.AddDependency("dual", "Apache-2.0", "MIT")
	pkg.AddDependency("none")
	pkg.Write()
	b := newBundle(t, pkg, func(c *Config) { c.Licenses = []string{"Apache-2.0"} })

	report, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	var licenses []string
	for _, v := range report.Violations {
		if v.Type == InvalidLicense || v.Type == MultipleLicense {
			licenses = append(licenses, v.String())
		}
	}
	want := []string{
		"multiple-license: Dependency dual@0.0.0 has multiple licenses: Apache-2.0,MIT",
		"invalid-license: Dependency none@0.0.0 has an invalid license: UNKNOWN",
	}
	if !slices.Equal(licenses, want) {
		t.Errorf("license violations = %v, want %v", licenses, want)
	}
}

func TestValidate_AllowListedLicenses(t *testing.T) {
	allowed := []string{
		"BSD-2-Clause-Patent",
		"CC-BY-SA-3.0",
		"Apache-2.0 WITH LLVM-exception",
		"MPL-2.0-no-copyleft-exception",
		"Python-2.0.1",
		"Example-Corp-EULA",
	}
	pkg := bundletest.New(t, "consumer")
	for i, l := range allowed {
		pkg.AddDependency(fmt.Sprintf("dep%d", i), l)
	}
	pkg.Write()
	b := newBundle(t, pkg, func(c *Config) { c.Licenses = allowed })

	report, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for _, v := range report.Violations {
		if v.Type == InvalidLicense || v.Type == MultipleLicense {
			t.Errorf("unexpected violation: %s", v)
		}
	}
}

func TestValidate_MissingResource(t *testing.T) {
	pkg := consumer(t)
	pkg.WriteFile("bin/present.sh", "#!/bin/sh\n")
	b := newBundle(t, pkg, func(c *Config) {
		c.Resources = []resource.Mapping{
			{Source: "bin/present.sh", Dest: "bin/present.sh"},
			{Source: "bin/absent.sh", Dest: "bin/absent.sh"},
		}
	})

	report, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	var missing []Violation
	for _, v := range report.Violations {
		if v.Type == MissingResource {
			missing = append(missing, v)
		}
	}
	if len(missing) != 1 || !strings.Contains(missing[0].Message, "(bin/absent.sh)") {
		t.Errorf("missing-resource violations = %v, want one for bin/absent.sh", missing)
	}
}

func TestValidate_MissingEntrypoint(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, func(c *Config) { c.Entrypoints = []string{"lib/nope.js"} })

	_, err := b.Validate(context.Background())
	if !errors.Is(err, errors.ErrCodeEntrypointNotFound) {
		t.Errorf("Validate() error = %v, want %s", err, errors.ErrCodeEntrypointNotFound)
	}
}

func TestValidate_ResolutionError(t *testing.T) {
	pkg := consumer(t)
	if err := os.RemoveAll(filepath.Join(pkg.Dir, "node_modules", "dep2")); err != nil {
		t.Fatal(err)
	}
	b := newBundle(t, pkg, nil)

	_, err := b.Validate(context.Background())
	if !errors.Is(err, errors.ErrCodeResolution) {
		t.Fatalf("Validate() error = %v, want %s", err, errors.ErrCodeResolution)
	}
	var resErr *deps.ResolutionError
	if !stderrors.As(err, &resErr) || resErr.Name != "dep2" {
		t.Errorf("Validate() error = %v, want ResolutionError for dep2", err)
	}
}

func TestValidate_Externals(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, func(c *Config) {
		c.Externals = []External{{Name: "dep1"}}
		c.Licenses = []string{"Apache-2.0"}
	})

	report, err := b.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got := violationTypes(report.Violations); !slices.Equal(got, []ViolationType{OutdatedNotice}) {
		t.Errorf("violations = %v, want only the notice (dep1 is external)", report.Violations)
	}
}

type failingCompiler struct{ err error }

func (c failingCompiler) Analyze(context.Context, string, []string, []string) (*bundler.ModuleSet, error) {
	return nil, c.err
}

func (c failingCompiler) Bundle(context.Context, string, []string, string, []string) error {
	return c.err
}

func TestValidate_CompilerFailure(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, nil, WithCompiler(failingCompiler{err: stderrors.New("boom")}))

	_, err := b.Validate(context.Background())
	if !errors.Is(err, errors.ErrCodeCollaborator) {
		t.Errorf("Validate() error = %v, want %s", err, errors.ErrCodeCollaborator)
	}
}

// recordingCompiler scans like bundler.Scan and keeps the externals each
// analysis was given.
type recordingCompiler struct {
	bundler.Scan
	analyzed [][]string
}

func (c *recordingCompiler) Analyze(ctx context.Context, dir string, entrypoints, externals []string) (*bundler.ModuleSet, error) {
	c.analyzed = append(c.analyzed, externals)
	return c.Scan.Analyze(ctx, dir, entrypoints, externals)
}

func TestValidate_AnalyzeReceivesExternals(t *testing.T) {
	pkg := consumer(t)
	rec := &recordingCompiler{}
	b := newBundle(t, pkg, func(c *Config) {
		c.Externals = []External{{Name: "dep1"}, {Name: "fsevents", Kind: ExternalOptional}}
	}, WithCompiler(rec))

	if _, err := b.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(rec.analyzed) != 1 {
		t.Fatalf("Analyze called %d times, want 1", len(rec.analyzed))
	}
	if want := []string{"dep1", "fsevents"}; !slices.Equal(rec.analyzed[0], want) {
		t.Errorf("Analyze externals = %v, want %v", rec.analyzed[0], want)
	}
}

func TestFix_NoticeRoundTrip(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, nil)
	ctx := context.Background()

	fixed, err := b.Fix(ctx)
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if got := violationTypes(fixed); !slices.Equal(got, []ViolationType{OutdatedNotice}) {
		t.Errorf("Fix() = %v, want the outdated notice", fixed)
	}
	first, ok, err := notice.Read(pkg.Dir)
	if err != nil || !ok {
		t.Fatalf("notice.Read() = %v, %v", ok, err)
	}

	report, err := b.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !report.Success {
		t.Errorf("Validate() after Fix = %v, want no violations", report.Violations)
	}

	fixed, err = b.Fix(ctx)
	if err != nil {
		t.Fatalf("second Fix failed: %v", err)
	}
	if len(fixed) != 0 {
		t.Errorf("second Fix() = %v, want nothing", fixed)
	}
	second, _, err := notice.Read(pkg.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("notice changed on second fix:\n%s\nwant\n%s", second, first)
	}
}

func TestFix_SkipsUnfixableChecks(t *testing.T) {
	pkg := consumer(t)
	// A broken bundler does not keep the notice from being fixed.
	b := newBundle(t, pkg, nil, WithCompiler(failingCompiler{err: stderrors.New("boom")}))

	if _, err := b.Fix(context.Background()); err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if _, ok, _ := notice.Read(pkg.Dir); !ok {
		t.Error("NOTICE not written")
	}
}

func TestFix_DontAttribute(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, func(c *Config) { c.DontAttribute = "^dep2$" })

	if _, err := b.Fix(context.Background()); err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	text, _, err := notice.Read(pkg.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "** dep1@0.0.0") || strings.Contains(text, "dep2") {
		t.Errorf("NOTICE =\n%s\nwant dep1 only", text)
	}
}

func TestPack_EndToEnd(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, nil)
	ctx := context.Background()
	tarball := filepath.Join(pkg.Dir, "consumer-0.0.0.tgz")

	report, err := b.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got := violationTypes(report.Violations); !slices.Equal(got, []ViolationType{OutdatedNotice}) {
		t.Fatalf("violations = %v, want only the outdated notice", report.Violations)
	}

	_, err = b.Pack(ctx)
	var vfe *ValidationFailedError
	if !stderrors.As(err, &vfe) || len(vfe.Violations) != 1 {
		t.Fatalf("Pack() error = %v, want ValidationFailedError with one violation", err)
	}
	if !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("Pack() error code = %s, want %s", errors.GetCode(err), errors.ErrCodeValidationFailed)
	}
	if _, err := os.Stat(tarball); !os.IsNotExist(err) {
		t.Fatal("tarball written despite violations")
	}

	if _, err := b.Fix(ctx); err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	res, err := b.Pack(ctx)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if res.Tarball != tarball {
		t.Errorf("Tarball = %s, want %s", res.Tarball, tarball)
	}
	if res.Size == 0 || !strings.HasPrefix(res.Integrity, "sha512-") {
		t.Errorf("PackResult = %+v", res)
	}

	entries := readTarball(t, tarball)
	for _, name := range []string{
		"package/package.json",
		"package/NOTICE",
		"package/lib/foo.js",
		"package/lib/bar.js",
		"package/node_modules/dep1/index.js",
		"package/node_modules/dep2/package.json",
	} {
		if _, ok := entries[name]; !ok {
			t.Errorf("tarball is missing %s", name)
		}
	}

	var manifest map[string]any
	if err := json.Unmarshal([]byte(entries["package/package.json"]), &manifest); err != nil {
		t.Fatalf("shipped package.json: %v", err)
	}
	for _, key := range []string{"devDependencies", "dependencies"} {
		if _, ok := manifest[key]; ok {
			t.Errorf("shipped package.json has %s", key)
		}
	}
}

func TestPack_ShipsExternals(t *testing.T) {
	pkg := consumer(t)
	b := newBundle(t, pkg, func(c *Config) {
		c.Externals = []External{{Name: "dep2"}, {Name: "fsevents", Kind: ExternalOptional}}
	})
	ctx := context.Background()
	if _, err := b.Fix(ctx); err != nil {
		t.Fatalf("Fix failed: %v", err)
	}

	res, err := b.Pack(ctx)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	entries := readTarball(t, res.Tarball)
	if _, ok := entries["package/node_modules/dep2/index.js"]; ok {
		t.Error("external dep2 was bundled")
	}

	var manifest struct {
		Dependencies         map[string]string `json:"dependencies"`
		OptionalDependencies map[string]string `json:"optionalDependencies"`
	}
	if err := json.Unmarshal([]byte(entries["package/package.json"]), &manifest); err != nil {
		t.Fatal(err)
	}
	if got := manifest.Dependencies; len(got) != 1 || got["dep2"] != "0.0.0" {
		t.Errorf("dependencies = %v, want dep2@0.0.0", got)
	}
	if got := manifest.OptionalDependencies; len(got) != 1 || got["fsevents"] != "*" {
		t.Errorf("optionalDependencies = %v, want fsevents@*", got)
	}
}

func TestPack_SanityTest(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"passes", "test -f package.json && test -f lib/bar.js", false},
		{"fails", "exit 3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := consumer(t)
			b := newBundle(t, pkg, func(c *Config) { c.Test = tt.command })
			ctx := context.Background()
			if _, err := b.Fix(ctx); err != nil {
				t.Fatalf("Fix failed: %v", err)
			}

			_, err := b.Pack(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Pack() error = %v, wantErr %v", err, tt.wantErr)
			}
			_, statErr := os.Stat(filepath.Join(pkg.Dir, "consumer-0.0.0.tgz"))
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeCollaborator) {
					t.Errorf("Pack() error = %v, want %s", err, errors.ErrCodeCollaborator)
				}
				if !os.IsNotExist(statErr) {
					t.Error("tarball written although the sanity test failed")
				}
			} else if statErr != nil {
				t.Errorf("tarball missing: %v", statErr)
			}
		})
	}
}

func TestPack_CopiesResources(t *testing.T) {
	pkg := consumer(t)
	pkg.WriteFile("node_modules/helper/run.sh", "#!/bin/sh\necho ok\n")
	b := newBundle(t, pkg, func(c *Config) {
		c.Resources = []resource.Mapping{{Source: "node_modules/helper/run.sh", Dest: "bin/run.sh"}}
	})
	ctx := context.Background()
	if _, err := b.Fix(ctx); err != nil {
		t.Fatalf("Fix failed: %v", err)
	}

	res, err := b.Pack(ctx)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if got := readTarball(t, res.Tarball)["package/bin/run.sh"]; got != "#!/bin/sh\necho ok\n" {
		t.Errorf("package/bin/run.sh = %q", got)
	}
}

type checkRecorder struct {
	observability.NoopBundleHooks
	mu     sync.Mutex
	checks []string
}

func (r *checkRecorder) OnCheckComplete(_ context.Context, check string, _ int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, check)
}

func TestValidate_Hooks(t *testing.T) {
	rec := &checkRecorder{}
	observability.SetBundleHooks(rec)
	defer observability.Reset()

	b := newBundle(t, consumer(t), nil)
	if _, err := b.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := []string{"license", "cycles", "notice", "resources"}
	if !slices.Equal(rec.checks, want) {
		t.Errorf("checks = %v, want %v", rec.checks, want)
	}
}

func TestModuleGraph(t *testing.T) {
	pkg := bundletest.New(t, "consumer")
	pkg.Circular = true
	pkg.AddDependency("dep1", "MIT")
	pkg.Write()
	b := newBundle(t, pkg, nil)

	g, err := b.ModuleGraph(context.Background())
	if err != nil {
		t.Fatalf("ModuleGraph failed: %v", err)
	}
	if g.NodeCount() != 2 || !g.HasEdge("lib/foo.js", "lib/bar.js") || !g.HasEdge("lib/bar.js", "lib/foo.js") {
		t.Errorf("module graph: %d nodes, edges %v", g.NodeCount(), g.Edges())
	}
}

func TestDependencyGraph(t *testing.T) {
	b := newBundle(t, consumer(t), func(c *Config) { c.Externals = []External{{Name: "dep2"}} })

	g, err := b.DependencyGraph(context.Background())
	if err != nil {
		t.Fatalf("DependencyGraph failed: %v", err)
	}
	if !g.HasEdge(deps.ProjectRoot, "dep1@0.0.0") {
		t.Error("missing edge to dep1")
	}
	if _, ok := g.Node("dep2@0.0.0"); ok {
		t.Error("external dep2 is in the graph")
	}
}

func readTarball(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(zr)
	entries := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}
