package buildscript

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	mgerrors "modgraph/internal/errors"
)

func TestParseFile_ModelCore(t *testing.T) {
	s, err := ParseFile(filepath.Join("testdata", "model-core.gradle.kts"))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	wantPlugins := []string{"gradlebuild.distribution.core-api-java", "gradlebuild.classycle"}
	if diff := cmp.Diff(wantPlugins, s.Plugins); diff != "" {
		t.Errorf("Plugins mismatch (-want +got):\n%s", diff)
	}

	if len(s.Dependencies) != 28 {
		t.Fatalf("got %d dependencies, want 28", len(s.Dependencies))
	}

	first := s.Dependencies[0]
	if first.Configuration != "api" || first.Target.Kind != TargetProject || first.Target.Value != ":coreApi" {
		t.Errorf("first dependency = %+v", first)
	}
	if first.Line != 24 {
		t.Errorf("first dependency line = %d, want 24", first.Line)
	}

	counts := map[string]int{}
	kinds := map[TargetKind]int{}
	for _, d := range s.Dependencies {
		counts[d.Configuration]++
		kinds[d.Target.Kind]++
	}
	wantCounts := map[string]int{
		"api":                        1,
		"implementation":             13,
		"testFixturesApi":            2,
		"testFixturesImplementation": 3,
		"testImplementation":         5,
		"testRuntimeOnly":            1,
		"integTestImplementation":    1,
		"integTestRuntimeOnly":       2,
	}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("configuration counts mismatch (-want +got):\n%s", diff)
	}
	wantKinds := map[TargetKind]int{
		TargetProject:      17,
		TargetTestFixtures: 3,
		TargetLibrary:      7,
		TargetExternal:     1,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("target kinds mismatch (-want +got):\n%s", diff)
	}

	var external Declaration
	for _, d := range s.Dependencies {
		if d.Target.Kind == TargetExternal {
			external = d
		}
	}
	if external.Target.Value != "org.jetbrains.kotlin:kotlin-stdlib:$kotlinVersion" {
		t.Errorf("external coordinate = %q", external.Target.Value)
	}

	if !s.HasClassycle {
		t.Error("HasClassycle should be set")
	}
	wantPatterns := []string{
		"org/gradle/model/internal/core/**",
		"org/gradle/model/internal/inspect/**",
		"org/gradle/api/internal/tasks/**",
		"org/gradle/model/internal/manage/schema/**",
		"org/gradle/model/internal/type/**",
		"org/gradle/api/internal/plugins/*",
	}
	if diff := cmp.Diff(wantPatterns, s.ExcludePatterns); diff != "" {
		t.Errorf("ExcludePatterns mismatch (-want +got):\n%s", diff)
	}
	if s.Application != nil {
		t.Errorf("Application = %+v, want nil", s.Application)
	}
}

func TestParseFile_Application(t *testing.T) {
	s, err := ParseFile(filepath.Join("testdata", "application.gradle.kts"))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	if diff := cmp.Diff([]string{"application"}, s.Plugins); diff != "" {
		t.Errorf("Plugins mismatch (-want +got):\n%s", diff)
	}

	var coords []string
	for _, d := range s.Dependencies {
		if d.Configuration != "implementation" || d.Target.Kind != TargetExternal {
			t.Errorf("unexpected dependency %+v", d)
		}
		coords = append(coords, d.Target.Value)
	}
	wantCoords := []string{
		"com.google.code.gson:gson:2.8.6",
		"org.apache.commons:commons-lang3:3.10",
		"commons-beanutils:commons-beanutils:1.9.4",
		"commons-cli:commons-cli:1.4",
	}
	if diff := cmp.Diff(wantCoords, coords); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}

	if s.Application == nil {
		t.Fatal("Application should be set")
	}
	if s.Application.MainModule != "org.gradle.sample.app" {
		t.Errorf("MainModule = %q", s.Application.MainModule)
	}
	if s.Application.MainClass != "org.gradle.sample.app.Main" {
		t.Errorf("MainClass = %q", s.Application.MainClass)
	}
	if s.HasClassycle {
		t.Error("HasClassycle should not be set")
	}
}

func TestParse_Targets(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		config string
		want   Target
	}{
		{
			name:   "project",
			line:   `implementation(project(":logging"))`,
			config: "implementation",
			want:   Target{Kind: TargetProject, Value: ":logging"},
		},
		{
			name:   "named project path",
			line:   `api(project(path = ":core"))`,
			config: "api",
			want:   Target{Kind: TargetProject, Value: ":core"},
		},
		{
			name:   "test fixtures",
			line:   `testImplementation(testFixtures(project(":core")))`,
			config: "testImplementation",
			want:   Target{Kind: TargetTestFixtures, Value: ":core"},
		},
		{
			name:   "library",
			line:   `implementation(library("guava"))`,
			config: "implementation",
			want:   Target{Kind: TargetLibrary, Value: "guava"},
		},
		{
			name:   "catalogue accessor",
			line:   `implementation(libs.commons.lang)`,
			config: "implementation",
			want:   Target{Kind: TargetLibrary, Value: "commons.lang"},
		},
		{
			name:   "platform",
			line:   `implementation(platform(project(":distributionsDependencies")))`,
			config: "implementation",
			want:   Target{Kind: TargetProject, Value: ":distributionsDependencies", Platform: true},
		},
		{
			name:   "kotlin module",
			line:   `implementation(kotlin("reflect"))`,
			config: "implementation",
			want:   Target{Kind: TargetExternal, Value: "org.jetbrains.kotlin:kotlin-reflect"},
		},
		{
			name:   "files",
			line:   `runtimeOnly(files("libs/a.jar"))`,
			config: "runtimeOnly",
			want:   Target{Kind: TargetFiles},
		},
		{
			name:   "add with string configuration",
			line:   `add("integTestImplementation", project(":platformBase"))`,
			config: "integTestImplementation",
			want:   Target{Kind: TargetProject, Value: ":platformBase"},
		},
		{
			name:   "template coordinate",
			line:   `implementation("org.x:y:${versions["y"]}")`,
			config: "implementation",
			want:   Target{Kind: TargetExternal, Value: `org.x:y:${versions["y"]}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "dependencies {\n    " + tt.line + " // trailing\n}\n"
			s, err := Parse("build.gradle.kts", []byte(src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(s.Dependencies) != 1 {
				t.Fatalf("got %d dependencies, want 1", len(s.Dependencies))
			}
			d := s.Dependencies[0]
			if d.Configuration != tt.config {
				t.Errorf("Configuration = %q, want %q", d.Configuration, tt.config)
			}
			if d.Line != 2 {
				t.Errorf("Line = %d, want 2", d.Line)
			}
			got := d.Target
			got.Raw = ""
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Target mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_SkipsNonDeclarativeContent(t *testing.T) {
	src := `
plugins {
    id("java-library")
    kotlin("jvm")
}

val generated = tasks.register("gen") {
    doLast { println("}") }
}

dependencies {
    constraints {
        implementation("a:b:1")
    }
    api(project(":a"))
}

tasks.named<Test>("test") {
    maxParallelForks = 2
}
`
	s, err := Parse("build.gradle.kts", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff([]string{"java-library", "org.jetbrains.kotlin.jvm"}, s.Plugins); diff != "" {
		t.Errorf("Plugins mismatch (-want +got):\n%s", diff)
	}
	if len(s.Dependencies) != 1 || s.Dependencies[0].Target.Value != ":a" {
		t.Errorf("Dependencies = %+v, want only project :a", s.Dependencies)
	}
}

func TestParse_ClassycleForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"set", `excludePatterns.set(listOf("a/**", "b/*"))`, []string{"a/**", "b/*"}},
		{"set then add", "excludePatterns.set(listOf(\"a/**\"))\n    excludePatterns.add(\"c/**\")", []string{"a/**", "c/**"}},
		{"assign", `excludePatterns = listOf("x/**")`, []string{"x/**"}},
		{"add all", `excludePatterns.addAll("p/*", "q/*")`, []string{"p/*", "q/*"}},
		{"empty list", `excludePatterns.set(listOf())`, nil},
		{"multi-line chain", "excludePatterns\n        .set(listOf(\"m/**\"))", []string{"m/**"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "classycle {\n    " + tt.body + "\n}\n"
			s, err := Parse("build.gradle.kts", []byte(src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !s.HasClassycle {
				t.Error("HasClassycle should be set")
			}
			if diff := cmp.Diff(tt.want, s.ExcludePatterns); diff != "" {
				t.Errorf("ExcludePatterns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_ApplicationAssignment(t *testing.T) {
	src := "application {\n    mainClassName = \"org.example.Main\"\n}\n"
	s, err := Parse("build.gradle.kts", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Application == nil || s.Application.MainClass != "org.example.Main" {
		t.Errorf("Application = %+v", s.Application)
	}
	if s.Application.Line != 1 {
		t.Errorf("Line = %d, want 1", s.Application.Line)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine string
	}{
		{"unclosed brace", "dependencies {\n    api(project(\":a\"))\n", ""},
		{"stray brace", "plugins {\n}\n}\n", "build.gradle.kts:3"},
		{"unclosed paren", "dependencies {\n    api(project(\":a\")\n}\n", ""},
		{"unterminated string", "dependencies {\n    api(\"a:b\n}\n", "build.gradle.kts:2"},
		{"unterminated comment", "/* header\nplugins { }\n", "build.gradle.kts:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("build.gradle.kts", []byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !mgerrors.IsCode(err, mgerrors.BuildScriptInvalid) {
				t.Errorf("code = %s, want %s", mgerrors.CodeOf(err), mgerrors.BuildScriptInvalid)
			}
			if !strings.Contains(err.Error(), "build.gradle.kts") {
				t.Errorf("error %q should name the file", err)
			}
			if tt.wantLine != "" && !strings.Contains(err.Error(), tt.wantLine) {
				t.Errorf("error %q should contain %q", err, tt.wantLine)
			}
		})
	}
}

func TestParse_Blocks(t *testing.T) {
	src := "plugins { }\nrepositories { mavenCentral() }\ndependencies { }\n"
	s, err := Parse("build.gradle.kts", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff([]string{"plugins", "repositories", "dependencies"}, s.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
}
