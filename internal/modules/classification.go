package modules

import "strings"

// Scope is a dependency configuration keyword as written in the build script
type Scope string

// ScopeClass groups scopes by the classpath they end up on
type ScopeClass string

const (
	// ClassMain scopes feed the production classpath
	ClassMain ScopeClass = "main"

	// ClassTestFixtures scopes feed the test-fixtures variant
	ClassTestFixtures ScopeClass = "test-fixtures"

	// ClassTest scopes feed unit, integration and cross-version test classpaths
	ClassTest ScopeClass = "test"

	// ClassCustom is any configuration not known to the checker
	ClassCustom ScopeClass = "custom"
)

// Well-known scopes
const (
	ScopeAPI                              Scope = "api"
	ScopeImplementation                   Scope = "implementation"
	ScopeCompileOnly                      Scope = "compileOnly"
	ScopeCompileOnlyAPI                   Scope = "compileOnlyApi"
	ScopeRuntimeOnly                      Scope = "runtimeOnly"
	ScopeAnnotationProcessor              Scope = "annotationProcessor"
	ScopeTestImplementation               Scope = "testImplementation"
	ScopeTestRuntimeOnly                  Scope = "testRuntimeOnly"
	ScopeTestCompileOnly                  Scope = "testCompileOnly"
	ScopeTestFixturesAPI                  Scope = "testFixturesApi"
	ScopeTestFixturesImplementation       Scope = "testFixturesImplementation"
	ScopeTestFixturesRuntimeOnly          Scope = "testFixturesRuntimeOnly"
	ScopeTestFixturesCompileOnly          Scope = "testFixturesCompileOnly"
	ScopeIntegTestImplementation          Scope = "integTestImplementation"
	ScopeIntegTestRuntimeOnly             Scope = "integTestRuntimeOnly"
	ScopeIntegTestDistributionRuntimeOnly Scope = "integTestDistributionRuntimeOnly"
	ScopeCrossVersionTestImplementation   Scope = "crossVersionTestImplementation"
	ScopeCrossVersionTestRuntimeOnly      Scope = "crossVersionTestRuntimeOnly"
)

var scopeClasses = map[Scope]ScopeClass{
	ScopeAPI:                              ClassMain,
	ScopeImplementation:                   ClassMain,
	ScopeCompileOnly:                      ClassMain,
	ScopeCompileOnlyAPI:                   ClassMain,
	ScopeRuntimeOnly:                      ClassMain,
	ScopeAnnotationProcessor:              ClassMain,
	ScopeTestImplementation:               ClassTest,
	ScopeTestRuntimeOnly:                  ClassTest,
	ScopeTestCompileOnly:                  ClassTest,
	ScopeTestFixturesAPI:                  ClassTestFixtures,
	ScopeTestFixturesImplementation:       ClassTestFixtures,
	ScopeTestFixturesRuntimeOnly:          ClassTestFixtures,
	ScopeTestFixturesCompileOnly:          ClassTestFixtures,
	ScopeIntegTestImplementation:          ClassTest,
	ScopeIntegTestRuntimeOnly:             ClassTest,
	ScopeIntegTestDistributionRuntimeOnly: ClassTest,
	ScopeCrossVersionTestImplementation:   ClassTest,
	ScopeCrossVersionTestRuntimeOnly:      ClassTest,
}

// ParseScope returns the scope for a configuration keyword. Unknown
// keywords are kept verbatim and classify as ClassCustom.
func ParseScope(s string) Scope {
	return Scope(strings.TrimSpace(s))
}

// Known reports whether the scope is one of the well-known configurations
func (s Scope) Known() bool {
	_, ok := scopeClasses[s]
	return ok
}

// Classification returns the scope class
func (s Scope) Classification() ScopeClass {
	if c, ok := scopeClasses[s]; ok {
		return c
	}
	return ClassCustom
}

// IsExported reports whether the dependency leaks to consumers of the module
func (s Scope) IsExported() bool {
	return s == ScopeAPI || s == ScopeCompileOnlyAPI || s == ScopeTestFixturesAPI
}

// IsTest reports whether the scope only affects test classpaths
func (s Scope) IsTest() bool {
	return s.Classification() == ClassTest
}

// ParseScopeClasses parses a comma separated list such as "main,test".
// "all" selects every class.
func ParseScopeClasses(list string) ([]ScopeClass, bool) {
	var out []ScopeClass
	for _, part := range strings.Split(list, ",") {
		switch strings.TrimSpace(part) {
		case "":
			continue
		case "all":
			return AllScopeClasses(), true
		case string(ClassMain):
			out = append(out, ClassMain)
		case string(ClassTestFixtures), "testFixtures":
			out = append(out, ClassTestFixtures)
		case string(ClassTest):
			out = append(out, ClassTest)
		case string(ClassCustom):
			out = append(out, ClassCustom)
		default:
			return nil, false
		}
	}
	return out, true
}

// AllScopeClasses returns every scope class
func AllScopeClasses() []ScopeClass {
	return []ScopeClass{ClassMain, ClassTestFixtures, ClassTest, ClassCustom}
}

// DefaultScopeClasses are the classes that contribute to the module graph
// unless tests are included.
func DefaultScopeClasses(includeTests bool) []ScopeClass {
	if includeTests {
		return AllScopeClasses()
	}
	return []ScopeClass{ClassMain, ClassTestFixtures, ClassCustom}
}
