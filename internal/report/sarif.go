package report

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"modgraph/internal/check"
	"modgraph/internal/cycles"
	"modgraph/internal/modules"
	"modgraph/internal/version"
)

// SARIF 2.1.0 schema types
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SARIFReport is the top-level SARIF document.
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run.
type SARIFRun struct {
	Tool        SARIFTool         `json:"tool"`
	Results     []SARIFResult     `json:"results"`
	Invocations []SARIFInvocation `json:"invocations,omitempty"`
}

// SARIFTool describes the analysis tool.
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver describes the primary analysis component.
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	InformationURI  string      `json:"informationUri,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
}

// SARIFRule describes a rule that detected an issue.
type SARIFRule struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *SARIFMessage           `json:"shortDescription,omitempty"`
	FullDescription      *SARIFMessage           `json:"fullDescription,omitempty"`
	DefaultConfiguration *SARIFRuleConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]interface{}  `json:"properties,omitempty"`
}

// SARIFRuleConfiguration describes the default configuration for a rule.
type SARIFRuleConfiguration struct {
	Level string `json:"level,omitempty"` // error, warning, note, none
}

// SARIFResult represents a single finding.
type SARIFResult struct {
	RuleID        string                 `json:"ruleId"`
	RuleIndex     int                    `json:"ruleIndex"`
	Level         string                 `json:"level,omitempty"`
	Message       SARIFMessage           `json:"message"`
	Locations     []SARIFLocation        `json:"locations,omitempty"`
	Fingerprints  map[string]string      `json:"fingerprints,omitempty"`
	BaselineState string                 `json:"baselineState,omitempty"` // new, unchanged
	Suppressions  []SARIFSuppression     `json:"suppressions,omitempty"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
}

// SARIFSuppression records why a result does not count.
type SARIFSuppression struct {
	Kind          string `json:"kind"` // inSource, external
	Justification string `json:"justification,omitempty"`
}

// SARIFMessage contains text in various formats.
type SARIFMessage struct {
	Text string `json:"text,omitempty"`
}

// SARIFLocation describes where a result was found.
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
}

// SARIFPhysicalLocation identifies a file and region.
type SARIFPhysicalLocation struct {
	ArtifactLocation *SARIFArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *SARIFRegion           `json:"region,omitempty"`
}

// SARIFArtifactLocation identifies a file.
type SARIFArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion identifies a region within a file.
type SARIFRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SARIFInvocation describes a single invocation of the tool.
type SARIFInvocation struct {
	ExecutionSuccessful bool                   `json:"executionSuccessful"`
	WorkingDirectory    *SARIFArtifactLocation `json:"workingDirectory,omitempty"`
	Machine             string                 `json:"machine,omitempty"`
}

const (
	sarifSchema      = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	fingerprintKey   = "modgraph/v1"
	ruleModuleCycle  = "modgraph/module-cycle"
	rulePackageCycle = "modgraph/package-cycle"
	ruleDeclaration  = "modgraph/declaration"
	ruleUnused       = "modgraph/unused-exclusion"
)

var sarifRules = []SARIFRule{
	{
		ID:               ruleModuleCycle,
		Name:             "ModuleCycle",
		ShortDescription: &SARIFMessage{Text: "Cyclic dependency between modules"},
		FullDescription: &SARIFMessage{
			Text: "Modules depend on each other in a cycle. Module cycles cannot be excluded.",
		},
		DefaultConfiguration: &SARIFRuleConfiguration{Level: "error"},
		Properties:           map[string]interface{}{"tags": []string{"architecture", "cycles"}},
	},
	{
		ID:               rulePackageCycle,
		Name:             "PackageCycle",
		ShortDescription: &SARIFMessage{Text: "Cyclic dependency between packages of a module"},
		FullDescription: &SARIFMessage{
			Text: "Packages of one module import each other in a cycle that the module's exclusion patterns do not cover.",
		},
		DefaultConfiguration: &SARIFRuleConfiguration{Level: "error"},
		Properties:           map[string]interface{}{"tags": []string{"architecture", "cycles"}},
	},
	{
		ID:                   ruleDeclaration,
		Name:                 "InvalidDeclaration",
		ShortDescription:     &SARIFMessage{Text: "Invalid dependency declaration"},
		DefaultConfiguration: &SARIFRuleConfiguration{Level: "warning"},
	},
	{
		ID:                   ruleUnused,
		Name:                 "UnusedExclusion",
		ShortDescription:     &SARIFMessage{Text: "Exclusion pattern matches no class"},
		DefaultConfiguration: &SARIFRuleConfiguration{Level: "note"},
	},
}

func ruleIndex(id string) int {
	for i, r := range sarifRules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// renderSARIF converts a check result to SARIF. Suppressed cycles are
// included with an inSource suppression; baselined violations are marked
// unchanged and carry an external suppression.
func renderSARIF(res *check.Result) (string, error) {
	results := make([]SARIFResult, 0, len(res.Violations)+len(res.Suppressed)+len(res.Issues))

	for _, f := range res.Violations {
		r := findingResult(f)
		r.Level = "error"
		r.BaselineState = "new"
		if f.Baselined {
			r.BaselineState = "unchanged"
			r.Suppressions = []SARIFSuppression{{Kind: "external", Justification: "accepted in baseline"}}
		}
		results = append(results, r)
	}
	for _, f := range res.Suppressed {
		r := findingResult(f)
		r.Level = "note"
		r.Suppressions = []SARIFSuppression{{
			Kind:          "inSource",
			Justification: "excluded by " + strings.Join(f.Patterns, ", "),
		}}
		results = append(results, r)
	}
	for _, is := range res.Issues {
		level := "warning"
		if is.Severity == modules.SeverityError {
			level = "error"
		}
		results = append(results, SARIFResult{
			RuleID:     ruleDeclaration,
			RuleIndex:  ruleIndex(ruleDeclaration),
			Level:      level,
			Message:    SARIFMessage{Text: is.Message},
			Locations:  location(is.File, is.Line),
			Properties: map[string]interface{}{"kind": string(is.Kind), "module": is.Module},
		})
	}
	for _, u := range res.Unused {
		results = append(results, SARIFResult{
			RuleID:     ruleUnused,
			RuleIndex:  ruleIndex(ruleUnused),
			Level:      "note",
			Message:    SARIFMessage{Text: fmt.Sprintf("exclusion pattern %q of %s matches no class", u.Pattern, u.Module)},
			Properties: map[string]interface{}{"module": u.Module, "pattern": u.Pattern},
		})
	}

	report := SARIFReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:            "modgraph",
						Version:         version.Version,
						SemanticVersion: version.Version,
						Rules:           sarifRules,
					},
				},
				Results: results,
				Invocations: []SARIFInvocation{
					{
						ExecutionSuccessful: true,
						WorkingDirectory:    &SARIFArtifactLocation{URI: res.RepoRoot},
						Machine:             runtime.GOOS + "/" + runtime.GOARCH,
					},
				},
			},
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal SARIF: %w", err)
	}
	return string(data), nil
}

func findingResult(f cycles.Finding) SARIFResult {
	id := rulePackageCycle
	if f.Kind == cycles.KindModuleCycle {
		id = ruleModuleCycle
	}
	r := SARIFResult{
		RuleID:       id,
		RuleIndex:    ruleIndex(id),
		Message:      SARIFMessage{Text: f.Title()},
		Fingerprints: map[string]string{fingerprintKey: f.Fingerprint()},
		Properties: map[string]interface{}{
			"members": f.Members,
			"path":    f.Path,
		},
	}
	if f.Module != "" {
		r.Properties["module"] = f.Module
	}
	if len(f.ExcludedMembers) > 0 {
		r.Properties["excludedMembers"] = f.ExcludedMembers
	}
	if f.ViaExcluded {
		r.Properties["viaExcluded"] = true
	}
	if len(f.Evidence) > 0 {
		r.Locations = location(f.Evidence[0].File, f.Evidence[0].Line)
	}
	return r
}

// location builds a repo-relative location; paths are already slash-separated
func location(file string, line int) []SARIFLocation {
	if file == "" {
		return nil
	}
	loc := SARIFLocation{
		PhysicalLocation: &SARIFPhysicalLocation{
			ArtifactLocation: &SARIFArtifactLocation{URI: file, URIBaseID: "%SRCROOT%"},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &SARIFRegion{StartLine: line}
	}
	return []SARIFLocation{loc}
}
