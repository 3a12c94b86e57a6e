// Aggregate reporters (§4.10, §4.9 Step 5): pure functions over the same
// per-tool data the Step-3 aspect functions already consumed, each
// returning nil when its source data doesn't exist on either side of the
// compare so the caller can omit it entirely from the diff.
package compare

import (
	"sort"

	"github.com/google/uuid"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/perf"
)

func buildPerformanceReport(prev, curr map[string]baseline.ToolCapability, commonNames []string, threshold float64) *PerformanceRegressionReport {
	var report PerformanceRegressionReport
	haveData := false

	for _, name := range commonNames {
		p, c := prev[name], curr[name]
		if p.BaselineP50Ms == nil || c.BaselineP50Ms == nil || c.PerformanceConfidence == nil {
			continue
		}
		haveData = true
		percent, isRegression, isImprovement, reliable := perf.Regression(*p.BaselineP50Ms, *c.BaselineP50Ms, c.PerformanceConfidence.ConfidenceLevel, threshold)
		if isRegression {
			report.Regressions = append(report.Regressions, PerformanceRegression{
				Tool: name, PreviousP50Ms: *p.BaselineP50Ms, CurrentP50Ms: *c.BaselineP50Ms,
				RegressionPercent: percent, Reliable: reliable,
			})
		}
		if isImprovement {
			report.ImprovementCount++
		}
		if c.PerformanceConfidence.ConfidenceLevel == perf.ConfidenceLow {
			report.LowConfidenceTools = append(report.LowConfidenceTools, name)
		}
	}

	if !haveData {
		return nil
	}
	sort.Slice(report.Regressions, func(i, j int) bool { return report.Regressions[i].Tool < report.Regressions[j].Tool })
	sort.Strings(report.LowConfidenceTools)
	report.HasRegressions = len(report.Regressions) > 0
	return &report
}

func buildSecurityReport(prev, curr map[string]baseline.ToolCapability, commonNames []string) *SecurityDiffReport {
	var report SecurityDiffReport
	var prevScores, currScores []float64

	for _, name := range commonNames {
		p, c := prev[name], curr[name]
		if p.SecurityFingerprint != nil && p.SecurityFingerprint.Tested {
			prevScores = append(prevScores, float64(p.SecurityFingerprint.RiskScore))
		}
		if c.SecurityFingerprint != nil && c.SecurityFingerprint.Tested {
			currScores = append(currScores, float64(c.SecurityFingerprint.RiskScore))
		}

		var prevFindings, currFindings []baseline.SecurityFinding
		if p.SecurityFingerprint != nil {
			prevFindings = p.SecurityFingerprint.Findings
		}
		if c.SecurityFingerprint != nil {
			currFindings = c.SecurityFingerprint.Findings
		}
		prevByKey := map[string]struct{}{}
		for _, f := range prevFindings {
			prevByKey[securityFindingKey(name, f)] = struct{}{}
		}
		currByKey := map[string]struct{}{}
		for _, f := range currFindings {
			currByKey[securityFindingKey(name, f)] = struct{}{}
		}
		for _, f := range currFindings {
			if _, ok := prevByKey[securityFindingKey(name, f)]; !ok {
				report.NewFindings = append(report.NewFindings, SecurityFindingRef{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(securityFindingKey(name, f))).String(), Tool: name, Category: f.Category, RiskLevel: string(f.RiskLevel), Title: f.Title})
			}
		}
		for _, f := range prevFindings {
			if _, ok := currByKey[securityFindingKey(name, f)]; !ok {
				report.ResolvedFindings = append(report.ResolvedFindings, SecurityFindingRef{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(securityFindingKey(name, f))).String(), Tool: name, Category: f.Category, RiskLevel: string(f.RiskLevel), Title: f.Title})
			}
		}
	}

	if len(prevScores) == 0 && len(currScores) == 0 {
		return nil
	}
	report.PreviousRiskScore = average(prevScores)
	report.CurrentRiskScore = average(currScores)
	report.Degraded = len(report.NewFindings) > 0 || report.CurrentRiskScore > report.PreviousRiskScore

	sort.Slice(report.NewFindings, func(i, j int) bool { return findingLess(report.NewFindings[i], report.NewFindings[j]) })
	sort.Slice(report.ResolvedFindings, func(i, j int) bool { return findingLess(report.ResolvedFindings[i], report.ResolvedFindings[j]) })
	return &report
}

func findingLess(a, b SecurityFindingRef) bool {
	if a.Tool != b.Tool {
		return a.Tool < b.Tool
	}
	return a.Title < b.Title
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func buildSchemaEvolutionReport(prev, curr map[string]baseline.ToolCapability, commonNames []string, changes []BehaviorChange) *SchemaEvolutionReport {
	var report SchemaEvolutionReport
	haveData := false

	for _, name := range commonNames {
		c := curr[name]
		if c.ResponseSchemaEvolution == nil {
			continue
		}
		haveData = true
		if c.ResponseSchemaEvolution.IsStable {
			report.StableCount++
		} else {
			report.UnstableCount++
		}
		if p := prev[name]; p.ResponseSchemaEvolution != nil && p.ResponseSchemaEvolution.CurrentHash != c.ResponseSchemaEvolution.CurrentHash {
			report.StructureChangedCount++
		}
	}

	if !haveData {
		return nil
	}
	for _, ch := range changes {
		if ch.Aspect == AspectResponseSchemaEvolution && ch.Severity == SeverityBreaking {
			report.HasBreakingChanges = true
			break
		}
	}
	return &report
}

func buildErrorTrendReport(prev, curr map[string]baseline.ToolCapability, commonNames []string) *ErrorTrendReport {
	prevCounts := map[string]int{}
	currCounts := map[string]int{}
	haveData := false

	for _, name := range commonNames {
		for _, p := range prev[name].ErrorPatterns {
			haveData = true
			prevCounts[string(p.Category)] += p.Count
		}
		for _, c := range curr[name].ErrorPatterns {
			haveData = true
			currCounts[string(c.Category)] += c.Count
		}
	}
	if !haveData {
		return nil
	}

	var report ErrorTrendReport
	for cat := range currCounts {
		if _, ok := prevCounts[cat]; !ok {
			report.NewCategories = append(report.NewCategories, cat)
		}
	}
	for cat := range prevCounts {
		if _, ok := currCounts[cat]; !ok {
			report.ResolvedCategories = append(report.ResolvedCategories, cat)
		}
	}
	for cat, prevCount := range prevCounts {
		if currCount, ok := currCounts[cat]; ok && prevCount > 0 && float64(currCount) >= 2*float64(prevCount) {
			report.IncreasingCategories = append(report.IncreasingCategories, cat)
		}
	}
	sort.Strings(report.NewCategories)
	sort.Strings(report.ResolvedCategories)
	sort.Strings(report.IncreasingCategories)
	return &report
}

func buildDocumentationScoreReport(prev, curr *baseline.DocumentationScore) *DocumentationScoreReport {
	if prev == nil || curr == nil {
		return nil
	}
	return &DocumentationScoreReport{
		Improved:      curr.OverallScore > prev.OverallScore,
		Degraded:      curr.OverallScore < prev.OverallScore,
		PreviousGrade: prev.Grade,
		CurrentGrade:  curr.Grade,
	}
}
