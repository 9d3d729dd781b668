// Package drift scores how far recent prediction traffic has moved away from
// the distribution the active model was trained on. Every feature is scored
// with a binned KS statistic and the population stability index (PSI);
// categorical features treat their categories as bins.
package drift

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	ErrInsufficientData = errors.New("no samples in evaluation window")
	ErrMissingReference = errors.New("no reference distribution available")
)

// psiEpsilon floors zero proportions so the PSI log term stays finite.
const psiEpsilon = 1e-4

type Config struct {
	// DistanceThreshold flags a numeric feature when its KS statistic
	// exceeds it.
	DistanceThreshold float64
	// StabilityWarning is the aggregate PSI level that warrants watching.
	StabilityWarning float64
	// StabilityCritical flags a feature, and recommends retraining at the
	// aggregate level, when PSI exceeds it.
	StabilityCritical float64
}

type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	if cfg.DistanceThreshold == 0 {
		cfg.DistanceThreshold = 0.1
	}
	if cfg.StabilityWarning == 0 {
		cfg.StabilityWarning = 0.1
	}
	if cfg.StabilityCritical == 0 {
		cfg.StabilityCritical = 0.25
	}
	return &Detector{cfg: cfg}
}

// Detect scores the sample window against the reference. Reference features
// absent from every sample are skipped; sample features unknown to the
// reference get a missing_reference verdict and stay out of the aggregate.
func (d *Detector) Detect(reference *models.ReferenceDistribution, samples []*models.PredictionRecord, from, to time.Time) (*models.DriftReport, error) {
	if reference == nil {
		return nil, ErrMissingReference
	}
	if len(samples) == 0 {
		return nil, ErrInsufficientData
	}

	report := &models.DriftReport{
		ID:           models.NewUUID(),
		ModelVersion: reference.ModelVersion,
		WindowFrom:   from,
		WindowTo:     to,
		SampleCount:  len(samples),
		CreatedAt:    time.Now().UTC(),
	}

	var psiSum float64
	var scored int

	for _, name := range sortedKeys(reference.Numeric) {
		dist := reference.Numeric[name]
		score, ok := d.scoreNumeric(name, dist, samples)
		if !ok {
			continue
		}
		report.Features = append(report.Features, score)
		psiSum += score.PSI
		scored++
	}

	for _, name := range sortedKeys(reference.Categorical) {
		dist := reference.Categorical[name]
		score, ok := d.scoreCategorical(name, dist, samples)
		if !ok {
			continue
		}
		report.Features = append(report.Features, score)
		psiSum += score.PSI
		scored++
	}

	for _, name := range unknownFeatures(reference, samples) {
		report.Features = append(report.Features, models.FeatureScore{
			Feature: name,
			Verdict: models.VerdictMissingReference,
		})
	}

	if scored > 0 {
		report.AggregateScore = psiSum / float64(scored)
	}
	report.AggregateDrift = report.AggregateScore > d.cfg.StabilityCritical ||
		len(report.DriftedFeatures()) > 0
	report.Recommendation = d.recommend(report)

	return report, nil
}

func (d *Detector) scoreNumeric(name string, ref models.NumericDistribution, samples []*models.PredictionRecord) (models.FeatureScore, bool) {
	var values []float64
	for _, s := range samples {
		if v, ok := s.Features.Number(name); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return models.FeatureScore{}, false
	}

	refPct := normalize(ref.Frequencies)
	recentPct := normalize(histogram(values, ref.BinEdges))

	ks := ksStatistic(refPct, recentPct)
	psi := psiScore(refPct, recentPct)

	score := models.FeatureScore{
		Feature:     name,
		Kind:        models.FeatureNumeric,
		KSStatistic: ks,
		PSI:         psi,
		Verdict:     models.VerdictStable,
	}
	if ks > d.cfg.DistanceThreshold || psi > d.cfg.StabilityCritical {
		score.Verdict = models.VerdictDrift
		score.DriftDetected = true
	}
	return score, true
}

func (d *Detector) scoreCategorical(name string, ref models.CategoricalDistribution, samples []*models.PredictionRecord) (models.FeatureScore, bool) {
	counts := map[string]float64{}
	total := 0.0
	for _, s := range samples {
		if label, ok := s.Features.Label(name); ok {
			counts[label]++
			total++
		}
	}
	if total == 0 {
		return models.FeatureScore{}, false
	}

	categories := map[string]struct{}{}
	for c := range ref.Frequencies {
		categories[c] = struct{}{}
	}
	for c := range counts {
		categories[c] = struct{}{}
	}

	refTotal := 0.0
	for _, f := range ref.Frequencies {
		refTotal += f
	}

	// Categories act as bins. The axis is sorted so the KS walk over the
	// cumulative sums is deterministic.
	names := make([]string, 0, len(categories))
	for c := range categories {
		names = append(names, c)
	}
	sort.Strings(names)

	var refPct, recentPct []float64
	for _, c := range names {
		rp := 0.0
		if refTotal > 0 {
			rp = ref.Frequencies[c] / refTotal
		}
		refPct = append(refPct, rp)
		recentPct = append(recentPct, counts[c]/total)
	}

	ks := ksStatistic(refPct, recentPct)
	psi := psiScore(refPct, recentPct)

	score := models.FeatureScore{
		Feature:     name,
		Kind:        models.FeatureCategorical,
		KSStatistic: ks,
		PSI:         psi,
		Verdict:     models.VerdictStable,
	}
	if ks > d.cfg.DistanceThreshold || psi > d.cfg.StabilityCritical {
		score.Verdict = models.VerdictDrift
		score.DriftDetected = true
	}
	return score, true
}

func (d *Detector) recommend(report *models.DriftReport) models.Recommendation {
	switch {
	case report.AggregateScore >= d.cfg.StabilityCritical:
		return models.RecommendRetrain
	case report.AggregateScore >= d.cfg.StabilityWarning || len(report.DriftedFeatures()) > 0:
		return models.RecommendWatch
	default:
		return models.RecommendNoAction
	}
}

// histogram counts values into the fixed reference bins. Values outside the
// edge range land in the first or last bin so no sample is dropped.
func histogram(values []float64, edges []float64) []float64 {
	bins := len(edges) - 1
	if bins < 1 {
		return nil
	}
	interior := edges[1 : len(edges)-1]
	counts := make([]float64, bins)
	for _, v := range values {
		idx := sort.Search(len(interior), func(i int) bool { return interior[i] > v })
		counts[idx]++
	}
	return counts
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	pct := make([]float64, len(counts))
	if total == 0 {
		return pct
	}
	for i, c := range counts {
		pct[i] = c / total
	}
	return pct
}

// ksStatistic is the largest gap between the two binned CDFs.
func ksStatistic(refPct, recentPct []float64) float64 {
	var cumRef, cumRecent, maxGap float64
	for i := range refPct {
		cumRef += refPct[i]
		cumRecent += recentPct[i]
		if gap := math.Abs(cumRef - cumRecent); gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap
}

func psiScore(refPct, recentPct []float64) float64 {
	var psi float64
	for i := range refPct {
		rp := refPct[i]
		cp := recentPct[i]
		if rp < psiEpsilon {
			rp = psiEpsilon
		}
		if cp < psiEpsilon {
			cp = psiEpsilon
		}
		psi += (cp - rp) * math.Log(cp/rp)
	}
	return psi
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unknownFeatures(reference *models.ReferenceDistribution, samples []*models.PredictionRecord) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, s := range samples {
		for name := range s.Features {
			if _, done := seen[name]; done {
				continue
			}
			seen[name] = struct{}{}
			if !reference.HasFeature(name) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
