package drift

import (
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

const defaultBins = 10

// BuildReference captures the per-feature distribution of a record set,
// typically the training data behind a freshly promoted model. A feature's
// kind follows its first observed value: numeric values get an equal-width
// histogram, string values a category frequency table.
func BuildReference(modelVersion string, records []*models.PredictionRecord, bins int) (*models.ReferenceDistribution, error) {
	if len(records) == 0 {
		return nil, ErrInsufficientData
	}
	if bins < 2 {
		bins = defaultBins
	}

	numericValues := map[string][]float64{}
	categoricalCounts := map[string]map[string]float64{}

	for _, r := range records {
		for name := range r.Features {
			if v, ok := r.Features.Number(name); ok {
				numericValues[name] = append(numericValues[name], v)
				continue
			}
			if label, ok := r.Features.Label(name); ok {
				if categoricalCounts[name] == nil {
					categoricalCounts[name] = map[string]float64{}
				}
				categoricalCounts[name][label]++
			}
		}
	}

	ref := &models.ReferenceDistribution{
		ModelVersion: modelVersion,
		CapturedAt:   time.Now().UTC(),
		Numeric:      map[string]models.NumericDistribution{},
		Categorical:  map[string]models.CategoricalDistribution{},
	}

	for name, values := range numericValues {
		ref.Numeric[name] = buildNumeric(values, bins)
	}
	for name, counts := range categoricalCounts {
		total := 0.0
		for _, c := range counts {
			total += c
		}
		ref.Categorical[name] = models.CategoricalDistribution{
			Frequencies: counts,
			Count:       int(total),
		}
	}

	return ref, nil
}

func buildNumeric(values []float64, bins int) models.NumericDistribution {
	min, max := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	// A constant feature still needs a nonzero bin width.
	width := (max - min) / float64(bins)
	if width == 0 {
		width = 1
	}

	edges := make([]float64, bins+1)
	for i := 0; i <= bins; i++ {
		edges[i] = min + float64(i)*width
	}

	return models.NumericDistribution{
		BinEdges:    edges,
		Frequencies: histogram(values, edges),
		Count:       len(values),
		Mean:        sum / float64(len(values)),
		Min:         min,
		Max:         max,
	}
}
