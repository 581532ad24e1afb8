package cluster

import (
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/pkg/logger"
)

// Clusterer assigns a density-cluster label to each question string.
type Clusterer struct {
	maxFeatures int
	epsilon     float64
	minSamples  int
}

func NewClusterer(epsilon float64, minSamples, maxFeatures int) *Clusterer {
	return &Clusterer{
		maxFeatures: maxFeatures,
		epsilon:     epsilon,
		minSamples:  minSamples,
	}
}

// Labels vectorizes questions and clusters them. Fewer than two questions
// cannot form a cluster, so everything is labeled Noise without running
// the algorithm.
func (c *Clusterer) Labels(questions []string) []int {
	if len(questions) < 2 {
		logger.Info("Skipping clustering: not enough questions",
			zap.Int("questions", len(questions)),
		)
		labels := make([]int, len(questions))
		for i := range labels {
			labels[i] = Noise
		}
		return labels
	}

	vectors := NewVectorizer(c.maxFeatures).FitTransform(questions)
	labels := NewDBSCAN(c.epsilon, c.minSamples).Fit(vectors)

	clusters := 0
	for _, l := range labels {
		if l+1 > clusters {
			clusters = l + 1
		}
	}
	logger.Info("Questions clustered",
		zap.Int("questions", len(questions)),
		zap.Int("clusters", clusters),
	)

	return labels
}
