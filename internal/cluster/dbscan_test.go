package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBSCANFit(t *testing.T) {
	t.Run("dense points cluster, sparse points are noise", func(t *testing.T) {
		vectors := [][]float64{
			{0.0, 0.0},
			{0.1, 0.0},
			{0.0, 0.1},
			{5.0, 5.0},
		}
		labels := NewDBSCAN(0.3, 2).Fit(vectors)

		require.Len(t, labels, 4)
		assert.Equal(t, 0, labels[0])
		assert.Equal(t, 0, labels[1])
		assert.Equal(t, 0, labels[2])
		assert.Equal(t, Noise, labels[3])
	})

	t.Run("two separate clusters get consecutive labels", func(t *testing.T) {
		vectors := [][]float64{
			{0.0, 0.0},
			{0.1, 0.0},
			{9.0, 9.0},
			{9.1, 9.0},
		}
		labels := NewDBSCAN(0.3, 2).Fit(vectors)

		assert.Equal(t, []int{0, 0, 1, 1}, labels)
	})

	t.Run("min samples counts the point itself", func(t *testing.T) {
		vectors := [][]float64{
			{0.0, 0.0},
			{0.1, 0.0},
		}
		labels := NewDBSCAN(0.3, 3).Fit(vectors)

		assert.Equal(t, []int{Noise, Noise}, labels)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		vectors := [][]float64{
			{0, 0}, {0.1, 0}, {0.2, 0}, {3, 3}, {3.1, 3}, {7, 7},
		}
		first := NewDBSCAN(0.3, 2).Fit(vectors)
		second := NewDBSCAN(0.3, 2).Fit(vectors)
		assert.Equal(t, first, second)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, NewDBSCAN(0.3, 2).Fit(nil))
	})
}

func TestClustererLabels(t *testing.T) {
	t.Run("similar password questions cluster together", func(t *testing.T) {
		questions := []string{
			"How do I reset my password?",
			"How can I reset password?",
			"What is your refund policy?",
		}
		labels := NewClusterer(0.3, 2, 1000).Labels(questions)

		require.Len(t, labels, 3)
		assert.Equal(t, 0, labels[0])
		assert.Equal(t, 0, labels[1])
		assert.Equal(t, Noise, labels[2])
	})

	t.Run("repeated runs yield identical assignments", func(t *testing.T) {
		questions := []string{
			"printer not working",
			"the printer is not working",
			"email bounces back",
			"my email keeps bouncing",
			"completely unrelated question about parking",
		}
		c := NewClusterer(0.5, 2, 1000)
		assert.Equal(t, c.Labels(questions), c.Labels(questions))
	})

	t.Run("fewer than two questions short-circuits to noise", func(t *testing.T) {
		assert.Equal(t, []int{Noise}, NewClusterer(0.3, 2, 1000).Labels([]string{"only one"}))
		assert.Empty(t, NewClusterer(0.3, 2, 1000).Labels(nil))
	})
}
