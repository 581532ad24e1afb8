package cluster

import "math"

// Noise is the label assigned to points without enough neighbors.
const Noise = -1

// DBSCAN groups vectors by density: a point with at least minSamples
// neighbors (itself included) within epsilon seeds a cluster, which then
// absorbs every density-reachable point. Expansion walks points in index
// order, so label assignment is deterministic for identical input.
type DBSCAN struct {
	epsilon    float64
	minSamples int
}

func NewDBSCAN(epsilon float64, minSamples int) *DBSCAN {
	if epsilon <= 0 {
		epsilon = 0.3
	}
	if minSamples <= 0 {
		minSamples = 2
	}
	return &DBSCAN{epsilon: epsilon, minSamples: minSamples}
}

// Fit returns one label per vector, Noise for unclustered points. Cluster
// labels are consecutive integers starting at 0.
func (d *DBSCAN) Fit(vectors [][]float64) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	visited := make([]bool, n)
	cluster := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := d.regionQuery(vectors, i)
		if len(neighbors) < d.minSamples {
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors...)

		for head := 0; head < len(queue); head++ {
			j := queue[head]
			if !visited[j] {
				visited[j] = true
				jNeighbors := d.regionQuery(vectors, j)
				if len(jNeighbors) >= d.minSamples {
					queue = append(queue, jNeighbors...)
				}
			}
			if labels[j] == Noise {
				labels[j] = cluster
			}
		}

		cluster++
	}

	return labels
}

// regionQuery returns the indices within epsilon of point i, including i.
func (d *DBSCAN) regionQuery(vectors [][]float64, i int) []int {
	var neighbors []int
	for j := range vectors {
		if euclidean(vectors[i], vectors[j]) <= d.epsilon {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
