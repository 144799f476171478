package vectorstore

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"newsmonitor/internal/core"
)

const projectClusters = 3

// Project fetches the stored embeddings for uris, clusters them with
// k-means (k=3, adapted from the teacher's K-means++ clustering kernel;
// every iteration uses all points, not mini-batches), and reports each
// point's first two dimensions as its plot
// coordinate (spec §4.1 project()).
func (s *PgVectorStore) Project(ctx context.Context, uris []string) (*ClusterProjection, error) {
	vectors, err := s.fetchVectors(ctx, uris)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return &ClusterProjection{}, nil
	}

	k := projectClusters
	if len(vectors) < k {
		k = len(vectors)
	}

	assignments, centroids := runKMeans(vectors, k, 25)

	proj := &ClusterProjection{
		PointCoordinates: make([][2]float64, len(vectors)),
		PointClusters:    assignments,
		Centroids:        centroids,
		ClusterSizes:     make([]int, k),
	}
	for i, v := range vectors {
		proj.PointCoordinates[i] = point2D(v)
		proj.ClusterSizes[assignments[i]]++
	}
	return proj, nil
}

func (s *PgVectorStore) fetchVectors(ctx context.Context, uris []string) ([][]float64, error) {
	query := `SELECT embedding::text FROM article_embeddings WHERE uri = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(uris))
	if err != nil {
		return nil, core.NewError("vectorstore.Project", core.ErrKindVectorErr, err)
	}
	defer rows.Close()

	var vectors [][]float64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, core.NewError("vectorstore.Project", core.ErrKindVectorErr, err)
		}
		vectors = append(vectors, parseVectorLiteral(raw))
	}
	return vectors, rows.Err()
}

func point2D(v []float64) [2]float64 {
	var p [2]float64
	if len(v) > 0 {
		p[0] = v[0]
	}
	if len(v) > 1 {
		p[1] = v[1]
	}
	return p
}

// runKMeans is the generic K-means++ kernel: seed centroids with
// probability proportional to squared distance from existing centroids,
// then alternate assignment/update until stable or maxIter is reached.
func runKMeans(points [][]float64, k, maxIter int) ([]int, [][]float64) {
	centroids := initializeCentroidsKMeansPP(points, k)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c := findNearestCentroid(p, centroids)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		centroids = updateCentroids(points, assignments, k, centroids)
		if !changed && iter > 0 {
			break
		}
	}
	return assignments, centroids
}

func initializeCentroidsKMeansPP(points [][]float64, k int) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rand.Intn(len(points))
	centroids = append(centroids, append([]float64(nil), points[first]...))

	for len(centroids) < k {
		distances := make([]float64, len(points))
		var total float64
		for i, p := range points {
			d := nearestDistanceSquared(p, centroids)
			distances[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with existing centroids; pick
			// arbitrarily to keep k centroids.
			centroids = append(centroids, append([]float64(nil), points[rand.Intn(len(points))]...))
			continue
		}
		target := rand.Float64() * total
		var cum float64
		chosen := len(points) - 1
		for i, d := range distances {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[chosen]...))
	}
	return centroids
}

func nearestDistanceSquared(p []float64, centroids [][]float64) float64 {
	best := math.Inf(1)
	for _, c := range centroids {
		d := cosineDistance(p, c)
		if d < best {
			best = d
		}
	}
	return best * best
}

func findNearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		d := cosineDistance(p, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func updateCentroids(points [][]float64, assignments []int, k int, prev [][]float64) [][]float64 {
	dims := len(points[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, p := range points {
		c := assignments[i]
		counts[c]++
		for d, v := range p {
			sums[c][d] += v
		}
	}

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			// Keep the previous centroid for an empty cluster rather than
			// collapsing it to the zero vector.
			centroids[c] = prev[c]
			continue
		}
		centroids[c] = make([]float64, dims)
		for d := range sums[c] {
			centroids[c][d] = sums[c][d] / float64(counts[c])
		}
	}
	return centroids
}

// cosineDistance is 1 - cosine_similarity, matching the teacher's
// silhouette.go and pgvector's `<=>` operator convention.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - sim
}

// parseVectorLiteral parses pgvector's "[0.1,0.2,...]" text representation.
func parseVectorLiteral(raw string) []float64 {
	trimmed := strings.Trim(raw, "[]")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
