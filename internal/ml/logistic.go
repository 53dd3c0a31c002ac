package ml

import "math"

// LogisticClassifier is a binary delay classifier fitted by batch gradient
// descent on standardized features. All fields are exported so the fitted
// model serializes as part of the bundle.
type LogisticClassifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
}

// FitLogistic trains a classifier on X (rows of FeatureCount width) against
// binary labels y.
func FitLogistic(X [][]float64, y []float64, learningRate float64, epochs int) *LogisticClassifier {
	n := len(X)
	if n == 0 {
		return &LogisticClassifier{}
	}
	d := len(X[0])
	means, stds := columnStats(X)
	Z := standardize(X, means, stds)

	c := &LogisticClassifier{
		Weights: make([]float64, d),
		Means:   means,
		Stds:    stds,
	}
	grad := make([]float64, d)
	for epoch := 0; epoch < epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0
		for i, row := range Z {
			p := sigmoid(dot(c.Weights, row) + c.Bias)
			err := p - y[i]
			for j, x := range row {
				grad[j] += err * x
			}
			biasGrad += err
		}
		scale := learningRate / float64(n)
		for j := range c.Weights {
			c.Weights[j] -= scale * grad[j]
		}
		c.Bias -= scale * biasGrad
	}
	return c
}

// PredictProba returns the delay probability for a single feature vector.
func (c *LogisticClassifier) PredictProba(x []float64) float64 {
	if len(c.Weights) == 0 {
		return 0
	}
	z := standardizeRow(x, c.Means, c.Stds)
	return sigmoid(dot(c.Weights, z) + c.Bias)
}

// Predict returns the 0/1 label at the 0.5 decision threshold.
func (c *LogisticClassifier) Predict(x []float64) float64 {
	if c.PredictProba(x) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func columnStats(X [][]float64) (means, stds []float64) {
	n := float64(len(X))
	d := len(X[0])
	means = make([]float64, d)
	stds = make([]float64, d)
	for _, row := range X {
		for j, x := range row {
			means[j] += x
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range X {
		for j, x := range row {
			diff := x - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func standardize(X [][]float64, means, stds []float64) [][]float64 {
	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = standardizeRow(row, means, stds)
	}
	return Z
}

func standardizeRow(x, means, stds []float64) []float64 {
	z := make([]float64, len(x))
	for j := range x {
		if j < len(means) && j < len(stds) {
			z[j] = (x[j] - means[j]) / stds[j]
		} else {
			z[j] = x[j]
		}
	}
	return z
}
