package ml

import "math"

// LinearRegressor predicts delay duration in hours, fitted by batch
// gradient descent on standardized features with a standardized target.
type LinearRegressor struct {
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Means      []float64 `json:"means"`
	Stds       []float64 `json:"stds"`
	TargetMean float64   `json:"target_mean"`
	TargetStd  float64   `json:"target_std"`
}

// FitLinear trains a regressor on X against continuous targets y.
func FitLinear(X [][]float64, y []float64, learningRate float64, epochs int) *LinearRegressor {
	n := len(X)
	if n == 0 {
		return &LinearRegressor{}
	}
	d := len(X[0])
	means, stds := columnStats(X)
	Z := standardize(X, means, stds)

	tMean, tStd := scalarStats(y)
	ty := make([]float64, n)
	for i, v := range y {
		ty[i] = (v - tMean) / tStd
	}

	r := &LinearRegressor{
		Weights:    make([]float64, d),
		Means:      means,
		Stds:       stds,
		TargetMean: tMean,
		TargetStd:  tStd,
	}
	grad := make([]float64, d)
	for epoch := 0; epoch < epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0
		for i, row := range Z {
			pred := dot(r.Weights, row) + r.Bias
			err := pred - ty[i]
			for j, x := range row {
				grad[j] += err * x
			}
			biasGrad += err
		}
		scale := learningRate / float64(n)
		for j := range r.Weights {
			r.Weights[j] -= scale * grad[j]
		}
		r.Bias -= scale * biasGrad
	}
	return r
}

// Predict returns the predicted target in original units (hours).
func (r *LinearRegressor) Predict(x []float64) float64 {
	if len(r.Weights) == 0 {
		return 0
	}
	z := standardizeRow(x, r.Means, r.Stds)
	return (dot(r.Weights, z)+r.Bias)*r.TargetStd + r.TargetMean
}

func scalarStats(y []float64) (mean, std float64) {
	n := float64(len(y))
	if n == 0 {
		return 0, 1
	}
	for _, v := range y {
		mean += v
	}
	mean /= n
	for _, v := range y {
		diff := v - mean
		std += diff * diff
	}
	std = math.Sqrt(std / n)
	if std == 0 {
		std = 1
	}
	return mean, std
}
