package ml

import (
	"math"
	"time"
)

// Bundle pairs the fitted classifier, regressor and encoders under a single
// version tag. A bundle is immutable after load; retraining produces a new
// bundle that replaces the old one wholesale.
type Bundle struct {
	Version    string              `json:"version"`
	TrainedAt  time.Time           `json:"trained_at"`
	Classifier *LogisticClassifier `json:"classifier"`
	Regressor  *LinearRegressor    `json:"regressor"`
	Encoders   *EncoderSet         `json:"encoders"`
}

// EvaluationMetrics summarizes held-out performance of both model heads.
type EvaluationMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1_score"`
	MAE          float64 `json:"mae"`
	R2           float64 `json:"r2_score"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

// EvaluateClassifier computes accuracy, precision, recall and F1 for the
// classifier on a held-out set.
func EvaluateClassifier(c *LogisticClassifier, X [][]float64, y []float64) (accuracy, precision, recall, f1 float64) {
	var tp, tn, fp, fn float64
	for i, row := range X {
		pred := c.Predict(row)
		switch {
		case pred == 1 && y[i] == 1:
			tp++
		case pred == 1 && y[i] == 0:
			fp++
		case pred == 0 && y[i] == 1:
			fn++
		default:
			tn++
		}
	}
	total := tp + tn + fp + fn
	if total > 0 {
		accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return accuracy, precision, recall, f1
}

// EvaluateRegressor computes mean absolute error and R² for the regressor
// on a held-out set.
func EvaluateRegressor(r *LinearRegressor, X [][]float64, y []float64) (mae, r2 float64) {
	n := float64(len(X))
	if n == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= n

	var absSum, ssRes, ssTot float64
	for i, row := range X {
		pred := r.Predict(row)
		absSum += math.Abs(pred - y[i])
		ssRes += (pred - y[i]) * (pred - y[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	mae = absSum / n
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return mae, r2
}
