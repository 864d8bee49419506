// Package models holds the regression models that turn feature matrices into hourly ride
// predictions.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a regression that can be fit on a design matrix
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// Predictor is a trained model consumed for inference. Features lists the columns the model was
// trained on in the order Predict expects them.
type Predictor interface {
	Predict(x mat.Matrix) ([]float64, error)
	Features() []string
}
