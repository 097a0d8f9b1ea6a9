package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// BCEEpsilon Keeps log() away from zero when sigmoid output saturates
const BCEEpsilon = 1e-7

// BinaryCrossEntropyLoss See ref. https://en.wikipedia.org/wiki/Cross_entropy#Cross-entropy_loss_function_and_logistic_regression
//
//	loss = -(B * log(A + eps) + (1 - B) * log(1 - A + eps))
//
// a - predicted probabilities
// b - target labels (0 or 1)
// Default reduction is 'mean'
func BinaryCrossEntropyLoss(a, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	oneScalar := gorgonia.NewScalar(a.Graph(), a.Dtype(), gorgonia.WithValue(1.0), gorgonia.WithName(a.Name()+"_bce_one"))
	epsScalar := gorgonia.NewScalar(a.Graph(), a.Dtype(), gorgonia.WithValue(BCEEpsilon), gorgonia.WithName(a.Name()+"_bce_eps"))

	// Main part: B * log(A)
	shiftedMain, err := gorgonia.Add(a, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (A+eps)")
	}
	logMain, err := gorgonia.Log(shiftedMain)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(A)")
	}
	hprodMain, err := gorgonia.HadamardProd(logMain, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x.*B)")
	}

	// Binary part: (1-B) * log(1-A)
	invA, err := gorgonia.Sub(oneScalar, a)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-A)")
	}
	shiftedBin, err := gorgonia.Add(invA, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-A+eps)")
	}
	logBin, err := gorgonia.Log(shiftedBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(1-A)")
	}
	invB, err := gorgonia.Sub(oneScalar, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-B)")
	}
	hprodBin, err := gorgonia.HadamardProd(logBin, invB)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x.*(1-B))")
	}

	sum, err := gorgonia.Add(hprodMain, hprodBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+y)")
	}
	neg, err := gorgonia.Neg(sum)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}

	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(neg)
	case LossReductionMean:
		return gorgonia.Mean(neg)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}
