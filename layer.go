package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Just an alias to Weight+Bias+ActivationFunction combo
//
// For LayerConvTranspose 'Stride' is the upsampling factor: input is upscaled by Stride[0] first and then convolved with stride 1.
// For LayerReshape 'ReshapeDims' does not include batch dimension: it is prepended during feedforward.
//
type Layer struct {
	WeightNode     *gorgonia.Node
	BiasNode       *gorgonia.Node
	Activation     ActivationFunc
	ActivationOpts []Options
	Type           LayerType

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
	ReshapeDims  []int
	Probability  float64
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerConvolutional
	LayerConvTranspose
	LayerReshape
	LayerDropout
)

func (lt LayerType) String() string {
	switch lt {
	case LayerLinear:
		return "linear"
	case LayerFlatten:
		return "flatten"
	case LayerConvolutional:
		return "convolutional"
	case LayerConvTranspose:
		return "conv_transpose"
	case LayerReshape:
		return "reshape"
	case LayerDropout:
		return "dropout"
	default:
		return fmt.Sprintf("layer_type_%d", uint16(lt))
	}
}

var (
	allowedNoWeights = []LayerType{LayerFlatten, LayerReshape, LayerDropout}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// Fwd Feedforward input through layer without applying activation function
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied for bias
// inference - if true then dropout is bypassed
//
func (l *Layer) Fwd(input *gorgonia.Node, batchSize int, inference bool) (*gorgonia.Node, error) {
	if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
		return nil, fmt.Errorf("Layer of type '%s' has nil weight node", l.Type)
	}
	var out *gorgonia.Node
	var err error
	switch l.Type {
	case LayerLinear:
		tOp, err := gorgonia.Transpose(l.WeightNode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't transpose weights")
		}
		out, err = gorgonia.Mul(input, tOp)
		if err != nil {
			return nil, errors.Wrap(err, "Can't multiply input and weights")
		}
	case LayerConvolutional:
		out, err = gorgonia.Conv2d(input, l.WeightNode, tensor.Shape{l.KernelHeight, l.KernelWidth}, l.Padding, l.Stride, l.Dilation)
		if err != nil {
			return nil, errors.Wrap(err, "Can't convolve[2D] input by kernel")
		}
	case LayerConvTranspose:
		if len(l.Stride) == 0 || l.Stride[0] < 1 {
			return nil, fmt.Errorf("Transposed convolution needs positive stride, but got %v", l.Stride)
		}
		upsampled, err := gorgonia.Upsample2D(input, l.Stride[0])
		if err != nil {
			return nil, errors.Wrap(err, "Can't upsample[2D] input")
		}
		out, err = gorgonia.Conv2d(upsampled, l.WeightNode, tensor.Shape{l.KernelHeight, l.KernelWidth}, l.Padding, []int{1, 1}, l.Dilation)
		if err != nil {
			return nil, errors.Wrap(err, "Can't convolve[2D] upsampled input by kernel")
		}
	case LayerFlatten:
		out, err = gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
		if err != nil {
			return nil, errors.Wrap(err, "Can't flatten input")
		}
	case LayerReshape:
		out, err = gorgonia.Reshape(input, append(tensor.Shape{batchSize}, l.ReshapeDims...))
		if err != nil {
			return nil, errors.Wrap(err, "Can't reshape input")
		}
	case LayerDropout:
		if inference || l.Probability <= 0 {
			return input, nil
		}
		out, err = gorgonia.Dropout(input, l.Probability)
		if err != nil {
			return nil, errors.Wrap(err, "Can't apply dropout to input")
		}
	default:
		return nil, fmt.Errorf("Layer type '%d' (uint16) is not handled", l.Type)
	}

	if l.BiasNode == nil {
		return out, nil
	}
	if batchSize < 2 {
		out, err = gorgonia.Add(out, l.BiasNode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't add bias to non-activated output")
		}
		return out, nil
	}
	out, err = gorgonia.BroadcastAdd(out, l.BiasNode, nil, []byte{0})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't add [in broadcast term with batch_size = %d] bias to non-activated output", batchSize))
	}
	return out, nil
}

// Activate Applies activation function of the layer. Nil activation means identity.
func (l *Layer) Activate(input *gorgonia.Node) (*gorgonia.Node, error) {
	if l.Activation == nil {
		return input, nil
	}
	return l.Activation(input, l.ActivationOpts...)
}
