package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Network Abstraction for neural network.
//
// Layers - simple sequence of layers
// Inference - if true then layers which behave differently during training (dropout) are bypassed
// out - alias to activated output of last layer
// source - network which weights have been copied from (see FrozenCopy)
//
type Network struct {
	Name      string
	Layers    []*Layer
	Inference bool
	out       *gorgonia.Node
	source    *Network
}

// Out Returns reference to output node
func (net *Network) Out() *gorgonia.Node {
	return net.out
}

// Learnables Returns learnables nodes
func (net *Network) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, 2*len(net.Layers))
	for _, l := range net.Layers {
		if l != nil {
			if l.WeightNode != nil {
				learnables = append(learnables, l.WeightNode)
			}
			if l.BiasNode != nil {
				learnables = append(learnables, l.BiasNode)
			}
		}
	}
	return learnables
}

// Fwd Initializates feedforward for provided input
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *Network) Fwd(input *gorgonia.Node, batchSize int) error {
	networkName := "network"
	if net.Name != "" {
		networkName = net.Name
	}
	if len(net.Layers) == 0 {
		return fmt.Errorf("Network must have one layer atleast")
	}
	lastActivatedLayer := input
	for i := range net.Layers {
		if net.Layers[i] == nil {
			return fmt.Errorf("Network's layer #%d is nil", i)
		}
		// Feedforward input through i-th layer
		layerNonActivated, err := net.Layers[i].Fwd(lastActivatedLayer, batchSize, net.Inference)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("[%s, Layer #%d] Can't feedforward input before activation", networkName, i))
		}
		gorgonia.WithName(fmt.Sprintf("%s_%d", networkName, i))(layerNonActivated)
		// Activate i-th layer's output
		layerActivated, err := net.Layers[i].Activate(layerNonActivated)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't apply activation function to non-activated output of %s's layer #%d", networkName, i))
		}
		gorgonia.WithName(fmt.Sprintf("%s_activated_%d", networkName, i))(layerActivated)
		lastActivatedLayer = layerActivated
	}
	net.out = lastActivatedLayer
	return nil
}

// FrozenCopy Creates copy of network structure on provided graph.
//
// Every weight and bias gets its own node (suffixed by the name of the copy) holding a snapshot of source values.
// Nodes of the copy are never returned by Learnables of the source network, so solvers which step source
// learnables never touch them. Call Sync to refresh the snapshot with current source values.
//
// g - graph for the copy. Could be the same graph as source network has or other one.
// name - name of the copy. It's used as suffix for nodes' names
// inference - whether the copy should bypass dropout
//
func (net *Network) FrozenCopy(g *gorgonia.ExprGraph, name string, inference bool) (*Network, error) {
	frozen := &Network{
		Name:      name,
		Layers:    make([]*Layer, len(net.Layers)),
		Inference: inference,
		source:    net,
	}
	for i, l := range net.Layers {
		if l == nil {
			return nil, fmt.Errorf("Layer #%d of network '%s' is nil", i, net.Name)
		}
		frozen.Layers[i] = &Layer{
			Activation:     l.Activation,
			ActivationOpts: l.ActivationOpts,
			Type:           l.Type,
			KernelHeight:   l.KernelHeight,
			KernelWidth:    l.KernelWidth,
			Padding:        l.Padding,
			Stride:         l.Stride,
			Dilation:       l.Dilation,
			ReshapeDims:    l.ReshapeDims,
			Probability:    l.Probability,
		}
		if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
			return nil, fmt.Errorf("Layer #%d of network '%s' has nil weight node", i, net.Name)
		}
		if l.WeightNode != nil {
			node, err := snapshotNode(g, l.WeightNode, name)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("Can't copy weights of layer #%d", i))
			}
			frozen.Layers[i].WeightNode = node
		}
		if l.BiasNode != nil {
			node, err := snapshotNode(g, l.BiasNode, name)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("Can't copy bias of layer #%d", i))
			}
			frozen.Layers[i].BiasNode = node
		}
	}
	return frozen, nil
}

// Sync Copies current values of source network into weights of the frozen copy.
// Does nothing for networks which have not been created by FrozenCopy.
func (net *Network) Sync() error {
	if net.source == nil {
		return nil
	}
	if len(net.source.Layers) != len(net.Layers) {
		return fmt.Errorf("Network '%s' has %d layers, but its source has %d", net.Name, len(net.Layers), len(net.source.Layers))
	}
	for i := range net.Layers {
		if err := copyNodeValue(net.Layers[i].WeightNode, net.source.Layers[i].WeightNode); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't sync weights of layer #%d", i))
		}
		if err := copyNodeValue(net.Layers[i].BiasNode, net.source.Layers[i].BiasNode); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't sync bias of layer #%d", i))
		}
	}
	return nil
}

func snapshotNode(g *gorgonia.ExprGraph, n *gorgonia.Node, suffix string) (*gorgonia.Node, error) {
	if n.Value() == nil {
		return nil, fmt.Errorf("Node '%s' has no value", n.Name())
	}
	dense, ok := n.Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Node '%s' holds %T, but *tensor.Dense is expected", n.Name(), n.Value())
	}
	snapshot := dense.Clone().(*tensor.Dense)
	return gorgonia.NewTensor(g, n.Dtype(), n.Dims(), gorgonia.WithShape(n.Shape()...), gorgonia.WithName(n.Name()+"_"+suffix), gorgonia.WithValue(snapshot)), nil
}

func copyNodeValue(dst, src *gorgonia.Node) error {
	if dst == nil && src == nil {
		return nil
	}
	if dst == nil || src == nil {
		return fmt.Errorf("Only one of nodes is nil")
	}
	dstData, ok := dst.Value().Data().([]float64)
	if !ok {
		return fmt.Errorf("Node '%s' does not hold []float64", dst.Name())
	}
	srcData, ok := src.Value().Data().([]float64)
	if !ok {
		return fmt.Errorf("Node '%s' does not hold []float64", src.Name())
	}
	if len(dstData) != len(srcData) {
		return fmt.Errorf("Node '%s' has %d elements, but node '%s' has %d", dst.Name(), len(dstData), src.Name(), len(srcData))
	}
	copy(dstData, srcData)
	return nil
}
