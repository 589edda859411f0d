package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// EncoderLayer is one pre-norm encoder block:
//
//	x = x + dropout(self_attn(norm_1(x)))
//	x = x + dropout(ff(norm_2(x)))
type EncoderLayer[B tensor.Backend] struct {
	norm1    *Norm[B]
	norm2    *Norm[B]
	attn     *MultiHeadAttention[B]
	ff       *FeedForward[B]
	dropout1 *Dropout[B]
	dropout2 *Dropout[B]
}

// NewEncoderLayer builds a layer with parameters under prefix.
func NewEncoderLayer[B tensor.Backend](prefix string, cfg Config, mode *Mode, src rand.Source, backend B) (*EncoderLayer[B], error) {
	attn, err := NewMultiHeadAttention(join(prefix, "attn"), cfg.DModel, cfg.Heads, cfg.Dropout, mode, src, backend)
	if err != nil {
		return nil, err
	}
	return &EncoderLayer[B]{
		norm1:    NewNorm(join(prefix, "norm_1"), cfg.DModel, cfg.Eps, backend),
		norm2:    NewNorm(join(prefix, "norm_2"), cfg.DModel, cfg.Eps, backend),
		attn:     attn,
		ff:       NewFeedForward(join(prefix, "ff"), cfg.DModel, cfg.DFF, cfg.Dropout, mode, src, backend),
		dropout1: NewDropout[B](cfg.Dropout, mode, src),
		dropout2: NewDropout[B](cfg.Dropout, mode, src),
	}, nil
}

// Forward maps x [batch, S, d_model] to the same shape. srcMask is [batch, 1, S].
func (l *EncoderLayer[B]) Forward(x *tensor.Tensor[B], srcMask *tensor.Mask) *tensor.Tensor[B] {
	h := l.norm1.Forward(x)
	x = x.Add(l.dropout1.Forward(l.attn.Forward(h, h, h, srcMask)))
	h = l.norm2.Forward(x)
	return x.Add(l.dropout2.Forward(l.ff.Forward(h)))
}

// Parameters returns the layer parameters in declaration order.
func (l *EncoderLayer[B]) Parameters() []*Parameter[B] {
	return collect[B](l.norm1, l.norm2, l.attn, l.ff)
}

// DecoderLayer is one pre-norm decoder block with masked self-attention followed by
// cross-attention over the encoder output:
//
//	x = x + dropout(self_attn(norm_1(x), trgMask))
//	x = x + dropout(cross_attn(norm_2(x), memory, srcMask))
//	x = x + dropout(ff(norm_3(x)))
type DecoderLayer[B tensor.Backend] struct {
	norm1    *Norm[B]
	norm2    *Norm[B]
	norm3    *Norm[B]
	attn1    *MultiHeadAttention[B]
	attn2    *MultiHeadAttention[B]
	ff       *FeedForward[B]
	dropout1 *Dropout[B]
	dropout2 *Dropout[B]
	dropout3 *Dropout[B]
}

// NewDecoderLayer builds a layer with parameters under prefix.
func NewDecoderLayer[B tensor.Backend](prefix string, cfg Config, mode *Mode, src rand.Source, backend B) (*DecoderLayer[B], error) {
	attn1, err := NewMultiHeadAttention(join(prefix, "attn_1"), cfg.DModel, cfg.Heads, cfg.Dropout, mode, src, backend)
	if err != nil {
		return nil, err
	}
	attn2, err := NewMultiHeadAttention(join(prefix, "attn_2"), cfg.DModel, cfg.Heads, cfg.Dropout, mode, src, backend)
	if err != nil {
		return nil, err
	}
	return &DecoderLayer[B]{
		norm1:    NewNorm(join(prefix, "norm_1"), cfg.DModel, cfg.Eps, backend),
		norm2:    NewNorm(join(prefix, "norm_2"), cfg.DModel, cfg.Eps, backend),
		norm3:    NewNorm(join(prefix, "norm_3"), cfg.DModel, cfg.Eps, backend),
		attn1:    attn1,
		attn2:    attn2,
		ff:       NewFeedForward(join(prefix, "ff"), cfg.DModel, cfg.DFF, cfg.Dropout, mode, src, backend),
		dropout1: NewDropout[B](cfg.Dropout, mode, src),
		dropout2: NewDropout[B](cfg.Dropout, mode, src),
		dropout3: NewDropout[B](cfg.Dropout, mode, src),
	}, nil
}

// Forward maps x [batch, T, d_model] to the same shape given the encoder output
// memory [batch, S, d_model]. srcMask is [batch, 1, S]; trgMask is [batch, T, T].
func (l *DecoderLayer[B]) Forward(x, memory *tensor.Tensor[B], srcMask, trgMask *tensor.Mask) *tensor.Tensor[B] {
	h := l.norm1.Forward(x)
	x = x.Add(l.dropout1.Forward(l.attn1.Forward(h, h, h, trgMask)))
	h = l.norm2.Forward(x)
	x = x.Add(l.dropout2.Forward(l.attn2.Forward(h, memory, memory, srcMask)))
	h = l.norm3.Forward(x)
	return x.Add(l.dropout3.Forward(l.ff.Forward(h)))
}

// Parameters returns the layer parameters in declaration order.
func (l *DecoderLayer[B]) Parameters() []*Parameter[B] {
	return collect[B](l.norm1, l.norm2, l.norm3, l.attn1, l.attn2, l.ff)
}

func layerPrefix(stack string, i int) string {
	return fmt.Sprintf("%s.layers.%d", stack, i)
}
