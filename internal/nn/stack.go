package nn

import (
	"math/rand/v2"

	"github.com/born-ml/javi/internal/tensor"
)

// Encoder embeds source ids, adds positions, runs the encoder layers and normalizes.
type Encoder[B tensor.Backend] struct {
	embed  *Embedding[B]
	pe     *PositionalEncoder[B]
	layers []*EncoderLayer[B]
	norm   *Norm[B]
}

// NewEncoder builds an encoder over a source vocabulary of cfg.SrcVocab tokens.
func NewEncoder[B tensor.Backend](prefix string, cfg Config, mode *Mode, src rand.Source, backend B) (*Encoder[B], error) {
	e := &Encoder[B]{
		embed:  NewEmbedding(join(prefix, "embed.embed"), cfg.SrcVocab, cfg.DModel, src, backend),
		pe:     NewPositionalEncoder[B](cfg.DModel, cfg.MaxSeqLen),
		layers: make([]*EncoderLayer[B], cfg.Layers),
		norm:   NewNorm(join(prefix, "norm"), cfg.DModel, cfg.Eps, backend),
	}
	for i := range e.layers {
		layer, err := NewEncoderLayer(layerPrefix(prefix, i), cfg, mode, src, backend)
		if err != nil {
			return nil, err
		}
		e.layers[i] = layer
	}
	return e, nil
}

// Forward maps src ids [batch, S] to encodings [batch, S, d_model].
func (e *Encoder[B]) Forward(src *tensor.Indices, srcMask *tensor.Mask) *tensor.Tensor[B] {
	x := e.pe.Forward(e.embed.Forward(src))
	for _, layer := range e.layers {
		x = layer.Forward(x, srcMask)
	}
	return e.norm.Forward(x)
}

// Parameters returns embedding, layer and norm parameters.
func (e *Encoder[B]) Parameters() []*Parameter[B] {
	params := e.embed.Parameters()
	for _, layer := range e.layers {
		params = append(params, layer.Parameters()...)
	}
	return append(params, e.norm.Parameters()...)
}

// Decoder embeds target ids, adds positions, runs the decoder layers against the
// encoder output and normalizes.
type Decoder[B tensor.Backend] struct {
	embed  *Embedding[B]
	pe     *PositionalEncoder[B]
	layers []*DecoderLayer[B]
	norm   *Norm[B]
}

// NewDecoder builds a decoder over a target vocabulary of cfg.TrgVocab tokens.
func NewDecoder[B tensor.Backend](prefix string, cfg Config, mode *Mode, src rand.Source, backend B) (*Decoder[B], error) {
	d := &Decoder[B]{
		embed:  NewEmbedding(join(prefix, "embed.embed"), cfg.TrgVocab, cfg.DModel, src, backend),
		pe:     NewPositionalEncoder[B](cfg.DModel, cfg.MaxSeqLen),
		layers: make([]*DecoderLayer[B], cfg.Layers),
		norm:   NewNorm(join(prefix, "norm"), cfg.DModel, cfg.Eps, backend),
	}
	for i := range d.layers {
		layer, err := NewDecoderLayer(layerPrefix(prefix, i), cfg, mode, src, backend)
		if err != nil {
			return nil, err
		}
		d.layers[i] = layer
	}
	return d, nil
}

// Forward maps trg ids [batch, T] to hidden states [batch, T, d_model].
func (d *Decoder[B]) Forward(trg *tensor.Indices, memory *tensor.Tensor[B], srcMask, trgMask *tensor.Mask) *tensor.Tensor[B] {
	x := d.pe.Forward(d.embed.Forward(trg))
	for _, layer := range d.layers {
		x = layer.Forward(x, memory, srcMask, trgMask)
	}
	return d.norm.Forward(x)
}

// Parameters returns embedding, layer and norm parameters.
func (d *Decoder[B]) Parameters() []*Parameter[B] {
	params := d.embed.Parameters()
	for _, layer := range d.layers {
		params = append(params, layer.Parameters()...)
	}
	return append(params, d.norm.Parameters()...)
}
