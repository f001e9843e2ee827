package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Chunk images
// ---------------------------------------------------------------------------

// ImageMagic identifies a serialized chunk image.
const ImageMagic = "RSLX"

// ImageVersion is the current image format version. Readers reject images
// from a different version instead of guessing.
const ImageVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire structs mirror the in-memory types with stable field keys so the
// runtime representation can evolve without breaking saved images.

type imageEnvelope struct {
	Magic   string     `cbor:"magic"`
	Version int        `cbor:"version"`
	Chunk   imageChunk `cbor:"chunk"`
}

type imageChunk struct {
	Code      []byte          `cbor:"code"`
	Lines     []int           `cbor:"lines"`
	Constants []imageConstant `cbor:"constants"`
	Functions []imageFunction `cbor:"functions,omitempty"`
}

type imageConstant struct {
	Kind   byte    `cbor:"kind"`
	Number float64 `cbor:"number,omitempty"`
	Text   string  `cbor:"text,omitempty"`
}

type imageCapture struct {
	Local bool `cbor:"local"`
	Index byte `cbor:"index"`
}

type imageFunction struct {
	Name     string         `cbor:"name"`
	Arity    int            `cbor:"arity"`
	Captures []imageCapture `cbor:"captures,omitempty"`
	Chunk    imageChunk     `cbor:"chunk"`
}

// MarshalChunk serializes a compiled chunk to a CBOR image.
func MarshalChunk(chunk *Chunk) ([]byte, error) {
	envelope := imageEnvelope{
		Magic:   ImageMagic,
		Version: ImageVersion,
		Chunk:   chunkToImage(chunk),
	}
	return cborEncMode.Marshal(&envelope)
}

// UnmarshalChunk deserializes a CBOR image back into a runnable chunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var envelope imageEnvelope
	if err := cbor.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("vm: unmarshal chunk image: %w", err)
	}
	if envelope.Magic != ImageMagic {
		return nil, fmt.Errorf("vm: not a chunk image (bad magic %q)", envelope.Magic)
	}
	if envelope.Version != ImageVersion {
		return nil, fmt.Errorf("vm: unsupported image version %d (want %d)", envelope.Version, ImageVersion)
	}
	return chunkFromImage(envelope.Chunk)
}

func chunkToImage(chunk *Chunk) imageChunk {
	image := imageChunk{
		Code:  chunk.Code,
		Lines: chunk.Lines,
	}
	for _, constant := range chunk.Constants {
		image.Constants = append(image.Constants, imageConstant{
			Kind:   byte(constant.kind),
			Number: constant.number,
			Text:   constant.text,
		})
	}
	for _, fn := range chunk.Functions {
		wire := imageFunction{
			Name:  fn.Name,
			Arity: fn.Arity,
			Chunk: chunkToImage(fn.Chunk),
		}
		for _, capture := range fn.Captures {
			wire.Captures = append(wire.Captures, imageCapture(capture))
		}
		image.Functions = append(image.Functions, wire)
	}
	return image
}

func chunkFromImage(image imageChunk) (*Chunk, error) {
	if len(image.Code) != len(image.Lines) {
		return nil, fmt.Errorf("vm: corrupt image: %d code bytes but %d line entries",
			len(image.Code), len(image.Lines))
	}
	if len(image.Constants) > MaxConstants {
		return nil, fmt.Errorf("vm: corrupt image: %d constants exceeds pool capacity", len(image.Constants))
	}
	chunk := &Chunk{
		Code:  image.Code,
		Lines: image.Lines,
	}
	for _, constant := range image.Constants {
		switch constantKind(constant.Kind) {
		case constantNumber:
			chunk.Constants = append(chunk.Constants, NumberConstant(constant.Number))
		case constantString:
			chunk.Constants = append(chunk.Constants, StringConstant(constant.Text))
		default:
			return nil, fmt.Errorf("vm: corrupt image: unknown constant kind %d", constant.Kind)
		}
	}
	for _, wire := range image.Functions {
		inner, err := chunkFromImage(wire.Chunk)
		if err != nil {
			return nil, err
		}
		fn := &Function{
			Name:  wire.Name,
			Arity: wire.Arity,
			Chunk: inner,
		}
		for _, capture := range wire.Captures {
			fn.Captures = append(fn.Captures, Capture(capture))
		}
		chunk.Functions = append(chunk.Functions, fn)
	}
	return chunk, nil
}
