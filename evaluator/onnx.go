package evaluator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"contrast/game"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names of the exported policy/value network.
const (
	InputName       = "planes"
	MoveOutputName  = "move_logits"
	TileOutputName  = "tile_logits"
	ValueOutputName = "value"
)

const planeSize = game.NumPlanes * game.NumCells

// ONNXPredictor runs an exported network through onnxruntime. Tensors are
// allocated once for a fixed batch size, shorter batches are zero padded.
type ONNXPredictor struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	maxBatch int

	input []float32
	moves []float32
	tiles []float32
	value []float32

	inputs  []ort.Value
	outputs []ort.Value
}

// NewONNXPredictor loads modelPath with the onnxruntime shared library at
// libPath. maxBatch must match the dispatcher's batch size.
func NewONNXPredictor(modelPath, libPath string, maxBatch int) (*ONNXPredictor, error) {
	if maxBatch <= 0 {
		return nil, fmt.Errorf("max batch %d: %w", maxBatch, ErrBatchSize)
	}
	if !ort.IsInitialized() {
		absLibPath, err := filepath.Abs(libPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve onnxruntime library: %w", err)
		}
		ort.SetSharedLibraryPath(absLibPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}

	p := &ONNXPredictor{
		maxBatch: maxBatch,
		input:    make([]float32, maxBatch*planeSize),
		moves:    make([]float32, maxBatch*game.NumMoves),
		tiles:    make([]float32, maxBatch*game.NumTileActions),
		value:    make([]float32, maxBatch),
	}

	batch := int64(maxBatch)
	input, err := ort.NewTensor(ort.NewShape(batch, game.NumPlanes, game.BoardSize, game.BoardSize), p.input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	p.inputs = []ort.Value{input}
	for _, out := range []struct {
		shape ort.Shape
		data  []float32
	}{
		{ort.NewShape(batch, game.NumMoves), p.moves},
		{ort.NewShape(batch, game.NumTileActions), p.tiles},
		{ort.NewShape(batch, 1), p.value},
	} {
		tensor, err := ort.NewTensor(out.shape, out.data)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create output tensor: %w", err)
		}
		p.outputs = append(p.outputs, tensor)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{InputName},
		[]string{MoveOutputName, TileOutputName, ValueOutputName},
		p.inputs, p.outputs, nil)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}
	p.session = session
	log.Info().Msgf("loaded model %s with batch size %d", modelPath, maxBatch)
	return p, nil
}

func (p *ONNXPredictor) Predict(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
	if len(batch) > p.maxBatch {
		return nil, fmt.Errorf("%d positions for batch size %d: %w", len(batch), p.maxBatch, ErrBatchSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range batch {
		copy(p.input[i*planeSize:(i+1)*planeSize], batch[i][:])
	}
	clear(p.input[len(batch)*planeSize:])

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run session: %w", err)
	}

	preds := make([]Prediction, len(batch))
	for i := range preds {
		copy(preds[i].Moves[:], p.moves[i*game.NumMoves:(i+1)*game.NumMoves])
		copy(preds[i].Tiles[:], p.tiles[i*game.NumTileActions:(i+1)*game.NumTileActions])
		preds[i].Value = p.value[i]
	}
	return preds, nil
}

// Close releases the session and its tensors.
func (p *ONNXPredictor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	for _, v := range p.inputs {
		v.Destroy()
	}
	for _, v := range p.outputs {
		v.Destroy()
	}
	p.inputs, p.outputs = nil, nil
}
