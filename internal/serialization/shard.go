package serialization

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Shard is one learner's private data: a feature matrix and its labels.
type Shard struct {
	Images   [][]float32
	Labels   []uint8
	Metadata map[string]string
}

// Len returns the number of samples.
func (s *Shard) Len() int { return len(s.Images) }

// Features returns the sample width, or 0 for an empty shard.
func (s *Shard) Features() int {
	if len(s.Images) == 0 {
		return 0
	}
	return len(s.Images[0])
}

// Tensors encodes the shard as images and labels tensors.
func (s *Shard) Tensors() ([]RawTensor, error) {
	if len(s.Images) != len(s.Labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrShapeMismatch, len(s.Images), len(s.Labels))
	}
	n, d := s.Len(), s.Features()

	images := make([]byte, 0, n*d*4)
	word := make([]byte, 4)
	for i, row := range s.Images {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), d)
		}
		for _, v := range row {
			binary.LittleEndian.PutUint32(word, math.Float32bits(v))
			images = append(images, word...)
		}
	}

	labels := make([]byte, n)
	copy(labels, s.Labels)

	return []RawTensor{
		{Name: ImagesTensor, DType: DTypeF32, Shape: []int64{int64(n), int64(d)}, Data: images},
		{Name: LabelsTensor, DType: DTypeU8, Shape: []int64{int64(n)}, Data: labels},
	}, nil
}

// ShardPath returns the shard file location inside dir.
func ShardPath(dir string) string {
	return filepath.Join(dir, ShardFileName)
}

// ResetDir removes dir if it exists and recreates it empty.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: shared dataset directory.
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// CheckDisjoint returns ErrOverlappingDirs when a and b resolve to the same
// directory or one contains the other, so that resetting either cannot
// remove the other's contents. Symlinks are not followed.
func CheckDisjoint(a, b string) error {
	absA, err := filepath.Abs(a)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", b, err)
	}
	if within(absA, absB) || within(absB, absA) {
		return fmt.Errorf("%w: %s and %s", ErrOverlappingDirs, a, b)
	}
	return nil
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// WriteShard writes s into dir, which must exist. Extra metadata is merged
// with the standard keys.
func WriteShard(dir string, s *Shard, extra map[string]string) error {
	tensors, err := s.Tensors()
	if err != nil {
		return err
	}

	meta := map[string]string{
		MetaFormat:    FormatShardV1,
		MetaCreatedAt: time.Now().UTC().Format(time.RFC3339),
		MetaSamples:   strconv.Itoa(s.Len()),
		MetaFeatures:  strconv.Itoa(s.Features()),
	}
	for k, v := range s.Metadata {
		meta[k] = v
	}
	for k, v := range extra {
		meta[k] = v
	}

	if err := WriteTensorsFile(ShardPath(dir), tensors, meta); err != nil {
		return fmt.Errorf("write shard %s: %w", dir, err)
	}
	return nil
}

// ReadShard loads and fully validates the shard in dir.
func ReadShard(dir string) (*Shard, error) {
	return ReadShardLevel(dir, ValidationStrict)
}

// ReadShardLevel loads the shard in dir with the given validation level.
func ReadShardLevel(dir string, level ValidationLevel) (*Shard, error) {
	r, err := NewShardReader(ShardPath(dir), level)
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", dir, err)
	}
	s, err := decodeShard(r)
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", dir, err)
	}
	return s, nil
}

// decodeShard rebuilds a Shard from its tensors.
func decodeShard(r *ShardReader) (*Shard, error) {
	imgMeta, imgData, err := r.TensorData(ImagesTensor)
	if err != nil {
		return nil, err
	}
	lblMeta, lblData, err := r.TensorData(LabelsTensor)
	if err != nil {
		return nil, err
	}
	if imgMeta.DType != DTypeF32 || len(imgMeta.Shape) != 2 {
		return nil, &ValidationError{Type: "shape_mismatch", Tensor: ImagesTensor, Details: "want F32 [n, d]"}
	}
	if lblMeta.DType != DTypeU8 || len(lblMeta.Shape) != 1 {
		return nil, &ValidationError{Type: "shape_mismatch", Tensor: LabelsTensor, Details: "want U8 [n]"}
	}
	n64, d64 := imgMeta.Shape[0], imgMeta.Shape[1]
	if lblMeta.Shape[0] != n64 {
		return nil, &ValidationError{
			Type:    "shape_mismatch",
			Tensor:  ImagesTensor,
			Tensor2: LabelsTensor,
			Details: fmt.Sprintf("%d images, %d labels", n64, lblMeta.Shape[0]),
		}
	}
	// Bound both dims by the payload before multiplying; headers read at
	// ValidationNone have not been shape-checked.
	if n64 < 0 || d64 < 0 || n64 != int64(len(lblData)) ||
		(d64 > 0 && n64 > int64(len(imgData)/4)/d64) {
		return nil, &ValidationError{
			Type:    "shape_mismatch",
			Tensor:  ImagesTensor,
			Details: fmt.Sprintf("shape %v does not fit %d data bytes", imgMeta.Shape, len(imgData)),
		}
	}
	n, d := int(n64), int(d64)
	if len(imgData) != n*d*4 {
		return nil, &ValidationError{Type: "shape_mismatch", Tensor: ImagesTensor, Details: "data length does not match shape"}
	}

	s := &Shard{
		Images:   make([][]float32, n),
		Labels:   make([]uint8, n),
		Metadata: r.Metadata(),
	}
	backing := make([]float32, n*d)
	for k := range backing {
		backing[k] = math.Float32frombits(binary.LittleEndian.Uint32(imgData[k*4:]))
	}
	for i := range s.Images {
		s.Images[i] = backing[i*d : (i+1)*d : (i+1)*d]
	}
	copy(s.Labels, lblData)
	return s, nil
}
