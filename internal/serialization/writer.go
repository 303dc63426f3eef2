package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// RawTensor is a named tensor ready to be written.
type RawTensor struct {
	Name  string
	DType string
	Shape []int64
	Data  []byte
}

// ShardWriter writes tensors in SafeTensors layout.
type ShardWriter struct {
	file   *os.File
	closed bool
}

// NewShardWriter creates a new shard file writer.
func NewShardWriter(path string) (*ShardWriter, error) {
	//nolint:gosec // G304: output path comes from user configuration.
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &ShardWriter{
		file:   file,
		closed: false,
	}, nil
}

// WriteTensors writes tensors and metadata. Tensors are laid out in
// alphabetical order by name and the data section checksum is added to the
// metadata under MetaChecksum.
func (w *ShardWriter) WriteTensors(tensors []RawTensor, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	sorted := make([]RawTensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]any, len(sorted)+1)
	var data []byte
	var currentOffset int64
	for _, t := range sorted {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		meta := TensorMeta{
			Name:    t.Name,
			DType:   t.DType,
			Shape:   t.Shape,
			Offsets: [2]int64{currentOffset, currentOffset + int64(len(t.Data))},
		}
		if err := ValidateTensorShape(meta); err != nil {
			return err
		}
		header[t.Name] = meta
		currentOffset += int64(len(t.Data))
		data = append(data, t.Data...)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaChecksum] = ChecksumHex(ComputeChecksum(data))
	header["__metadata__"] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	if err := binary.Write(w.file, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Close closes the writer and the underlying file.
func (w *ShardWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTensorsFile writes tensors to path in one call.
func WriteTensorsFile(path string, tensors []RawTensor, metadata map[string]string) (err error) {
	writer, err := NewShardWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return writer.WriteTensors(tensors, metadata)
}
