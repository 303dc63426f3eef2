package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// ShardReader reads shard files. The data section is loaded eagerly and
// validated against the header before any tensor is returned.
type ShardReader struct {
	header Header
	data   []byte
}

// NewShardReader opens and validates the shard file at path.
func NewShardReader(path string, level ValidationLevel) (*ShardReader, error) {
	//nolint:gosec // G304: shard path comes from user configuration.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Read-only, nothing to flush.
	}()

	return ReadShardFrom(file, level)
}

// ReadShardFrom parses a shard from r.
func ReadShardFrom(r io.Reader, level ValidationLevel) (*ShardReader, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header, err := parseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if err := ValidateHeader(header, int64(len(data)), level); err != nil {
		return nil, err
	}
	if level == ValidationStrict {
		stored, ok := header.Metadata[MetaChecksum]
		if !ok {
			return nil, fmt.Errorf("%w: no checksum recorded", ErrChecksumMismatch)
		}
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, err
		}
	}

	return &ShardReader{header: *header, data: data}, nil
}

// parseHeader decodes the JSON header, separating metadata from tensors.
func parseHeader(b []byte) (*Header, error) {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(b, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	h := &Header{Metadata: map[string]string{}}
	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var meta TensorMeta
		if err := json.Unmarshal(value, &meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		meta.Name = key
		h.Tensors = append(h.Tensors, meta)
	}
	sort.Slice(h.Tensors, func(i, j int) bool { return h.Tensors[i].Name < h.Tensors[j].Name })
	return h, nil
}

// Header returns the parsed header.
func (r *ShardReader) Header() *Header { return &r.header }

// Metadata returns the metadata map from the header.
func (r *ShardReader) Metadata() map[string]string { return r.header.Metadata }

// TensorNames returns all tensor names, sorted.
func (r *ShardReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, t := range r.header.Tensors {
		names[i] = t.Name
	}
	return names
}

// TensorData returns the metadata and raw bytes of the named tensor.
// The returned bytes alias the reader's buffer.
func (r *ShardReader) TensorData(name string) (TensorMeta, []byte, error) {
	meta, ok := r.header.Tensor(name)
	if !ok {
		return TensorMeta{}, nil, &ValidationError{Type: "missing_tensor", Tensor: name, Details: "not in header"}
	}
	if meta.Offsets[0] < 0 || meta.Offsets[1] > int64(len(r.data)) || meta.Size() < 0 {
		return TensorMeta{}, nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  name,
			Details: fmt.Sprintf("offsets [%d, %d) outside %d-byte data section", meta.Offsets[0], meta.Offsets[1], len(r.data)),
		}
	}
	return meta, r.data[meta.Offsets[0]:meta.Offsets[1]], nil
}
