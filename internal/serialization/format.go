package serialization

// File and tensor names.
const (
	ShardFileName = "images.safetensors"
	ImagesTensor  = "images"
	LabelsTensor  = "labels"
)

// SafeTensors dtype strings used by shards.
const (
	DTypeF32 = "F32"
	DTypeU8  = "U8"
)

// Metadata keys written by WriteShard.
const (
	MetaChecksum  = "checksum"
	MetaCreatedAt = "created_at"
	MetaSamples   = "n_samples"
	MetaFeatures  = "n_features"
	MetaFormat    = "format"
	FormatShardV1 = "colearn-shard/1"
)

// TensorMeta describes a tensor within the data section.
type TensorMeta struct {
	Name    string   `json:"-"`
	DType   string   `json:"dtype"`
	Shape   []int64  `json:"shape"`
	Offsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

// Offset returns the start of the tensor within the data section.
func (t TensorMeta) Offset() int64 { return t.Offsets[0] }

// Size returns the tensor's byte length.
func (t TensorMeta) Size() int64 { return t.Offsets[1] - t.Offsets[0] }

// dtypeSize returns the byte width of a dtype.
func dtypeSize(dtype string) (int64, bool) {
	switch dtype {
	case DTypeF32:
		return 4, true
	case DTypeU8:
		return 1, true
	default:
		return 0, false
	}
}

// Header is the parsed JSON header of a shard file.
type Header struct {
	Tensors  []TensorMeta
	Metadata map[string]string
}

// Tensor returns the named tensor's metadata.
func (h *Header) Tensor(name string) (TensorMeta, bool) {
	for _, t := range h.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return TensorMeta{}, false
}
