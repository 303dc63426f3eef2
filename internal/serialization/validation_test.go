package serialization

import (
	"errors"
	"strings"
	"testing"
)

func region(name string, start, end int64) TensorMeta {
	return TensorMeta{Name: name, DType: DTypeU8, Shape: []int64{end - start}, Offsets: [2]int64{start, end}}
}

// TestValidateTensorOffsets checks overlap, bounds and sign detection.
func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
		wantErr  error
	}{
		{
			name:     "adjacent regions",
			tensors:  []TensorMeta{region("images", 0, 100), region("labels", 100, 150)},
			dataSize: 150,
		},
		{
			name:     "overlap by one byte",
			tensors:  []TensorMeta{region("images", 0, 100), region("labels", 99, 150)},
			dataSize: 150,
			wantType: "offset_overlap",
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "unsorted overlap",
			tensors:  []TensorMeta{region("labels", 50, 120), region("images", 0, 100)},
			dataSize: 150,
			wantType: "offset_overlap",
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "beyond data section",
			tensors:  []TensorMeta{region("images", 0, 100), region("labels", 100, 300)},
			dataSize: 250,
			wantType: "out_of_bounds",
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative offset",
			tensors:  []TensorMeta{{Name: "images", Offsets: [2]int64{-10, 10}}},
			dataSize: 100,
			wantType: "negative_offset",
			wantErr:  ErrNegativeOffset,
		},
		{
			name:     "negative size",
			tensors:  []TensorMeta{{Name: "images", Offsets: [2]int64{10, 0}}},
			dataSize: 100,
			wantType: "negative_offset",
			wantErr:  ErrNegativeOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T (%v)", err, err)
			}
			if validationErr.Type != tt.wantType {
				t.Errorf("Expected %s error, got %s", tt.wantType, validationErr.Type)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected errors.Is(%v), got %v", tt.wantErr, err)
			}
		})
	}
}

// TestValidateTensorOffsets_TooManyTensors bounds the tensor table.
func TestValidateTensorOffsets_TooManyTensors(t *testing.T) {
	tensors := make([]TensorMeta, MaxTensorCount+1)
	for i := range tensors {
		tensors[i] = region("t", int64(i), int64(i+1))
	}

	err := ValidateTensorOffsets(tensors, int64(len(tensors)))
	if !errors.Is(err, ErrTooManyTensors) {
		t.Errorf("Expected ErrTooManyTensors, got %v", err)
	}
}

// TestValidateTensorName rejects path-like and oversized names.
func TestValidateTensorName(t *testing.T) {
	valid := []string{"images", "labels", "fold.0"}
	for _, name := range valid {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("ValidateTensorName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "../images", "a/b", "a\\b", "nul\x00", strings.Repeat("x", MaxTensorNameLen+1)}
	for _, name := range invalid {
		if err := ValidateTensorName(name); !errors.Is(err, ErrInvalidTensor) {
			t.Errorf("ValidateTensorName(%q) = %v, want ErrInvalidTensor", name, err)
		}
	}
}

// TestValidateTensorShape ties shape and dtype to region size.
func TestValidateTensorShape(t *testing.T) {
	ok := TensorMeta{Name: "images", DType: DTypeF32, Shape: []int64{2, 3}, Offsets: [2]int64{0, 24}}
	if err := ValidateTensorShape(ok); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	short := ok
	short.Offsets = [2]int64{0, 20}
	if err := ValidateTensorShape(short); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}

	f16 := ok
	f16.DType = "F16"
	if err := ValidateTensorShape(f16); !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("Expected ErrUnsupportedDType, got %v", err)
	}
}

// TestValidateHeader_None skips all checks.
func TestValidateHeader_None(t *testing.T) {
	h := &Header{Tensors: []TensorMeta{{Name: "../bad", Offsets: [2]int64{-1, 5}}}}
	if err := ValidateHeader(h, 0, ValidationNone); err != nil {
		t.Errorf("Expected no error with ValidationNone, got %v", err)
	}
	if err := ValidateHeader(h, 0, ValidationNormal); err == nil {
		t.Error("Expected error with ValidationNormal")
	}
}
