package matfile

import (
	"errors"
	"fmt"
)

// Header layout.
const (
	HeaderSize     = 128
	TextSize       = 116
	Version        = 0x0100
	tagSize        = 8
	smallDataBytes = 4
)

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Array classes.
const (
	mxDOUBLE = 6
	mxSINGLE = 7
	mxINT8   = 8
	mxUINT8  = 9
	mxINT16  = 10
	mxUINT16 = 11
	mxINT32  = 12
	mxUINT32 = 13
	mxINT64  = 14
	mxUINT64 = 15
)

// flagComplex marks an array with an imaginary part.
const flagComplex = 0x0800

// Common errors.
var (
	ErrNotMAT           = errors.New("not a level-5 MAT-file")
	ErrTruncated        = errors.New("truncated MAT-file")
	ErrVariableNotFound = errors.New("variable not found")
	ErrUnsupportedClass = errors.New("unsupported array class")
	ErrInvalidName      = errors.New("invalid variable name")
)

// elementSize returns the byte width of one value of a numeric element type.
func elementSize(typ uint32) (int, error) {
	switch typ {
	case miINT8, miUINT8:
		return 1, nil
	case miINT16, miUINT16:
		return 2, nil
	case miINT32, miUINT32, miSINGLE:
		return 4, nil
	case miDOUBLE, miINT64, miUINT64:
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: element type %d", ErrUnsupportedClass, typ)
	}
}

// numericClass reports whether class is a real numeric array class.
func numericClass(class uint32) bool {
	return class >= mxDOUBLE && class <= mxUINT64
}

// pad8 rounds n up to a multiple of 8.
func pad8(n int) int {
	return (n + 7) &^ 7
}
