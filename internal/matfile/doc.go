// Package matfile reads and writes numeric matrices in the MATLAB level-5
// MAT-file format, the container the X-ray feature datasets ship in.
//
// Format Structure:
//
//	[116 bytes: descriptive text]
//	[8 bytes:   subsystem data offset]
//	[2 bytes:   version 0x0100]
//	[2 bytes:   endian indicator "IM" (little) or "MI" (big)]
//	[data elements...]
//
// Each data element is an 8-byte tag (type, byte count) followed by its
// payload padded to 8 bytes, or a 4-byte "small element" tag packing both
// into one word. Variables are miMATRIX elements holding array flags,
// dimensions, a name and the real part in column-major order. Variables may
// be wrapped in zlib-compressed miCOMPRESSED elements.
//
// Only real, two-dimensional numeric arrays are supported. Cells, structs,
// sparse, character and complex arrays are rejected with ErrUnsupportedClass.
package matfile
