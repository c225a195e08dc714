package vedirect

// TextChecksum returns the byte that brings the modulo-256 sum of block to
// zero. block runs from the leading "\r\n" of the first record up to and
// including the tab after "Checksum".
func TextChecksum(block []byte) byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return -sum
}

// SumBytes returns the modulo-256 sum of data.
func SumBytes(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// EncodeTextFrame renders fields as a TEXT block the way a device sends it,
// closing record and checksum byte included.
func EncodeTextFrame(fields []Field) []byte {
	var out []byte
	for _, f := range fields {
		out = append(out, CR, LF)
		out = append(out, f.Name...)
		out = append(out, TAB)
		out = append(out, f.Value...)
	}
	out = append(out, CR, LF)
	out = append(out, "Checksum"...)
	out = append(out, TAB)
	return append(out, TextChecksum(out))
}
