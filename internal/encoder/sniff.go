package encoder

import "bytes"

// Sniff identifies the format of encoded bytes from their magic numbers.
// Returns "" when the content is not one of the known output formats.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return JPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WebP
	case isAVIF(data):
		return AVIF
	}
	return ""
}

// isAVIF checks the ISO-BMFF ftyp box for an avif/avis major or compatible brand.
func isAVIF(data []byte) bool {
	if len(data) < 16 || string(data[4:8]) != "ftyp" {
		return false
	}
	boxLen := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if boxLen < 16 || boxLen > len(data) {
		boxLen = len(data)
	}
	// major brand at 8:12, minor version at 12:16, compatible brands after.
	for off := 8; off+4 <= boxLen; off += 4 {
		if off == 12 {
			continue
		}
		switch string(data[off : off+4]) {
		case "avif", "avis":
			return true
		}
	}
	return false
}
