package types

import (
	"fmt"
	"strings"
)

// bech32Alphabet is the BIP-173 data character set.
const bech32Alphabet = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const bech32ChecksumLen = 6

// bech32Gen are the generator coefficients for the checksum polymod.
var bech32Gen = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

// Bech32Encode encodes data bytes under a human-readable prefix.
func Bech32Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("bech32: empty HRP")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return "", fmt.Errorf("bech32: invalid HRP character %q", c)
		}
	}

	groups, err := regroupBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: regroup bits: %w", err)
	}

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(groups) + bech32ChecksumLen)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, g := range groups {
		sb.WriteByte(bech32Alphabet[g])
	}
	for _, g := range bech32Checksum(hrp, groups) {
		sb.WriteByte(bech32Alphabet[g])
	}
	return sb.String(), nil
}

// Bech32Decode splits a bech32 string into its prefix and data bytes,
// verifying the checksum.
func Bech32Decode(s string) (string, []byte, error) {
	if s == "" {
		return "", nil, fmt.Errorf("bech32: empty string")
	}
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return "", nil, fmt.Errorf("bech32: mixed case")
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, '1')
	if sep < 1 {
		return "", nil, fmt.Errorf("bech32: missing separator")
	}
	hrp, body := s[:sep], s[sep+1:]
	if len(body) < bech32ChecksumLen {
		return "", nil, fmt.Errorf("bech32: too short")
	}

	groups := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		v := strings.IndexByte(bech32Alphabet, body[i])
		if v < 0 {
			return "", nil, fmt.Errorf("bech32: invalid character %q", body[i])
		}
		groups[i] = byte(v)
	}

	if bech32Polymod(append(expandHRP(hrp), groups...)) != 1 {
		return "", nil, fmt.Errorf("bech32: invalid checksum")
	}

	data, err := regroupBits(groups[:len(groups)-bech32ChecksumLen], 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: regroup bits: %w", err)
	}
	return hrp, data, nil
}

func bech32Polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= bech32Gen[i]
			}
		}
	}
	return chk
}

// expandHRP spreads the HRP into the high and low 5-bit halves the
// checksum covers.
func expandHRP(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32Checksum(hrp string, data []byte) []byte {
	values := append(expandHRP(hrp), data...)
	values = append(values, make([]byte, bech32ChecksumLen)...)
	mod := bech32Polymod(values) ^ 1
	out := make([]byte, bech32ChecksumLen)
	for i := range out {
		out[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return out
}

// regroupBits repacks data from fromBits-wide groups into toBits-wide
// groups. pad zero-fills a trailing partial group on encode; on decode
// leftover bits must be zero.
func regroupBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	maxv := uint32(1)<<toBits - 1
	out := make([]byte, 0, (len(data)*int(fromBits)+int(toBits)-1)/int(toBits))

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits)&byte(maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits))&byte(maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, fmt.Errorf("non-zero padding")
	}
	return out, nil
}
