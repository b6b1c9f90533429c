// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package encoding holds the bit-field and number notation helpers shared by
// the machine core, the loaders and the command line front-end.
package encoding

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lassandro/lc3vm/pkg/translate"
)

var f = translate.From

var ErrInvalidHex = errors.New(f("invalid hex string"))

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i != 1 || s[0] != '0' {
		return 0, errors.Wrapf(ErrInvalidHex, "%q", s)
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, errors.Wrapf(err, "%q", s)
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, errors.Wrapf(err, "%q", s)
	}

	return int16(result), nil
}

// Decodes either notation, trying hex first: 0x3000, x3000, #12288, 12288.
// Unsigned decimals cover the whole address space (#49152); a leading minus
// takes the two's-complement form (#-1 is xFFFF).
func DecodeWord(s string) (uint16, error) {
	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	if strings.HasPrefix(strings.TrimPrefix(s, "#"), "-") {
		value, err := DecodeInt(s)
		return uint16(value), err
	}

	result, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 16)

	if err != nil {
		return 0, errors.Wrapf(err, "%q", s)
	}

	return uint16(result), nil
}

// SignExtend widens a two's-complement field of bitcount bits to 16 bits.
// The field must already be isolated, with every bit above bitcount-1 clear.
func SignExtend(value uint16, bitcount uint16) uint16 {
	if (value>>(bitcount-1))&0x1 == 1 {
		value |= (0xFFFF << bitcount)
	}

	return value
}

// ZeroExtend keeps the low bitcount bits of value and clears the rest.
func ZeroExtend(value uint16, bitcount uint16) uint16 {
	if bitcount >= 16 {
		return value
	}

	return value & ^(0xFFFF << bitcount)
}
