// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crc16 implements the CRC-16 checksum used by FLAC frame footers.
package crc16

// Size of a CRC-16 checksum in bytes.
const Size = 2

// IBM is the polynomial FLAC uses for frame footer checksums: x^16+x^15+x^2+x^0.
const IBM = 0x8005

// Table is a 256-word table representing the polynomial for efficient
// processing.
type Table [256]uint16

// IBMTable is the table for the IBM polynomial.
var IBMTable = makeTable(IBM)

func makeTable(poly uint16) *Table {
	table := new(Table)
	for i := range table {
		crc := uint16(i << 8)
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Update returns the result of adding the bytes in p to crc.
func Update(crc uint16, table *Table, p []byte) uint16 {
	for _, v := range p {
		crc = crc<<8 ^ table[crc>>8^uint16(v)]
	}
	return crc
}

// Checksum returns the CRC-16 checksum of data, using the polynomial
// represented by table.
func Checksum(data []byte, table *Table) uint16 {
	return Update(0, table, data)
}
