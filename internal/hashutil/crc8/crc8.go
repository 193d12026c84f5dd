// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crc8 implements the CRC-8 checksum used by FLAC frame headers.
package crc8

// Size of a CRC-8 checksum in bytes.
const Size = 1

// ATM is the polynomial FLAC uses for frame header checksums: x^8+x^2+x+1.
const ATM = 0x07

// Table is a 256-word table representing the polynomial for efficient
// processing.
type Table [256]uint8

// ATMTable is the table for the ATM polynomial.
var ATMTable = makeTable(ATM)

func makeTable(poly uint8) *Table {
	table := new(Table)
	for i := range table {
		crc := uint8(i)
		for range 8 {
			if crc&0x80 != 0 {
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
func Update(crc uint8, table *Table, p []byte) uint8 {
	for _, v := range p {
		crc = table[crc^v]
	}
	return crc
}

// Checksum returns the CRC-8 checksum of data, using the polynomial
// represented by table.
func Checksum(data []byte, table *Table) uint8 {
	return Update(0, table, data)
}
