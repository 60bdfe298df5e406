package store

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

var blockMagic = [4]byte{'P', 'B', 'K', '1'}

const (
	blockVersion    = 1
	blockHeaderSize = 24
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// encodeBlock serializes rows into a self-describing block.
//
// Layout: magic[4] version[1] compression[1] reserved[2]
// rowCount[4] colCount[4] uncompressedSize[4] compressedSize[4] payload.
// compressedSize == 0 means the payload is stored raw; incompressible
// payloads fall back to raw regardless of the requested algorithm.
func encodeBlock(rows [][]float64, cols int, comp Compression) ([]byte, error) {
	raw := make([]byte, 0, len(rows)*cols*8)
	for _, row := range rows {
		for _, v := range row {
			raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
		}
	}

	var compressed []byte
	switch comp {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(raw, nil)
		putZstdEncoder(enc)
	}

	// Store raw when compression does not pay for itself.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(raw))*0.9 {
		compressed = nil
	}

	payload := raw
	compressedSize := 0
	if compressed != nil {
		payload = compressed
		compressedSize = len(compressed)
	}

	out := make([]byte, blockHeaderSize+len(payload))
	copy(out[0:4], blockMagic[:])
	out[4] = blockVersion
	out[5] = byte(comp)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(rows)))
	binary.LittleEndian.PutUint32(out[12:], uint32(cols))
	binary.LittleEndian.PutUint32(out[16:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[20:], uint32(compressedSize))
	copy(out[blockHeaderSize:], payload)
	return out, nil
}

// decodeBlock parses a block and returns its rows.
func decodeBlock(data []byte) ([][]float64, error) {
	if len(data) < blockHeaderSize {
		return nil, errors.New("store: block too small for header")
	}
	if [4]byte(data[0:4]) != blockMagic {
		return nil, errors.New("store: bad block magic")
	}
	if data[4] != blockVersion {
		return nil, errors.New("store: unsupported block version")
	}

	comp := Compression(data[5])
	rowCount := binary.LittleEndian.Uint32(data[8:])
	colCount := binary.LittleEndian.Uint32(data[12:])
	uncompressedSize := binary.LittleEndian.Uint32(data[16:])
	compressedSize := binary.LittleEndian.Uint32(data[20:])

	if uint64(rowCount)*uint64(colCount)*8 != uint64(uncompressedSize) {
		return nil, errors.New("store: block size does not match row geometry")
	}

	var raw []byte
	if compressedSize == 0 {
		if uint32(len(data)-blockHeaderSize) < uncompressedSize {
			return nil, errors.New("store: truncated block")
		}
		raw = data[blockHeaderSize : blockHeaderSize+int(uncompressedSize)]
	} else {
		if uint32(len(data)-blockHeaderSize) < compressedSize {
			return nil, errors.New("store: truncated compressed block")
		}
		payload := data[blockHeaderSize : blockHeaderSize+int(compressedSize)]

		switch comp {
		case CompressionLZ4:
			buf := make([]byte, uncompressedSize)
			n, err := lz4.UncompressBlock(payload, buf)
			if err != nil {
				return nil, err
			}
			if uint32(n) != uncompressedSize {
				return nil, errors.New("store: decompressed size mismatch")
			}
			raw = buf
		case CompressionZSTD:
			dec := getZstdDecoder()
			decoded, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
			putZstdDecoder(dec)
			if err != nil {
				return nil, err
			}
			if uint32(len(decoded)) != uncompressedSize {
				return nil, errors.New("store: decompressed size mismatch")
			}
			raw = decoded
		default:
			return nil, errors.New("store: unknown block compression")
		}
	}

	rows := make([][]float64, rowCount)
	off := 0
	for i := range rows {
		row := make([]float64, colCount)
		for j := range row {
			row[j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
			off += 8
		}
		rows[i] = row
	}
	return rows, nil
}
