// Package network - транспортная граница сервера: кадры батчей, слушатели
// RakNet и KCP, сессии клиентов и обработчики стартовых пакетов.
package network

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"

	"github.com/annel0/bedrock-server/internal/protocol/packet"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

// BatchHeader - первый байт каждого игрового батча.
const BatchHeader byte = 0xFE

// MaxBatchSize ограничивает размер батча до и после распаковки.
const MaxBatchSize = 16 << 20

// Байт алгоритма после заголовка, когда сжатие согласовано.
const (
	compressionIDFlate  byte = 0x00
	compressionIDSnappy byte = 0x01
	compressionIDNone   byte = 0xFF
)

var (
	// ErrInvalidBatchHeader - батч не начинается с 0xFE.
	ErrInvalidBatchHeader = errors.New("network: invalid batch header")
	// ErrUnknownCompression - неизвестный байт алгоритма сжатия.
	ErrUnknownCompression = errors.New("network: unknown compression algorithm")
	// ErrBatchTooLarge - батч превышает MaxBatchSize.
	ErrBatchTooLarge = errors.New("network: batch too large")
)

// Compression - согласованные параметры сжатия батчей. До отправки
// NetworkSettings Enabled=false и батчи идут без байта алгоритма.
type Compression struct {
	Enabled   bool
	Algorithm uint16
	// Threshold - минимальный размер несжатых данных для сжатия.
	Threshold int
}

// EncodeBatch упаковывает payload пакетов в один батч.
func EncodeBatch(payloads [][]byte, comp Compression) ([]byte, error) {
	c := wire.NewWriter(64)
	for _, p := range payloads {
		c.WriteByteSlice(p)
	}
	raw := c.Bytes()

	out := make([]byte, 0, len(raw)+2)
	out = append(out, BatchHeader)
	if !comp.Enabled {
		return append(out, raw...), nil
	}
	if comp.Algorithm == packet.CompressionNone || len(raw) < comp.Threshold {
		out = append(out, compressionIDNone)
		return append(out, raw...), nil
	}

	switch comp.Algorithm {
	case packet.CompressionFlate:
		buf := bytes.NewBuffer(append(out, compressionIDFlate))
		w, err := flate.NewWriter(buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания flate: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("ошибка сжатия батча: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("ошибка сжатия батча: %w", err)
		}
		return buf.Bytes(), nil
	case packet.CompressionSnappy:
		out = append(out, compressionIDSnappy)
		return append(out, snappy.Encode(nil, raw)...), nil
	}
	return nil, fmt.Errorf("algorithm %d: %w", comp.Algorithm, ErrUnknownCompression)
}

// DecodeBatch распаковывает батч и делит его на payload отдельных пакетов.
func DecodeBatch(b []byte, comp Compression) ([][]byte, error) {
	if len(b) == 0 || b[0] != BatchHeader {
		return nil, ErrInvalidBatchHeader
	}
	if len(b) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	raw := b[1:]

	if comp.Enabled {
		if len(raw) == 0 {
			return nil, wire.ErrTruncatedBuffer
		}
		var err error
		if raw, err = decompress(raw[0], raw[1:]); err != nil {
			return nil, err
		}
	}

	var payloads [][]byte
	c := wire.NewReader(raw)
	for c.Remaining() > 0 {
		p, err := c.ReadByteSlice()
		if err != nil {
			return nil, fmt.Errorf("пакет %d в батче: %w", len(payloads), err)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func decompress(id byte, data []byte) ([]byte, error) {
	switch id {
	case compressionIDNone:
		return data, nil
	case compressionIDFlate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		out, err := io.ReadAll(io.LimitReader(r, MaxBatchSize+1))
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки flate: %w", err)
		}
		if len(out) > MaxBatchSize {
			return nil, ErrBatchTooLarge
		}
		return out, nil
	case compressionIDSnappy:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки snappy: %w", err)
		}
		if n > MaxBatchSize {
			return nil, ErrBatchTooLarge
		}
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки snappy: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("id 0x%02x: %w", id, ErrUnknownCompression)
}
