package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("compress save: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress save: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress save: %w", err)
	}
	return out, nil
}
