package store

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce    sync.Once
	codecDecoder *zstd.Decoder
	codecEncoder *zstd.Encoder
	codecInitErr error
)

func codec() (*zstd.Decoder, *zstd.Encoder, error) {
	codecOnce.Do(func() {
		codecDecoder, codecInitErr = zstd.NewReader(nil)
		if codecInitErr != nil {
			return
		}
		codecEncoder, codecInitErr = zstd.NewWriter(nil)
	})
	return codecDecoder, codecEncoder, codecInitErr
}

// decompressReport inflates a .json.zstd report blob.
func decompressReport(data []byte) ([]byte, error) {
	decoder, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zstd codec: %w", err)
	}

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress report: %w", err)
	}
	return out, nil
}

// compressReport deflates covdir JSON into the stored blob form.
func compressReport(data []byte) ([]byte, error) {
	_, encoder, err := codec()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zstd codec: %w", err)
	}
	return encoder.EncodeAll(data, nil), nil
}
