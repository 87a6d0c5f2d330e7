package blobraster

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/hupe1980/rastercache/internal/compress"
	"github.com/hupe1980/rastercache/raster"
)

// ManifestName is the blob holding the raster description.
const ManifestName = "raster.json"

const formatVersion = 1

// Band describes the block grid of one band.
type Band struct {
	BlocksX   int `json:"blocks_x"`
	BlocksY   int `json:"blocks_y"`
	BlockSize int `json:"block_size"`
}

// Spec describes a raster to create.
type Spec struct {
	Bands []Band `json:"bands"`
	// Compression is "none" (default), "lz4" or "zstd".
	Compression string `json:"compression,omitempty"`
}

func (s Spec) validate() (compress.Codec, error) {
	if len(s.Bands) == 0 {
		return 0, fmt.Errorf("%w: raster has no bands", raster.ErrConfiguration)
	}
	for i, b := range s.Bands {
		if b.BlocksX <= 0 || b.BlocksY <= 0 || b.BlockSize <= 0 {
			return 0, fmt.Errorf("%w: band %d: %dx%d blocks of %d bytes",
				raster.ErrConfiguration, i, b.BlocksX, b.BlocksY, b.BlockSize)
		}
	}
	codec, err := compress.ParseCodec(s.Compression)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", raster.ErrConfiguration, err)
	}
	return codec, nil
}

type manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Spec
}

func encodeManifest(s Spec) ([]byte, error) {
	return json.MarshalIndent(manifest{
		Version:   formatVersion,
		CreatedAt: time.Now().UTC(),
		Spec:      s,
	}, "", "  ")
}

func decodeManifest(data []byte) (Spec, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Spec{}, fmt.Errorf("blobraster: decode manifest: %w", err)
	}
	if m.Version != formatVersion {
		return Spec{}, fmt.Errorf("blobraster: unsupported manifest version %d", m.Version)
	}
	return m.Spec, nil
}
