package hwpx

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// AssetIDPrefix starts every generated binary item id.
const AssetIDPrefix = "image"

// MediaTypePNG is the only media type the injector embeds.
const MediaTypePNG = "image/png"

// RasterImage is an encoded bitmap with its pixel size.
type RasterImage struct {
	Data     []byte
	WidthPx  int
	HeightPx int
}

// Asset identifies one embedded binary item.
type Asset struct {
	ID        string
	Filename  string
	MediaType string
}

// Path is the archive entry name of the asset.
func (a Asset) Path() string {
	return "BinData/" + a.Filename
}

// NewPNGAsset returns a PNG asset with a fresh random id.
// The id is the first 8 bytes of a version 4 UUID: 16 hex digits carrying
// 60 random bits, as the version nibble is fixed. Collisions are not retried.
func NewPNGAsset() (Asset, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return Asset{}, fmt.Errorf("generate asset id: %w", err)
	}
	id := AssetIDPrefix + strings.ToUpper(hex.EncodeToString(u[:8]))
	return Asset{
		ID:        id,
		Filename:  id + ".png",
		MediaType: MediaTypePNG,
	}, nil
}

// newInstanceID returns a non-negative id for a drawing object.
func newInstanceID() int64 {
	return rand.Int64N(math.MaxInt32)
}
