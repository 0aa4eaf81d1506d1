package sceneio

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kestrelgfx/corerender/gapi"
)

// ktx2Identifier is the 12-byte magic sequence every valid KTX2 container
// starts with ('\xAB', "KTX 20", "\xBB\r\n\x1A\n"), per the Khronos KTX2
// container spec.
var ktx2Identifier = []byte{0xAB, 'K', 'T', 'X', ' ', '2', '0', 0xBB, '\r', '\n', 0x1A, '\n'}

// LoadKTX2Texture reads a KTX2 file and hands its raw bytes to
// device.CreateTextureFromKTX2, per spec.md section 6: the host loads the
// container and calls createTextureFromKtx, with container parsing done
// by "an external library" — here, gapi.Device's own backend, since no
// pack repo or ecosystem-adjacent Go library for KTX2 was retrieved (see
// DESIGN.md). sceneio's part is only a fail-fast identifier check, not a
// full container parse, so a non-KTX2 file is rejected before reaching
// the backend rather than producing a backend-specific decode error.
func LoadKTX2Texture(device gapi.Device, path string) (gapi.Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sceneio: reading %s: %w", path, err)
	}
	if err := validateKTX2Identifier(data); err != nil {
		return nil, fmt.Errorf("sceneio: %s: %w", path, err)
	}

	tex, err := device.CreateTextureFromKTX2(data)
	if err != nil {
		return nil, fmt.Errorf("sceneio: creating texture from %s: %w", path, err)
	}
	return tex, nil
}

func validateKTX2Identifier(data []byte) error {
	if len(data) < len(ktx2Identifier) {
		return fmt.Errorf("file too short to be a KTX2 container (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(ktx2Identifier)], ktx2Identifier) {
		return fmt.Errorf("missing KTX2 identifier bytes")
	}
	return nil
}
