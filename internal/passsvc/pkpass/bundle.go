package pkpass

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
)

const ContentType = "application/vnd.apple.pkpass"

// Bundle is the unsigned content of one pass. Each materialization builds
// its own bundle; nothing is shared with other requests.
type Bundle struct {
	files map[string][]byte
}

func (b *Bundle) File(name string) ([]byte, bool) {
	data, ok := b.files[name]
	return data, ok
}

func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manifest lists the SHA-1 of every file, as wallet clients expect.
func (b *Bundle) Manifest() ([]byte, error) {
	sums := make(map[string]string, len(b.files))
	for name, data := range b.files {
		sum := sha1.Sum(data)
		sums[name] = hex.EncodeToString(sum[:])
	}
	return json.Marshal(sums)
}

// Archive zips the bundle together with its manifest and signature.
func (b *Bundle) Archive(manifest, signature []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Unix(0, 0).UTC(),
		})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for _, name := range b.Names() {
		if err := write(name, b.files[name]); err != nil {
			return nil, err
		}
	}
	if err := write(ManifestFile, manifest); err != nil {
		return nil, err
	}
	if err := write(SignatureFile, signature); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
