package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// ManifestName is the file name of the manifest written next to generated
// files.
const ManifestName = "manifest.json"

// Manifest lists generated files with their checksums.
type Manifest struct {
	Files []ManifestEntry `json:"files"`
}

// ManifestEntry describes one generated file.
type ManifestEntry struct {
	Path string `json:"path"`
	Size int    `json:"size"`
	// CRC64 is the CRC64-NVME checksum, hex encoded.
	CRC64 string `json:"crc64nvme"`
	// Fingerprint is the base58 SHA-256 of the contents.
	Fingerprint string `json:"fingerprint"`
}

// NewManifest describes files in the given order.
func NewManifest(files []File) Manifest {
	m := Manifest{Files: make([]ManifestEntry, 0, len(files))}
	for _, f := range files {
		m.Files = append(m.Files, ManifestEntry{
			Path:        f.RelativePath,
			Size:        len(f.Data),
			CRC64:       Checksum(f.Data),
			Fingerprint: Fingerprint(f.Data),
		})
	}
	return m
}

// Marshal renders the manifest as indented JSON with a trailing newline.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Lookup returns the entry for path.
func (m Manifest) Lookup(path string) (ManifestEntry, bool) {
	for _, e := range m.Files {
		if e.Path == path {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// ParseManifest decodes a manifest written by Write.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// Checksum computes the CRC64-NVME checksum of data as 16 hex digits.
func Checksum(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Fingerprint is the base58 encoded SHA-256 of data.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return base58.Encode(hash[:])
}
