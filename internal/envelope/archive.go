package envelope

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"typedcode/internal/hashutil"
)

// archiveEpoch is the fixed modification time written to every zip entry so
// that two exports of the same envelope produce byte-identical archives.
var archiveEpoch = time.Unix(0, 0).UTC()

const (
	archiveEnvelopeName = "envelope.json"
	archiveManifestName = "manifest.json"
	screenshotPrefix    = "screenshots/"
)

// BuildArchive packages an envelope document (single-file or multi-file,
// caller's choice) together with its captured screenshots into a
// deterministic DEFLATE zip: a manifest.json recording each screenshot's
// sha256 lets OpenArchive detect truncation or substitution on import.
func BuildArchive(envelopeJSON []byte, screenshots map[string][]byte) ([]byte, error) {
	manifest := make(map[string]string, len(screenshots))
	names := make([]string, 0, len(screenshots))
	for name := range screenshots {
		names = append(names, name)
		manifest[name] = hashutil.SHA256Hex(screenshots[name])
	}
	sort.Strings(names)

	manifestJSON, err := hashutil.DetJSON(manifest)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode archive manifest: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZipEntry(zw, archiveEnvelopeName, envelopeJSON); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, archiveManifestName, manifestJSON); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := writeZipEntry(zw, screenshotPrefix+name, screenshots[name]); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("envelope: close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	hdr.SetModTime(archiveEpoch)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("envelope: create archive entry %s: %w", name, err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("envelope: write archive entry %s: %w", name, err)
	}
	return nil
}

// OpenArchive extracts and verifies an archive built by BuildArchive: every
// screenshot named in manifest.json must be present and hash-match, or
// import fails with ScreenshotMissingError / ScreenshotHashMismatchError.
func OpenArchive(data []byte) (envelopeJSON []byte, screenshots map[string][]byte, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, &MalformedError{Reason: err.Error()}
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("envelope: open archive entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("envelope: read archive entry %s: %w", f.Name, err)
		}
		files[f.Name] = content
	}

	envelopeJSON, ok := files[archiveEnvelopeName]
	if !ok {
		return nil, nil, &MissingFieldError{Field: archiveEnvelopeName}
	}

	manifestRaw, ok := files[archiveManifestName]
	if !ok {
		return nil, nil, &MissingFieldError{Field: archiveManifestName}
	}
	var manifest map[string]string
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nil, nil, &MalformedError{Reason: "manifest.json: " + err.Error()}
	}

	screenshots = make(map[string][]byte, len(manifest))
	for name, wantHash := range manifest {
		content, ok := files[screenshotPrefix+name]
		if !ok {
			return nil, nil, &ScreenshotMissingError{Name: name}
		}
		if hashutil.SHA256Hex(content) != wantHash {
			return nil, nil, &ScreenshotHashMismatchError{Name: name}
		}
		screenshots[name] = content
	}

	return envelopeJSON, screenshots, nil
}
