package envelope

import "fmt"

// UnsupportedVersionError is returned when an imported envelope's version
// major component is not one this codec understands.
type UnsupportedVersionError struct {
	Found string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("envelope: unsupported version %q", e.Found)
}

// MalformedError wraps a JSON decode failure or a structurally invalid
// envelope (wrong type for a known field).
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("envelope: malformed: %s", e.Reason)
}

// MissingFieldError is returned when a top-level field this codec requires
// is absent from the decoded document.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("envelope: missing required field %q", e.Field)
}

// UnknownRequiredFieldError is returned when a section of the envelope is
// present but one of ITS required sub-fields is absent: distinct from a
// wholly missing top-level section (MissingFieldError), this is a
// malformed-but-present section.
type UnknownRequiredFieldError struct {
	Path string
}

func (e *UnknownRequiredFieldError) Error() string {
	return fmt.Sprintf("envelope: section present but missing required field %q", e.Path)
}

// ScreenshotMissingError is returned when a screenshot referenced by the
// manifest is absent from the archive.
type ScreenshotMissingError struct {
	Name string
}

func (e *ScreenshotMissingError) Error() string {
	return fmt.Sprintf("envelope: archive missing screenshot %q", e.Name)
}

// ScreenshotHashMismatchError is returned when an archived screenshot's
// content does not hash to the manifest's recorded digest.
type ScreenshotHashMismatchError struct {
	Name string
}

func (e *ScreenshotHashMismatchError) Error() string {
	return fmt.Sprintf("envelope: screenshot %q content hash mismatch", e.Name)
}
