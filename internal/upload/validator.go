package upload

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

var (
	// ErrTooManyFiles is returned once the per-operation file budget is spent.
	ErrTooManyFiles = errors.New("too many files")

	// ErrFileTooLarge is returned for files above the configured size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("file is empty")

	// ErrBadExtension is returned for file extensions outside the allowed set.
	ErrBadExtension = errors.New("unsupported file extension")

	// ErrBadMIMEType is returned when a declared MIME type is outside the allowed set.
	ErrBadMIMEType = errors.New("unsupported mime type")
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".xlsm": true,
}

var allowedMIMETypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
	"application/vnd.ms-excel.sheet.macroEnabled.12":                    true,
	"application/vnd.ms-excel.sheet.macroenabled.12":                    true,
	"application/zip":                                                   true,
	"application/octet-stream":                                          true,
}

var (
	zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// FileMeta describes an uploaded file for validation purposes.
type FileMeta struct {
	Name     string
	Size     int64
	MIMEType string
	Head     []byte
}

// Validator enforces the per-file and per-operation acceptance rules.
type Validator struct {
	MaxFiles     int
	MaxFileBytes int64
}

// NewValidator creates a validator with the given limits.
func NewValidator(maxFiles int, maxFileBytes int64) Validator {
	return Validator{MaxFiles: maxFiles, MaxFileBytes: maxFileBytes}
}

// Validate accepts or rejects one candidate file given how many files were
// already accepted in this operation.
func (v Validator) Validate(meta FileMeta, acceptedCount int) error {
	if acceptedCount >= v.MaxFiles {
		return fmt.Errorf("%w: limit is %d per upload", ErrTooManyFiles, v.MaxFiles)
	}
	if meta.Size <= 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, meta.Name)
	}
	if meta.Size > v.MaxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, meta.Name, meta.Size, v.MaxFileBytes)
	}

	ext := strings.ToLower(filepath.Ext(meta.Name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrBadExtension, ext)
	}

	if meta.MIMEType != "" && !allowedMIMETypes[strings.ToLower(meta.MIMEType)] {
		return fmt.Errorf("%w: %s", ErrBadMIMEType, meta.MIMEType)
	}

	// Soft check only: a signature mismatch is worth a warning, but the parser
	// is the authority on whether the content is readable.
	if len(meta.Head) >= 4 && !hasSpreadsheetSignature(meta.Head) {
		log.Printf("[UPLOAD] %s: leading bytes do not match a known spreadsheet signature", meta.Name)
	}

	return nil
}

func hasSpreadsheetSignature(head []byte) bool {
	if bytes.HasPrefix(head, zipSignature) {
		return true
	}
	if bytes.HasPrefix(head, oleSignature) {
		return true
	}
	return false
}
