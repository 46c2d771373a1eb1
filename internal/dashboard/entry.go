package dashboard

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/verdict/internal/handoff"
	"github.com/ppiankov/verdict/internal/model"
)

// Path is the address of the results view
const Path = "/dashboard"

// MaxImageBytes is the largest image accepted for upload
const MaxImageBytes = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ValidationError is input rejected before anything is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Entry is the submission form. It never talks to the network.
type Entry struct {
	store *handoff.Store
}

// NewEntry creates an entry view that hands images over through store
func NewEntry(store *handoff.Store) *Entry {
	return &Entry{store: store}
}

// SubmitText returns the results-view address for claim
func (e *Entry) SubmitText(claim string) (string, error) {
	if strings.TrimSpace(claim) == "" {
		return "", &ValidationError{Field: "claim", Message: "claim is empty"}
	}
	return ClaimAddress(claim), nil
}

// SubmitImage validates img, parks it in the handoff store and returns the
// results-view address. Invalid input leaves the store untouched.
func (e *Entry) SubmitImage(img *model.ImagePayload) (string, error) {
	if err := prepareImage(img); err != nil {
		return "", err
	}
	e.store.Set(img)
	return Path, nil
}

// ClaimAddress builds "/dashboard?claim=<encoded>", encoding spaces as %20
func ClaimAddress(claim string) string {
	return Path + "?claim=" + strings.ReplaceAll(url.QueryEscape(claim), "+", "%20")
}

func prepareImage(img *model.ImagePayload) error {
	if img == nil || len(img.Data) == 0 {
		return &ValidationError{Field: "image", Message: "no image data"}
	}
	if len(img.Data) > MaxImageBytes {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("%d bytes exceeds the 5 MiB limit", len(img.Data))}
	}

	if img.ContentType == "" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(img.ContentType, ";")[0]))
	if !allowedImageTypes[ct] {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("unsupported type %q (want JPEG, PNG or GIF)", ct)}
	}
	img.ContentType = ct

	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.Name == "" {
		img.Name = "upload" + extensionFor(ct)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// LoadImage reads an image file into a payload.
// Oversized files are rejected before they are read.
func LoadImage(path string) (*model.ImagePayload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return nil, &ValidationError{Field: "image", Message: path + " is a directory"}
	}
	if info.Size() > MaxImageBytes {
		return nil, &ValidationError{Field: "image", Message: fmt.Sprintf("%d bytes exceeds the 5 MiB limit", info.Size())}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	img := &model.ImagePayload{
		Name: filepath.Base(path),
		Data: data,
	}
	if err := prepareImage(img); err != nil {
		return nil, err
	}
	return img, nil
}
