package domain

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedPhotoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// MaxPhotos is the most photos one message may carry; the human channel
// accepts albums of at most this size.
const MaxPhotos = 10

// Photo is one image attached to a user message. Either Content is set
// (uploaded file) or only URL is (pre-hosted picture).
type Photo struct {
	Filename    string
	ContentType string
	Content     []byte
	URL         string
	// Key identifies the stored object for cleanup.
	Key string
}

// NewUploadedPhoto sniffs content and rejects anything that is not an allowed image.
func NewUploadedPhoto(filename string, content []byte, maxBytes int64) (ret *Photo, err error) {
	if len(content) == 0 {
		err = Invalidf("file %s is empty", filename)
		return
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		err = Invalidf("file too large, max size is %dMB", maxBytes/1024/1024)
		return
	}
	mime := mimetype.Detect(content)
	contentType := strings.SplitN(mime.String(), ";", 2)[0]
	if !allowedPhotoTypes[contentType] {
		err = Invalidf("unsupported file type %s", contentType)
		return
	}
	ret = &Photo{Filename: filename, ContentType: contentType, Content: content}
	return
}

// Ref is what gets persisted as Message.PhotoRef.
func (p *Photo) Ref() string {
	if p == nil {
		return ""
	}
	return p.URL
}

// AttachmentKind tags the Attachment variant.
type AttachmentKind int

const (
	AttachmentNone AttachmentKind = iota
	AttachmentSingle
	AttachmentAlbum
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentNone:
		return "none"
	case AttachmentSingle:
		return "single"
	case AttachmentAlbum:
		return "album"
	}
	return fmt.Sprintf("AttachmentKind(%d)", int(k))
}

// Attachment is None, Single(photo) or Album(photos).
type Attachment struct {
	Kind   AttachmentKind
	Photos []*Photo
}

// NewAttachment picks the variant from the photo count.
func NewAttachment(photos []*Photo) Attachment {
	switch len(photos) {
	case 0:
		return Attachment{Kind: AttachmentNone}
	case 1:
		return Attachment{Kind: AttachmentSingle, Photos: photos}
	default:
		return Attachment{Kind: AttachmentAlbum, Photos: photos}
	}
}

// Refs returns the persisted references of every photo.
func (a Attachment) Refs() []string {
	refs := make([]string, 0, len(a.Photos))
	for _, p := range a.Photos {
		if ref := p.Ref(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// PrimaryRef is the reference stored on the single Message row.
func (a Attachment) PrimaryRef() string {
	refs := a.Refs()
	if len(refs) == 0 {
		return ""
	}
	return strings.Join(refs, ",")
}
