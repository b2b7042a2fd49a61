package devserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/models"
)

// MaxInlineAttachment caps files kept inline when no upload service is
// configured.
const MaxInlineAttachment = 1 << 20

// AttachmentStore persists a chat attachment and returns where it lives.
type AttachmentStore interface {
	Save(ctx context.Context, bookingID string, file *multipart.FileHeader) (models.Attachment, error)
}

// NewAttachmentStore uploads to Cloudinary when cloudinaryURL is set and
// otherwise embeds files as data URLs.
func NewAttachmentStore(cloudinaryURL string, log *zap.Logger) (AttachmentStore, error) {
	if cloudinaryURL == "" {
		log.Debug("cloudinary not configured, attachments stored inline")
		return inlineAttachments{}, nil
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &cloudinaryAttachments{cld: cld}, nil
}

type cloudinaryAttachments struct {
	cld *cloudinary.Cloudinary
}

func (a *cloudinaryAttachments) Save(ctx context.Context, bookingID string, file *multipart.FileHeader) (models.Attachment, error) {
	f, err := file.Open()
	if err != nil {
		return models.Attachment{}, err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := a.cld.Upload.Upload(ctx, f, uploader.UploadParams{
		Folder:       "skillswap_chat",
		PublicID:     fmt.Sprintf("booking_%s_%d", bookingID, time.Now().UnixNano()),
		ResourceType: "auto",
	})
	if err != nil {
		return models.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	if res.Error.Message != "" {
		return models.Attachment{}, fmt.Errorf("upload attachment: %s", res.Error.Message)
	}
	return models.Attachment{
		URL:         res.SecureURL,
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
	}, nil
}

type inlineAttachments struct{}

var errAttachmentTooLarge = fmt.Errorf("attachment exceeds %d bytes", MaxInlineAttachment)

func (inlineAttachments) Save(_ context.Context, _ string, file *multipart.FileHeader) (models.Attachment, error) {
	if file.Size > MaxInlineAttachment {
		return models.Attachment{}, errAttachmentTooLarge
	}
	f, err := file.Open()
	if err != nil {
		return models.Attachment{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxInlineAttachment+1))
	if err != nil {
		return models.Attachment{}, err
	}
	if len(data) > MaxInlineAttachment {
		return models.Attachment{}, errAttachmentTooLarge
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return models.Attachment{
		URL:         "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Name:        file.Filename,
		ContentType: contentType,
	}, nil
}
