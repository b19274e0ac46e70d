// Package registration turns a card image, or pre-normalized fields,
// into a roster entry with its scannable code image.
package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/cloudinary"
	"rollcall/internal/ocr"
	"rollcall/internal/qrcode"
	"rollcall/internal/roster"
)

// Job is the queue payload for async card registration.
type Job struct {
	Image string `json:"image"` // base64 data URL of the card photo
}

// JobType tags registration messages on the shared queue.
const JobType = "registration"

// Uploader hosts images and hands back public URLs. Nil is allowed;
// records then carry no image references.
type Uploader interface {
	UploadBase64(data string) (*cloudinary.UploadResult, error)
	UploadBytes(data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Registrar runs the registration flow: OCR guess, normalization,
// id + code image generation, image hosting, roster append.
type Registrar struct {
	roster   *roster.Store
	ocr      *ocr.Client
	uploader Uploader
	logger   *zap.Logger
}

// New wires a registrar.
func New(r *roster.Store, ocrClient *ocr.Client, uploader Uploader, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{roster: r, ocr: ocrClient, uploader: uploader, logger: logger}
}

// FromCard registers a student from a card image. The OCR guess is
// untrusted free text; normalization fills defaults for anything the
// service could not read. Only a transport-level OCR failure aborts.
func (r *Registrar) FromCard(ctx context.Context, job Job) (roster.StudentRecord, error) {
	fields, err := r.ocr.Extract(ctx, job.Image)
	if err != nil {
		return roster.StudentRecord{}, fmt.Errorf("ocr extract: %w", err)
	}
	return r.FromFields(ctx, ocr.Normalize(fields), job.Image)
}

// FromFields registers a student from already-normalized fields.
// photoDataURL may be empty.
func (r *Registrar) FromFields(ctx context.Context, student ocr.Student, photoDataURL string) (roster.StudentRecord, error) {
	rec := roster.StudentRecord{
		ID:         uuid.NewString(),
		Name:       student.Name,
		FatherName: student.FatherName,
		SchoolName: student.SchoolName,
		Class:      student.Class,
		Section:    student.Section,
		RollNumber: student.RollNumber,
		Gender:     student.Gender,
		CreatedAt:  time.Now().UTC(),
	}

	png, err := qrcode.Render(rec.ID)
	if err != nil {
		return roster.StudentRecord{}, fmt.Errorf("render code image: %w", err)
	}

	if r.uploader != nil {
		if photoDataURL != "" {
			if res, err := r.uploader.UploadBase64(photoDataURL); err != nil {
				r.logger.Warn("photo upload failed", zap.String("id", rec.ID), zap.Error(err))
			} else {
				rec.PhotoURL = res.SecureURL
			}
		}
		if res, err := r.uploader.UploadBytes(png, rec.ID+".png"); err != nil {
			r.logger.Warn("code image upload failed", zap.String("id", rec.ID), zap.Error(err))
		} else {
			rec.CodeURL = res.SecureURL
		}
	}

	if err := r.roster.Add(ctx, rec); err != nil {
		return roster.StudentRecord{}, err
	}
	return rec, nil
}
