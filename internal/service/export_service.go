package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
	"github.com/avalia-edu/avalia-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportReviewLister interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error)
}

type exportChangeRequestLister interface {
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportResult carries a rendered moderation export.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders moderation queues as downloadable files. Moderator only.
type ExportService struct {
	reviews        exportReviewLister
	changeRequests exportChangeRequestLister
	csv            csvRenderer
	pdf            pdfRenderer
	logger         *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(reviews exportReviewLister, changeRequests exportChangeRequestLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reviews: reviews, changeRequests: changeRequests, csv: csv, pdf: pdf, logger: logger}
}

// PendingReviews renders the pending review queue.
func (s *ExportService) PendingReviews(ctx context.Context, format ExportFormat, actor *models.User) (*ExportResult, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	table := export.Table{
		Columns: []string{"id", "target_type", "target_id", "rating_1", "rating_2", "rating_3", "rating_4", "rating_5", "approved", "created_at"},
	}
	// Listing windows are capped, so the queue is drained page by page.
	for skip := 0; len(table.Rows) < maxExportRows; skip += exportPageSize {
		reviews, err := s.reviews.List(ctx, models.ReviewFilter{IncludePending: true, Skip: skip, Limit: exportPageSize})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews")
		}
		for _, review := range reviews {
			if review.Approved {
				continue
			}
			target := review.Target()
			table.Rows = append(table.Rows, map[string]string{
				"id":          strconv.FormatInt(review.ID, 10),
				"target_type": string(target.Type),
				"target_id":   strconv.FormatInt(target.ID, 10),
				"rating_1":    strconv.Itoa(review.Rating1),
				"rating_2":    strconv.Itoa(review.Rating2),
				"rating_3":    strconv.Itoa(review.Rating3),
				"rating_4":    strconv.Itoa(review.Rating4),
				"rating_5":    strconv.Itoa(review.Rating5),
				"approved":    strconv.FormatBool(review.Approved),
				"created_at":  review.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		if len(reviews) < exportPageSize {
			break
		}
	}
	return s.render(table, format, "pending-reviews", "Pending Reviews")
}

// PendingChangeRequests renders the pending change request queue.
func (s *ExportService) PendingChangeRequests(ctx context.Context, format ExportFormat, actor *models.User) (*ExportResult, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	status := models.ChangeRequestPending
	table := export.Table{
		Columns: []string{"id", "target_type", "payload", "created_by", "created_at"},
	}
	for skip := 0; len(table.Rows) < maxExportRows; skip += exportPageSize {
		requests, err := s.changeRequests.List(ctx, models.ChangeRequestFilter{Status: &status, Skip: skip, Limit: exportPageSize})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change requests")
		}
		for _, request := range requests {
			table.Rows = append(table.Rows, map[string]string{
				"id":          strconv.FormatInt(request.ID, 10),
				"target_type": string(request.TargetType),
				"payload":     string(request.Payload),
				"created_by":  strconv.FormatInt(request.CreatedBy, 10),
				"created_at":  request.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		if len(requests) < exportPageSize {
			break
		}
	}
	return s.render(table, format, "pending-change-requests", "Pending Change Requests")
}

const (
	exportPageSize = 100
	maxExportRows  = 10000
)

func (s *ExportService) render(table export.Table, format ExportFormat, stem, title string) (*ExportResult, error) {
	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportFormatCSV:
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Filename: stem + ".csv", ContentType: "text/csv", Payload: payload}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Filename: stem + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
}
