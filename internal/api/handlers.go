package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"contra-reconciliation-service/internal/pipeline"
	"contra-reconciliation-service/internal/workbook"
	"contra-reconciliation-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// UploadField is the multipart field carrying the workbooks.
const UploadField = "files"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success    bool                   `json:"success"`
	Error      string                 `json:"error"`
	Code       errors.ErrorCode       `json:"code,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (s *Server) formatStatement(c *gin.Context) {
	files, err := s.uploadedFiles(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	sources := make([]workbook.Source, 0, len(files))
	for _, fh := range files {
		fh := fh
		sources = append(sources, workbook.Source{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	upload, err := pipeline.Classify(sources)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.mu.Lock()
	out, err := s.runner.Run(c.Request.Context(), upload)
	s.mu.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, out.Response(s.config.ProcessedDir))
}

// uploadedFiles parses the multipart form with the request body capped at
// MaxUploadBytes. A request that is not multipart carries no files.
func (s *Server) uploadedFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	limit := s.config.MaxUploadBytes
	if c.Request.ContentLength > limit {
		return nil, uploadTooLarge(limit)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return nil, uploadTooLarge(limit)
		case stderrors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, errors.InputError(errors.CodeMalformedUpload, err.Error())
		}
	}
	return form.File[UploadField], nil
}

func uploadTooLarge(limit int64) error {
	size := fmt.Sprintf("%d bytes", limit)
	if limit >= 1<<20 {
		size = fmt.Sprintf("%d MiB", limit>>20)
	}
	return errors.InputError(errors.CodeUploadTooLarge, size).
		WithContext("limit_bytes", limit)
}

func (s *Server) trackingEntries(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "entries": []interface{}{}})
		return
	}
	entries, err := s.ledger.Entries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "entries": entries})
}

// fail writes err as an ErrorResponse. Problems with the uploaded files are
// client errors; everything else is a server error.
func (s *Server) fail(c *gin.Context, err error) {
	body := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	if re, ok := errors.AsReconcilerError(err); ok {
		body.Error = re.Message
		body.Code = re.Code
		body.Suggestion = re.Suggestion
		body.Details = re.Context
		switch re.Category {
		case errors.CategoryInput, errors.CategoryIdentity, errors.CategoryPairing, errors.CategoryWorkbook:
			if re.Code != errors.CodeWriteFailed {
				status = http.StatusBadRequest
			}
		}
		if re.Code == errors.CodeUploadTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
	}

	log := s.logger.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Rejected upload")
	}
	c.JSON(status, body)
}
