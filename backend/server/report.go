package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ecoguardian/backend/models"
	"ecoguardian/backend/server/api"
	"ecoguardian/backend/submission"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// SubmitReport handles POST /submit-report.
func (h *Handlers) SubmitReport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	image, err := h.readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	lat, err := optionalFloat(c.PostForm("latitude"), "latitude")
	if err != nil {
		respondError(c, err)
		return
	}
	lon, err := optionalFloat(c.PostForm("longitude"), "longitude")
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.pipeline.Submit(c.Request.Context(), &submission.Submission{
		UserID:          strings.TrimSpace(c.PostForm("user_id")),
		Category:        strings.TrimSpace(c.PostForm("category")),
		Title:           c.PostForm("title"),
		Description:     c.PostForm("description"),
		Severity:        c.PostForm("severity"),
		Location:        c.PostForm("location"),
		Latitude:        lat,
		Longitude:       lon,
		DeviceTimestamp: c.PostForm("device_timestamp"),
		Image:           image,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SubmitReportResponse{
		Status:       api.StatusVerified,
		ReportID:     res.Report.ID,
		Labels:       models.LabelNames(res.Labels),
		RewardPoints: res.Grant.Points,
	})
}

// VerifyAction handles POST /verify-action.
func (h *Handlers) VerifyAction(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	image, err := h.readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.pipeline.QuickVerify(c.Request.Context(), image, c.PostForm("device_timestamp"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.VerifyActionResponse{
		Status:         api.StatusVerified,
		LabelsDetected: models.LabelNames(res.Labels),
		Confidence:     res.Confidence,
	})
}

func (h *Handlers) readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, verdict.Wrap(verdict.InvalidInput, "Upload too large.", err)
		}
		return nil, verdict.Wrap(verdict.InvalidInput, "Missing image file.", err)
	}
	if fh.Size > h.maxUploadBytes {
		return nil, verdict.New(verdict.InvalidInput, "Upload too large.")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, verdict.Wrap(verdict.InvalidInput, "Unreadable upload.", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, verdict.Wrap(verdict.InvalidInput, "Unreadable upload.", err)
	}
	if len(data) == 0 {
		return nil, verdict.New(verdict.InvalidInput, "Missing image file.")
	}
	return data, nil
}

func optionalFloat(s, field string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, verdict.Wrap(verdict.InvalidInput, fmt.Sprintf("Invalid %s.", field), err)
	}
	return &f, nil
}

// respondError writes the {status, reason} body for err. Causes are logged,
// never returned.
func respondError(c *gin.Context, err error) {
	v := verdict.From(err)
	if v.Cause != nil && !v.Rejected() {
		log.WithFields(log.Fields{"path": c.FullPath(), "kind": v.Kind}).Errorf("%s: %v", v.Reason, v.Cause)
	}
	c.JSON(v.HTTPStatus(), api.ErrorResponse{
		Status: v.Status(),
		Reason: v.Reason,
		Kind:   string(v.Kind),
	})
}
