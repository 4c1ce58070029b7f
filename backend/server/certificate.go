package server

import (
	"fmt"
	"net/http"
	"strconv"

	"ecoguardian/backend/certificate"
	"ecoguardian/backend/server/api"
	"ecoguardian/backend/verdict"

	"github.com/gin-gonic/gin"
)

// GetCertificate handles GET /certificate/:report_id, issuing the certificate on first request.
func (h *Handlers) GetCertificate(c *gin.Context) {
	reportID, err := strconv.ParseInt(c.Param("report_id"), 10, 64)
	if err != nil || reportID <= 0 {
		respondError(c, verdict.New(verdict.InvalidInput, "Invalid report id."))
		return
	}

	cert, err := h.certificates.IssueOrFetch(c.Request.Context(), reportID)
	if err != nil {
		respondError(c, err)
		return
	}
	png, err := h.certificates.Render(cert, certificate.VerifyURL(h.publicBaseURL, cert.ID))
	if err != nil {
		respondError(c, verdict.Wrap(verdict.InternalError, "Internal error", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", cert.ID+".png"))
	c.Header("X-Certificate-Id", cert.ID)
	c.Data(http.StatusOK, "image/png", png)
}

// VerifyCertificate handles GET /verify-cert/:cert_id.
func (h *Handlers) VerifyCertificate(c *gin.Context) {
	v, err := h.certificates.Verify(c.Request.Context(), c.Param("cert_id"))
	if verdict.KindOf(err) == verdict.NotFound {
		c.JSON(http.StatusNotFound, api.FakeCertResponse{
			Status:  api.StatusFake,
			Message: certificate.ReasonFake,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.VerifyCertResponse{
		Status:        api.StatusValid,
		User:          v.User,
		Action:        v.Action,
		Date:          v.Date,
		CertificateID: v.CertificateID,
		IssuedAt:      v.IssuedAt,
	})
}
