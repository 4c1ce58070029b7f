package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Help(c *gin.Context) {
	c.String(http.StatusOK, `
	Eco-Guardian API:
	POST `+EndPointSubmitReport+`        submit an eco-action photo for verification and reward
	POST `+EndPointVerifyAction+`        quick authenticity and content check, nothing is recorded
	GET  `+EndPointCertificate+`  certificate PNG for an accepted report
	GET  `+EndPointVerifyCert+`     public certificate lookup
	GET  `+EndPointUserSummary+` accepted reports and points of a user
	`)
}
