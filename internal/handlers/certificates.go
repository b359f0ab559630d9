package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"proctrace/internal/repository"
)

// CertificatesHandler serves issued documents. Verification is public by
// design: the document number is printed on the certificate itself.
type CertificatesHandler struct {
	log   *zap.Logger
	certs *repository.Certificates
}

func NewCertificatesHandler(log *zap.Logger, certs *repository.Certificates) *CertificatesHandler {
	return &CertificatesHandler{log: log, certs: certs}
}

// List serves issued certificates, optionally narrowed by a search query
// over document number or holder name.
func (h *CertificatesHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > maxPerPage {
		limit = 100
	}

	rows, err := h.certs.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.log.Error("Failed to list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list certificates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": rows})
}

// Verify answers whether a document number is genuine and whom it belongs
// to. The 404 carries valid=false so verification pages need no special
// error handling. Document numbers contain a slash ("26/08-0042"), so the
// route binds a wildcard and the leading separator is trimmed here.
func (h *CertificatesHandler) Verify(c *gin.Context) {
	number := strings.TrimPrefix(c.Param("number"), "/")
	if number == "" || len(number) > 16 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document number"})
		return
	}

	cert, err := h.certs.GetByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"valid": false})
			return
		}
		h.log.Error("Certificate lookup failed", zap.String("number", number), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "certificate": cert})
}
