package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/coverage"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/loader"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

var errStorageDisabled = errors.New("object storage is not configured")

func statusFor(err error) int {
	var verr domain.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, calendar.ErrInvalidMonthKey),
		errors.Is(err, coverage.ErrMissingDate),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrEmptyApproval):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSKUNotFound),
		errors.Is(err, domain.ErrApprovalNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBundleNotAvailable),
		errors.Is(err, loader.ErrNoSource),
		errors.Is(err, errStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps domain errors to status codes. Server errors keep their
// details out of the response body.
func respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(status, gin.H{"error": message})
		return
	}

	body := gin.H{"error": message, "details": err.Error()}
	var verr domain.ValidationErrors
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr))
		for _, ve := range verr {
			fields[ve.Field] = ve.Message
		}
		body["fields"] = fields
	}
	c.JSON(status, body)
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if fallback <= 0 {
		fallback = 50
	}
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseNonNegativeInt(value string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v >= 0 {
		return v
	}
	return 0
}

// queryList accepts both repeated params and comma separated values:
//
//	?supplier=A&supplier=B
//	?supplier=A,B
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
