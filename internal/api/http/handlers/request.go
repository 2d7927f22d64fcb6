package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk/internal/api/dto"
	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

// CompanyHeader carries the tenant of every ticket request.
const CompanyHeader = "X-Company-ID"

func companyID(c *fiber.Ctx) (int64, error) {
	raw := c.Get(CompanyHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("company header required", map[string]any{"header": CompanyHeader})
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, nil)
	}
	return id, nil
}

// parseBody decodes and validates the JSON body into req.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if errs := dto.Validate(req); errs != nil {
		details := make(map[string]any, len(errs))
		for field, msg := range errs {
			details[field] = msg
		}
		return apperrors.NewValidationError("invalid payload", details)
	}
	return nil
}
