package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON parsea y valida el cuerpo; si falla ya escribió la respuesta 400.
func bindJSON(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		resp := dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Details[fe.Namespace()] = fe.Tag()
			}
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	return true, nil
}

// requireTenant devuelve el tenant del token o escribe 401.
func requireTenant(c *fiber.Ctx) (string, bool, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return "", false, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_id requerido"})
	}
	return tenantID, true, nil
}

// writeError traduce la taxonomía del dominio a HTTP.
func writeError(c *fiber.Ctx, err error) error {
	switch domain.Kind(err) {
	case domain.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case domain.KindInvalidRequest:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
	case domain.KindDuplicate:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case domain.KindInsufficientStock:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case domain.KindInvalidState:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case domain.KindContention:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONTENTION", Message: "el ítem está siendo modificado, reintente"})
	case domain.KindStorageUnavailable:
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "almacenamiento no disponible, reintente"})
	case domain.KindInconsistent:
		// La cantidad ya cambió: no es un fallo normal y no debe reintentarse a ciegas.
		return c.Status(fiber.StatusAccepted).JSON(dto.ErrorResponse{Code: "PENDING_RECONCILIATION", Message: "el ajuste se aplicó y su registro está pendiente de conciliación"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
