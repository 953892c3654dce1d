package controllers

import (
	"errors"
	"strconv"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/apperror"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// errorCode is the machine readable error name per kind
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrAuthorization):
		return "forbidden"
	case errors.Is(err, apperror.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperror.ErrConflict):
		return "conflict"
	}
	return "internal_server_error"
}

// respondError writes err as JSON. Infrastructure errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	body := fiber.Map{"error": errorCode(err)}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
	} else {
		log.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
		body["message"] = "something went wrong"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func currentActor(c *fiber.Ctx) authz.Actor {
	return usercontext.GetActor(c)
}

// uintParam parses a positive numeric route parameter
func uintParam(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// pageQuery reads offset and limit query parameters; services clamp them.
func pageQuery(c *fiber.Ctx) (int, int) {
	return c.QueryInt("offset", 0), c.QueryInt("limit", 0)
}

// optionalFloat parses a form value, nil when empty
func optionalFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.FormValue(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.Validation(key, "%s must be a number", key)
	}
	return &v, nil
}
