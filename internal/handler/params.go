// Package handler holds the HTTP handlers, one sub-package per resource.
package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/validator"
)

// Role sets used to gate routes.
var (
	FrontDesk = []model.Role{model.RoleAdmin, model.RoleReceptionist}
	Billing   = []model.Role{model.RoleAdmin, model.RoleCashier, model.RoleReceptionist}
	Cashier   = []model.Role{model.RoleAdmin, model.RoleCashier}
	Admin     = []model.Role{model.RoleAdmin}
	Anyone    = []model.Role{model.RoleAdmin, model.RoleCashier, model.RoleReceptionist}
)

// ParamID parses a positive int64 path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter; absent yields def.
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("%s must be an integer", name), err)
	}
	return v, nil
}

// BindJSON binds and validates the body, translating failures into
// INVALID_ARGUMENT errors.
func BindJSON(c *gin.Context, obj interface{}) error {
	return validator.Translate(c.ShouldBindJSON(obj))
}

// BindOptionalJSON is BindJSON for endpoints whose body may be omitted.
func BindOptionalJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	return validator.Translate(err)
}
