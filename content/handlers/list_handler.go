// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/badmuriss/warpcms-sub000/content/errors"
	"github.com/badmuriss/warpcms-sub000/content/models"
	"github.com/badmuriss/warpcms-sub000/content/services"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/badmuriss/warpcms-sub000/internal/types"
	"github.com/gofiber/fiber/v2"
)

// referenceTables maps the public reference alias to a registry table.
// Anything outside this map is rejected before compilation.
var referenceTables = map[string]string{
	"collections": filter.TableCollections,
	"users":       filter.TableUsers,
	"authors":     filter.TableUsers,
	"media":       filter.TableMedia,
}

// HandlerConfig holds the request-shaping settings of the list handlers.
type HandlerConfig struct {
	// DefaultLimit applies when a request names no limit
	DefaultLimit int
	// ExposeQuery echoes the executed SQL and params in meta.query
	ExposeQuery bool
}

// ListHandler handles all list-related HTTP requests
type ListHandler struct {
	listService services.ListService
	config      HandlerConfig
}

// NewListHandler creates a new ListHandler with injected dependencies
func NewListHandler(listService services.ListService, config HandlerConfig) *ListHandler {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = filter.DefaultLimit
	}
	return &ListHandler{listService: listService, config: config}
}

// queryValues copies the query string; fasthttp args are only valid
// during the request.
func queryValues(c *fiber.Ctx) map[string][]string {
	values := make(map[string][]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		values[k] = append(values[k], string(value))
	})
	return values
}

func (h *ListHandler) parseQuery(c *fiber.Ctx) filter.FilterSpec {
	return filter.ParseValues(queryValues(c), filter.WithDefaultLimit(h.config.DefaultLimit))
}

// ListContent handles GET /content
func (h *ListHandler) ListContent(c *fiber.Ctx) error {
	spec := h.parseQuery(c)
	result, err := h.listService.List(c.UserContext(), services.ListRequest{
		Table:     filter.TableContent,
		Spec:      spec,
		Namespace: services.NamespaceContentAll,
	})
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.respond(c, spec, result)
}

// QueryContent handles POST /content/query
func (h *ListHandler) QueryContent(c *fiber.Ctx) error {
	spec, err := filter.ParseBody(c.Body(), filter.WithDefaultLimit(h.config.DefaultLimit))
	if err != nil {
		return errors.HandleServiceError(c, fmt.Errorf("%w: %v", errors.ErrInvalidRequestBody, err))
	}

	result, err := h.listService.List(c.UserContext(), services.ListRequest{
		Table:     filter.TableContent,
		Spec:      spec,
		Namespace: services.NamespaceContentAll,
	})
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.respond(c, spec, result)
}

// ListCollectionContent handles GET /collections/:collectionId/content.
// The collection comes from the path and is compiled as a trusted scope.
func (h *ListHandler) ListCollectionContent(c *fiber.Ctx) error {
	collectionID, err := services.ValidateCollectionID(c.Params("collectionId"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	spec := h.parseQuery(c)
	result, err := h.listService.List(c.UserContext(), services.ListRequest{
		Table:     filter.TableContent,
		Spec:      spec,
		Scope:     filter.NewLeaf("collection_id", filter.OpEquals, collectionID),
		Namespace: services.CollectionNamespace(collectionID),
	})
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.respond(c, spec, result)
}

// ListReferences handles GET /references?table=<alias>
func (h *ListHandler) ListReferences(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleUserContextError(c)
	}
	if !user.CanReadReferences() {
		return errors.HandleServiceError(c, errors.ErrPermissionDenied)
	}

	values := queryValues(c)
	alias := ""
	if vs := values["table"]; len(vs) > 0 {
		alias = strings.TrimSpace(vs[0])
	}
	delete(values, "table")
	if alias == "" {
		return errors.HandleServiceError(c, fmt.Errorf("%w: table", errors.ErrMissingParameter))
	}
	table, ok := referenceTables[alias]
	if !ok {
		return errors.HandleServiceError(c, fmt.Errorf("%w: %q", errors.ErrUnknownReference, alias))
	}

	spec := filter.ParseValues(values, filter.WithDefaultLimit(h.config.DefaultLimit))
	result, err := h.listService.List(c.UserContext(), services.ListRequest{
		Table:     table,
		Spec:      spec,
		Namespace: services.NamespaceReferences + ":" + table,
	})
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.respond(c, spec, result)
}

// ListMedia handles GET /media
func (h *ListHandler) ListMedia(c *fiber.Ctx) error {
	spec := h.parseQuery(c)
	result, err := h.listService.ListMedia(c.UserContext(), spec)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.respond(c, spec, result)
}

// InvalidateCollection handles DELETE /admin/cache/collections/:collectionId
func (h *ListHandler) InvalidateCollection(c *fiber.Ctx) error {
	collectionID := c.Params("collectionId")
	patterns, err := h.listService.InvalidateCollection(c.UserContext(), collectionID)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(models.InvalidateResponse{CollectionID: collectionID, Patterns: patterns})
}

// Health handles GET /health
func (h *ListHandler) Health(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(models.HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (h *ListHandler) respond(c *fiber.Ctx, spec filter.FilterSpec, result *services.ListResult) error {
	status := "MISS"
	if result.Hit() {
		status = "HIT"
	}
	c.Set(types.HeaderCacheStatus, status)
	c.Set(types.HeaderCacheSource, string(result.Source))

	rows := result.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	meta := models.ListMeta{
		Count:     len(rows),
		Timestamp: time.Now().UTC(),
		Filter:    spec,
		Cache:     models.CacheMeta{Hit: result.Hit(), Source: string(result.Source)},
	}
	if h.config.ExposeQuery {
		meta.Query = &models.QueryMeta{SQL: result.Query.SQL, Params: result.Query.Params}
	}
	return c.JSON(models.ListResponse{Data: rows, Meta: meta})
}
