package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	RouterConfigStore interface {
		GetConfig(ctx context.Context, segment string) (domain.RouterConfig, bool, error)
		UpsertConfig(ctx context.Context, cfg domain.RouterConfig) error
		ListConfigs(ctx context.Context) ([]domain.RouterConfig, error)
	}

	PSPProfileStore interface {
		FindAll(ctx context.Context) ([]domain.PSPProfile, error)
		UpsertProfile(ctx context.Context, profile domain.PSPProfile) error
	}

	OutcomeStore interface {
		RecentByDecision(ctx context.Context, decisionID string) ([]domain.TransactionOutcome, error)
	}

	LessonStore interface {
		Add(ctx context.Context, lesson domain.Lesson) error
		Search(ctx context.Context, query string, k int) ([]domain.LessonMatch, error)
		Count(ctx context.Context) (int64, error)
	}

	RoutingAdminHandler struct {
		cfgStore RouterConfigStore
		pspStore PSPProfileStore
		outcomes OutcomeStore
		lessons  LessonStore
		engine   *bandit.Engine
		validate *validator.Validate
	}
)

func NewRoutingAdminHandler(
	cfgStore RouterConfigStore,
	pspStore PSPProfileStore,
	outcomes OutcomeStore,
	lessons LessonStore,
	engine *bandit.Engine,
) *RoutingAdminHandler {
	return &RoutingAdminHandler{
		cfgStore: cfgStore,
		pspStore: pspStore,
		outcomes: outcomes,
		lessons:  lessons,
		engine:   engine,
		validate: validator.New(),
	}
}

// GET /api/v1/admin/routing/config?segment=US|USD|visa
// An empty segment addresses the default row.
func (h *RoutingAdminHandler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	segment := c.QueryParam("segment")

	cfg, ok, err := h.cfgStore.GetConfig(ctx, segment)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "config not found",
		})
	}

	return c.JSON(http.StatusOK, cfg)
}

// GET /api/v1/admin/routing/configs
func (h *RoutingAdminHandler) ListConfigs(c echo.Context) error {
	cfgs, err := h.cfgStore.ListConfigs(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"configs": cfgs,
	})
}

// PUT /api/v1/admin/routing/config
// body: RouterConfig JSON
func (h *RoutingAdminHandler) UpsertConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.RouterConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	if err := h.cfgStore.UpsertConfig(ctx, body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}

// GET /api/v1/admin/routing/segment?segment=US|USD|visa
// Arms default to the full PSP catalog; pass arms=a,b to narrow.
func (h *RoutingAdminHandler) GetSegmentStats(c echo.Context) error {
	ctx := c.Request().Context()
	segment := c.QueryParam("segment")
	if segment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "segment is required",
		})
	}

	var arms []string
	if raw := c.QueryParam("arms"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				arms = append(arms, a)
			}
		}
	} else {
		profiles, err := h.pspStore.FindAll(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": err.Error(),
			})
		}
		for _, p := range profiles {
			arms = append(arms, p.Name)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"segment": segment,
		"stats":   h.engine.SegmentView(segment, arms),
	})
}

// POST /api/v1/admin/routing/snapshot
func (h *RoutingAdminHandler) ExportSnapshot(c echo.Context) error {
	if err := h.engine.ExportSnapshot(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}

// GET /api/v1/admin/routing/psps
func (h *RoutingAdminHandler) ListPSPs(c echo.Context) error {
	profiles, err := h.pspStore.FindAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"psps": profiles,
	})
}

// PUT /api/v1/admin/routing/psps
// body: PSPProfile JSON
func (h *RoutingAdminHandler) UpsertPSP(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.PSPProfile
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	if err := h.pspStore.UpsertProfile(ctx, body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}

// POST /api/v1/admin/routing/lessons
// body: Lesson JSON; the key defaults to a fresh id.
func (h *RoutingAdminHandler) AddLesson(c echo.Context) error {
	if h.lessons == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "lesson store is not configured",
		})
	}

	var body domain.Lesson
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if body.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "text is required",
		})
	}
	if body.Key == "" {
		body.Key = uuid.NewString()
	}

	if err := h.lessons.Add(c.Request().Context(), body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"status": "ok",
		"key":    body.Key,
	})
}

// GET /api/v1/admin/routing/lessons?query=visa+declines&k=5
func (h *RoutingAdminHandler) SearchLessons(c echo.Context) error {
	if h.lessons == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "lesson store is not configured",
		})
	}

	ctx := c.Request().Context()
	query := c.QueryParam("query")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "query is required",
		})
	}

	k := 0
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "k must be an integer",
			})
		}
		k = parsed
	}

	matches, err := h.lessons.Search(ctx, query, k)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	stored, err := h.lessons.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"query":   query,
		"matches": matches,
		"stored":  stored,
	})
}

// GET /api/v1/admin/routing/decisions/:decision_id/outcomes
func (h *RoutingAdminHandler) DecisionOutcomes(c echo.Context) error {
	decisionID := c.Param("decision_id")
	if decisionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "decision_id is required",
		})
	}

	list, err := h.outcomes.RecentByDecision(c.Request().Context(), decisionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"decision_id": decisionID,
		"outcomes":    list,
	})
}
