package forms

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bridgewell/intake/internal/engine"
	"github.com/bridgewell/intake/internal/platform/auth"
	"github.com/bridgewell/intake/internal/platform/middleware"
	"github.com/bridgewell/intake/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("chw", "intake_coordinator", "patient"))
	g.GET("/patients/:id/required-forms", h.ListRequiredForms)
	// Definitions are static schema data; serve them with ETags.
	g.GET("/forms/definitions/:formKey", h.GetDefinition,
		middleware.ETagMiddleware(middleware.DefaultCacheConfig()))
	g.POST("/forms/:formKey/submissions", h.SubmitForm)
	g.GET("/forms/submissions/:id", h.GetSubmission)
	g.GET("/patients/:id/form-submissions", h.ListSubmissions)

	staff := api.Group("", auth.RequireRole("intake_coordinator"))
	staff.POST("/patients/:id/required-forms/:formKey/not-applicable", h.SetNotApplicable)
}

func (h *Handler) ListRequiredForms(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	entries, err := h.svc.ListRequiredForms(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) GetDefinition(c echo.Context) error {
	def, ok := Definition(c.Param("formKey"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown form")
	}
	return c.JSON(http.StatusOK, def)
}

// submitRequest is the JSON submission body. Multipart submissions carry the
// same fields as form values plus one file part per file field, named by the
// field's dotted path.
type submitRequest struct {
	PatientID uuid.UUID      `json:"patient_id"`
	Answers   map[string]any `json:"answers"`
}

func (h *Handler) SubmitForm(c echo.Context) error {
	formKey := c.Param("formKey")
	submittedBy := auth.UserIDFromContext(c.Request().Context())

	var req submitRequest
	var files []*UploadedFile

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		pid, err := uuid.Parse(c.FormValue("patient_id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		req.PatientID = pid
		if raw := c.FormValue("answers"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Answers); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid answers json")
			}
		}
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		for field, headers := range form.File {
			for _, fh := range headers {
				src, err := fh.Open()
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, err.Error())
				}
				data, err := io.ReadAll(src)
				src.Close()
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, err.Error())
				}
				files = append(files, &UploadedFile{
					Field:       field,
					FileName:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Data:        data,
				})
			}
		}
	} else {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	sub, err := h.svc.SubmitForm(c.Request().Context(), req.PatientID, formKey, req.Answers, files, submittedBy)
	if err != nil {
		var incomplete *engine.ValidationIncomplete
		if errors.As(err, &incomplete) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{
				"error":   "validation incomplete",
				"step_id": incomplete.StepID,
				"missing": incomplete.Missing,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) GetSubmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, err := h.svc.GetSubmission(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "submission not found")
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) ListSubmissions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	subs, total, err := h.svc.ListSubmissions(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(subs, total, pg.Limit, pg.Offset))
}

func (h *Handler) SetNotApplicable(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	formKey := c.Param("formKey")
	if err := h.svc.SetNotApplicable(c.Request().Context(), patientID, formKey); err != nil {
		if errors.Is(err, ErrNotPending) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
