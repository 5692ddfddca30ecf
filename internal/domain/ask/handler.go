package ask

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"hookrelay/internal/common"

	"github.com/gin-gonic/gin"
)

//go:embed page.html
var pageFS embed.FS

var answerPage = template.Must(template.ParseFS(pageFS, "page.html"))

const (
	msgNotFound  = "Question not found or has expired"
	msgSubmitted = "Answer submitted successfully"
)

type pageData struct {
	Title      string
	Question   string
	Remaining  int
	SubmitPath string
}

type answerRequest struct {
	Answer string `json:"answer" form:"answer"`
}

// Handler serves the answer page and the answer submission endpoint.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler creates a new ask handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// View handles GET /:questionId
func (h *Handler) View(c *gin.Context) {
	id := c.Param("questionId")

	s, err := h.coordinator.Get(id)
	if err != nil {
		c.String(http.StatusNotFound, msgNotFound+".")
		return
	}

	var buf bytes.Buffer
	err = answerPage.Execute(&buf, pageData{
		Title:      s.Title,
		Question:   s.Question,
		Remaining:  int(s.Remaining(h.coordinator.now()).Seconds()),
		SubmitPath: "/api/answer/" + s.ID,
	})
	if err != nil {
		slog.Error("rendering answer page failed", "question_id", id, "error", err)
		common.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Submit handles POST /api/answer/:questionId
// Accepts a JSON or form body with an answer field.
func (h *Handler) Submit(c *gin.Context) {
	id := c.Param("questionId")

	var req answerRequest
	if err := c.ShouldBind(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Answer is required")
		return
	}

	err := h.coordinator.Answer(id, req.Answer)
	if err != nil {
		var notFound *common.NotFoundError
		if errors.As(err, &notFound) {
			common.Error(c, http.StatusNotFound, msgNotFound)
			return
		}
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, msgSubmitted, nil)
}

// RegisterRoutes registers the ask routes on the root router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/:questionId", h.View)
	r.POST("/api/answer/:questionId", h.Submit)
}
