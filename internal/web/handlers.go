package web

import (
	"database/sql"
	stderrors "errors"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/cache"
	"github.com/hbiui/LunaCare/internal/errors"
	"github.com/hbiui/LunaCare/internal/ops"
)

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	db      *sql.DB
	advisor *advisor.Advisor
	cache   *cache.Cache
	logger  *zap.Logger
}

// AdviceRequest is the body of POST /api/advice and /api/advice/stream.
type AdviceRequest struct {
	Query   string `json:"query,omitempty"`
	TopicID string `json:"topic_id,omitempty"`
	Phase   string `json:"phase,omitempty"`
}

// AdviceResponse is resolved advice with its markdown rendered to HTML.
type AdviceResponse struct {
	*ops.AdviceOutput
	HTML template.HTML `json:"html"`
}

// SymptomRequest is the body of POST /api/symptoms.
type SymptomRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// ClearRequest is the body of POST /api/clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	renderError(w, h.logger, r, err)
}

// HandleListLogs handles GET /api/logs.
func (h *Handlers) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListLogs(r.Context(), h.db, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAddLog handles POST /api/logs.
func (h *Handlers) HandleAddLog(w http.ResponseWriter, r *http.Request) {
	var input ops.LogInput
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := ops.AddLog(r.Context(), h.db, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, l)
}

// HandleUpdateLog handles PUT /api/logs/{id}.
func (h *Handlers) HandleUpdateLog(w http.ResponseWriter, r *http.Request) {
	var input ops.LogInput
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := ops.UpdateLog(r.Context(), h.db, r.PathValue("id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, l)
}

// HandleDeleteLog handles DELETE /api/logs/{id}.
func (h *Handlers) HandleDeleteLog(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteLog(r.Context(), h.db, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleClear handles POST /api/clear. The body must carry {"confirm": true}.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	var input ClearRequest
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if !input.Confirm {
		h.fail(w, r, errors.NewInvalidRequest("confirm must be true"))
		return
	}
	out, err := ops.ClearAll(r.Context(), h.db, h.cache)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Status(r.Context(), h.db, ops.StatusInput{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandlePredict handles GET /api/predict.
func (h *Handlers) HandlePredict(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PredictNext(r.Context(), h.db)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Stats(r.Context(), h.db)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAdvice handles POST /api/advice.
func (h *Handlers) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	var input AdviceRequest
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := ops.ResolveAdvice(r.Context(), h.db, h.advisor, adviceInput(input))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, adviceResponse(out))
}

// HandleAdviceStream handles POST /api/advice/stream. Each partial answer is
// sent as a "partial" event carrying the text so far, followed by one "done"
// event with the full response. Input errors are reported as plain JSON
// before the stream starts.
func (h *Handlers) HandleAdviceStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		h.fail(w, r, errors.NewInternal(stderrors.New("streaming unsupported by response writer")))
		return
	}

	var input AdviceRequest
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}

	var sse *sseWriter
	start := func() {
		if sse == nil {
			sse, _ = newSSEWriter(w)
		}
	}

	out, err := ops.ResolveAdviceStream(r.Context(), h.db, h.advisor, adviceInput(input), func(partial string) {
		start()
		sse.send("partial", map[string]string{"content": partial})
	})
	if err != nil {
		if sse == nil {
			h.fail(w, r, err)
			return
		}
		h.logger.Warn("advice stream failed", zap.Error(err))
		return
	}
	start()
	sse.send("done", adviceResponse(out))
}

// HandleTip handles GET /api/tip.
func (h *Handlers) HandleTip(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DailyTip(r.Context(), h.db, h.advisor, ops.TipInput{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, adviceResponse(out))
}

// HandleTopics handles GET /api/topics.
func (h *Handlers) HandleTopics(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Topics(r.Context(), h.db, ops.TopicsInput{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleListSymptoms handles GET /api/symptoms.
func (h *Handlers) HandleListSymptoms(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListSymptoms(r.Context(), h.db)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAddSymptom handles POST /api/symptoms.
func (h *Handlers) HandleAddSymptom(w http.ResponseWriter, r *http.Request) {
	var input SymptomRequest
	if err := decodeBody(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := ops.AddSymptom(r.Context(), h.db, ops.SymptomInput{Name: input.Name, Emoji: input.Emoji})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, s)
}

// HandleDeleteSymptom handles DELETE /api/symptoms/{name}.
func (h *Handlers) HandleDeleteSymptom(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := ops.DeleteSymptom(r.Context(), h.db, name); err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"deleted": true, "name": name})
}

func adviceInput(req AdviceRequest) ops.AdviceInput {
	return ops.AdviceInput{Query: req.Query, TopicID: req.TopicID, Phase: req.Phase}
}

func adviceResponse(out *ops.AdviceOutput) AdviceResponse {
	return AdviceResponse{AdviceOutput: out, HTML: renderMarkdown(out.Content)}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
