// Package advisor resolves advice text for the current cycle phase.
//
// Resolution walks a fixed chain: response cache, remote generation with a
// bounded retry policy, then the local knowledge bank and per-phase
// defaults. The chain always ends in non-empty text; failures are reported
// through logs and metrics only.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hbiui/LunaCare/internal/cache"
	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/llm"
	"github.com/hbiui/LunaCare/internal/logging"
	"github.com/hbiui/LunaCare/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 1500 * time.Millisecond
	DefaultTimeout     = 30 * time.Second

	// maxAttemptsCap bounds MaxAttempts regardless of configuration.
	maxAttemptsCap = 3

	// minCacheableRunes is the length remote output must exceed to be cached.
	minCacheableRunes = 30
)

var errEmptyResponse = &llm.Error{Kind: llm.KindMalformed, Err: errors.New("empty response")}

// Outcome names how a resolution was satisfied.
type Outcome string

const (
	OutcomeCacheHit      Outcome = "cache-hit"
	OutcomeRemoteSuccess Outcome = "remote-success"
	OutcomeRemoteFailure Outcome = "remote-failure-fallback"
	OutcomeOffline       Outcome = "offline-fallback"
)

// Generator produces text from a prompt. llm.Client implements it.
type Generator interface {
	Generate(ctx context.Context, p llm.Prompt) (string, error)
	GenerateStream(ctx context.Context, p llm.Prompt, onPartial func(string)) (string, error)
}

// Settings reports whether remote generation may be attempted and in which voice.
type Settings interface {
	HasCredential() bool
	IsOffline() bool
	PersonaName() string
}

// Request is one advice resolution.
type Request struct {
	Phase cycle.Phase
	Logs  []cycle.CycleLog // descending by start date
	Query string           // empty asks for the daily tip
	Now   time.Time        // zero means the advisor's clock
}

// Result is the resolved advice. Content is never empty.
type Result struct {
	Content string  `json:"content"`
	Outcome Outcome `json:"outcome"`
	Persona string  `json:"persona"`
}

// Advisor runs the resolution chain.
type Advisor struct {
	cache       *cache.Cache
	gen         Generator
	settings    Settings
	bank        []BankEntry
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*Advisor)

// WithMaxAttempts sets the remote attempt budget, capped at 3.
func WithMaxAttempts(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.maxAttempts = min(n, maxAttemptsCap)
		}
	}
}

// WithBackoff sets the delay before the second attempt; later delays double.
func WithBackoff(d time.Duration) Option {
	return func(a *Advisor) {
		if d >= 0 {
			a.backoff = d
		}
	}
}

// WithTimeout bounds each resolution's remote phase, retries included.
func WithTimeout(d time.Duration) Option {
	return func(a *Advisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(a *Advisor) { a.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

// WithBank replaces the offline knowledge bank.
func WithBank(bank []BankEntry) Option {
	return func(a *Advisor) { a.bank = bank }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Advisor) { a.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Advisor) { a.metrics = m }
}

// New creates an Advisor. gen and settings may be nil, which keeps every
// resolution local.
func New(c *cache.Cache, gen Generator, settings Settings, opts ...Option) *Advisor {
	if c == nil {
		c = cache.New(cache.NewMemoryBackend())
	}
	a := &Advisor{
		cache:       c,
		gen:         gen,
		settings:    settings,
		bank:        DefaultBank,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		timeout:     DefaultTimeout,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Persona returns the persona currently selected by settings.
func (a *Advisor) Persona() Persona {
	if a.settings == nil {
		return LookupPersona("")
	}
	return LookupPersona(a.settings.PersonaName())
}

// Resolve returns advice for req.
func (a *Advisor) Resolve(ctx context.Context, req Request) Result {
	req = a.normalize(req)
	persona := a.Persona()

	if content, ok := a.cache.Get(ctx, req.Phase, req.Query); ok {
		return a.finish(req, persona, content, OutcomeCacheHit, 0)
	}
	if !a.remoteEnabled() {
		return a.finish(req, persona, a.fallback(req, persona), OutcomeOffline, 0)
	}

	prompt := buildPrompt(persona, req)
	var text string
	attempts, err := a.withRetry(ctx, func(ctx context.Context) (bool, error) {
		var err error
		text, err = a.gen.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		return false, err
	})
	if err != nil {
		a.logger.Warn("remote advice failed",
			zap.String("phase", string(req.Phase)),
			zap.String("kind", string(llm.KindOf(err))),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return a.finish(req, persona, a.remoteFallback(req, persona, err), OutcomeRemoteFailure, attempts)
	}

	a.store(ctx, req, text)
	return a.finish(req, persona, text, OutcomeRemoteSuccess, attempts)
}

// ResolveStream resolves advice for req, delivering the accumulated text to
// onPartial as it grows. Each delivery is strictly longer than the last and
// the final delivery equals the returned Content. Cached and local answers
// arrive in a single delivery.
func (a *Advisor) ResolveStream(ctx context.Context, req Request, onPartial func(string)) Result {
	req = a.normalize(req)
	persona := a.Persona()

	delivered := ""
	emit := func(s string) {
		if len(s) <= len(delivered) {
			return
		}
		delivered = s
		if onPartial != nil {
			onPartial(s)
		}
	}

	if content, ok := a.cache.Get(ctx, req.Phase, req.Query); ok {
		emit(content)
		return a.finish(req, persona, content, OutcomeCacheHit, 0)
	}
	if !a.remoteEnabled() {
		content := a.fallback(req, persona)
		emit(content)
		return a.finish(req, persona, content, OutcomeOffline, 0)
	}

	prompt := buildPrompt(persona, req)
	var text string
	attempts, err := a.withRetry(ctx, func(ctx context.Context) (bool, error) {
		var err error
		text, err = a.gen.GenerateStream(ctx, prompt, emit)
		if err == nil && strings.TrimSpace(text) == "" && delivered == "" {
			err = errEmptyResponse
		}
		// Once text reached the caller a retry would restart the stream.
		return delivered != "", err
	})
	if err == nil {
		emit(text)
		a.store(ctx, req, delivered)
		return a.finish(req, persona, delivered, OutcomeRemoteSuccess, attempts)
	}

	a.logger.Warn("remote advice stream failed",
		zap.String("phase", string(req.Phase)),
		zap.String("kind", string(llm.KindOf(err))),
		zap.Int("attempts", attempts),
		zap.Int("delivered_bytes", len(delivered)),
		zap.Error(err))

	content := a.remoteFallback(req, persona, err)
	if delivered != "" {
		content = delivered + "\n\n" + content
	}
	emit(content)
	return a.finish(req, persona, content, OutcomeRemoteFailure, attempts)
}

// withRetry runs call until it succeeds, fails with a non-transient error,
// reports that it must not be repeated, or the attempt budget runs out.
// The whole loop shares one timeout.
func (a *Advisor) withRetry(ctx context.Context, call func(context.Context) (stop bool, err error)) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var lastErr error
	attempt := 0
	for attempt < a.maxAttempts {
		if attempt > 0 {
			delay := a.backoff * time.Duration(1<<(attempt-1))
			if err := a.sleep(ctx, delay); err != nil {
				return attempt, lastErr
			}
		}
		attempt++

		stop, err := call(ctx)
		if err == nil {
			a.metrics.ObserveRemoteAttempt("success")
			return attempt, nil
		}
		a.metrics.ObserveRemoteAttempt(string(llm.KindOf(err)))
		lastErr = err

		if stop || !llm.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		a.logger.Debug("retrying remote advice",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return attempt, lastErr
}

func (a *Advisor) remoteEnabled() bool {
	if a.gen == nil || a.settings == nil {
		return false
	}
	return a.settings.HasCredential() && !a.settings.IsOffline()
}

func (a *Advisor) normalize(req Request) Request {
	req.Query = strings.TrimSpace(req.Query)
	if req.Now.IsZero() {
		req.Now = a.now()
	}
	if req.Phase == "" {
		req.Phase = cycle.PhaseUnknown
	}
	return req
}

func (a *Advisor) fallback(req Request, persona Persona) string {
	return persona.Apply(localAnswer(a.bank, req.Phase, req.Query))
}

// remoteFallback is the local answer after a failed remote call. Quota
// failures lead with QuotaNotice.
func (a *Advisor) remoteFallback(req Request, persona Persona, err error) string {
	text := a.fallback(req, persona)
	if llm.KindOf(err) == llm.KindQuota {
		text = QuotaNotice + "\n\n" + text
	}
	return text
}

// store caches remote output that is long enough to be worth keeping.
func (a *Advisor) store(ctx context.Context, req Request, text string) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= minCacheableRunes {
		return
	}
	a.cache.Put(ctx, text, req.Phase, req.Query)
}

func (a *Advisor) finish(req Request, persona Persona, content string, outcome Outcome, attempts int) Result {
	a.metrics.ObserveResolution(string(outcome))
	a.logger.Info("advice resolved",
		zap.String("outcome", string(outcome)),
		zap.String("phase", string(req.Phase)),
		zap.String("persona", persona.Name),
		zap.Bool("tip", req.Query == ""),
		zap.Int("attempts", attempts))
	return Result{Content: content, Outcome: outcome, Persona: persona.Name}
}

// buildPrompt renders the cycle context and the question for a remote call.
func buildPrompt(persona Persona, req Request) llm.Prompt {
	var b strings.Builder
	if _, day := cycle.PhaseAndDay(req.Logs, req.Now); day > 0 {
		fmt.Fprintf(&b, "背景：周期第 %d 天，阶段: %s。\n", day, req.Phase.Label())
	} else {
		fmt.Fprintf(&b, "背景：阶段: %s。\n", req.Phase.Label())
	}
	if req.Query == "" {
		b.WriteString("请生成一段 100 字内的今日照顾建议，包含身体解码和行动清单。")
	} else {
		fmt.Fprintf(&b, "用户提问：\"%s\"", req.Query)
	}
	return llm.Prompt{System: persona.PromptTemplate, User: b.String()}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
