// Package upstream is the HTTP client of the recommendation and training service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	"github.com/okian/classpulse/internal/domain/reconcile"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
	maxBodyBytes   = 8 << 20
)

// Call names, used for metrics and error messages.
const (
	CallTrain            = "train"
	CallStudentActions   = "student_actions"
	CallDiagnose         = "diagnose"
	CallRecommend        = "recommend"
	CallEligibleStudents = "eligible_students"
	CallTopics           = "topics"
	CallSaveAdaptations  = "save_adaptations"
	CallSaveDifficulties = "save_difficulties"
)

// Client talks to the service rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  logger.Logger
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Inf, 0),
		retries: defaultRetries,
		backoff: defaultBackoff,
		logger:  logger.Get().Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Train asks the service to retrain and returns its status text.
func (c *Client) Train(ctx context.Context) (string, error) {
	body, err := c.do(ctx, CallTrain, http.MethodGet, "/train", nil, true)
	if err != nil {
		return "", err
	}
	if gjson.ValidBytes(body) {
		if s := gjson.GetBytes(body, "status"); s.Exists() {
			return s.String(), nil
		}
	}
	return strings.TrimSpace(string(body)), nil
}

// StudentActions fetches the raw response logs. Entries are extracted
// field by field so one badly typed record does not fail the whole payload.
func (c *Client) StudentActions(ctx context.Context) ([]normalize.RawRecord, error) {
	body, err := c.do(ctx, CallStudentActions, http.MethodGet, "/student-actions", nil, true)
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !root.IsArray() {
		return nil, c.shapeErr(CallStudentActions, "array of records")
	}
	var out []normalize.RawRecord
	root.ForEach(func(_, rec gjson.Result) bool {
		r := normalize.RawRecord{StudentID: rec.Get("studentID").String()}
		rec.Get("responses").ForEach(func(_, resp gjson.Result) bool {
			raw := normalize.RawResponse{TopicID: resp.Get("topicID").String()}
			if v := resp.Get("correct"); v.Exists() {
				raw.Correct = json.RawMessage(v.Raw)
			}
			r.Responses = append(r.Responses, raw)
			return true
		})
		out = append(out, r)
		return true
	})
	return out, nil
}

type skillVector struct {
	StudentID string              `json:"studentID"`
	Skills    map[string]*float64 `json:"skills"`
}

// Diagnose returns the skill vectors of studentIDs. A null mastery is
// dropped so the skill reads as not diagnosed rather than as zero.
func (c *Client) Diagnose(ctx context.Context, studentIDs []string) ([]model.SkillVector, error) {
	payload := map[string][]string{"studentID": studentIDs}
	body, err := c.do(ctx, CallDiagnose, http.MethodPost, "/diagnose", payload, true)
	if err != nil {
		return nil, err
	}
	var wire []skillVector
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, c.shapeErr(CallDiagnose, err.Error())
	}
	out := make([]model.SkillVector, 0, len(wire))
	for _, w := range wire {
		v := model.SkillVector{StudentID: w.StudentID, Skills: make(map[string]float64, len(w.Skills))}
		for id, val := range w.Skills {
			if val != nil {
				v.Skills[id] = *val
			}
		}
		out = append(out, v)
	}
	return out, nil
}

type recommendation struct {
	StudentID       string `json:"studentID"`
	Skill           string `json:"skill"`
	Recommendations []struct {
		Difficulty *float64 `json:"difficulty"`
	} `json:"recommendations"`
}

// Recommend asks for difficulties of reqs in one batch. Every request gets
// a candidate; requests the service did not answer are marked failed.
func (c *Client) Recommend(ctx context.Context, reqs []model.RecommendationRequest) ([]reconcile.Candidate, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	body, err := c.do(ctx, CallRecommend, http.MethodPost, "/recommend", reqs, true)
	if err != nil {
		return nil, err
	}
	var recs []recommendation
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, c.shapeErr(CallRecommend, err.Error())
	}

	type key struct{ student, skill string }
	answered := make(map[key]reconcile.Candidate, len(recs))
	for _, r := range recs {
		k := key{r.StudentID, r.Skill}
		if _, dup := answered[k]; dup {
			continue
		}
		cand := reconcile.Candidate{StudentID: r.StudentID, SkillID: r.Skill}
		for _, d := range r.Recommendations {
			if d.Difficulty != nil {
				cand.Difficulties = append(cand.Difficulties, *d.Difficulty)
			}
		}
		answered[k] = cand
	}

	out := make([]reconcile.Candidate, len(reqs))
	for i, r := range reqs {
		cand, ok := answered[key{r.StudentID, r.SkillID}]
		if !ok {
			cand = reconcile.Candidate{StudentID: r.StudentID, SkillID: r.SkillID, Failed: true}
		}
		out[i] = cand
	}
	return out, nil
}

// EligibleStudents fetches the roster.
func (c *Client) EligibleStudents(ctx context.Context) ([]model.RosterEntry, error) {
	body, err := c.do(ctx, CallEligibleStudents, http.MethodGet, "/eligible-students", nil, true)
	if err != nil {
		return nil, err
	}
	var out []model.RosterEntry
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.shapeErr(CallEligibleStudents, err.Error())
	}
	return out, nil
}

// Topics returns the topics of themeName, read from the first element of
// the response. Topics may be plain strings or objects with an id.
func (c *Client) Topics(ctx context.Context, themeName string) ([]string, error) {
	path := "/get-topics?themeName=" + url.QueryEscape(themeName)
	body, err := c.do(ctx, CallTopics, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, c.shapeErr(CallTopics, "invalid JSON")
	}
	list := gjson.GetBytes(body, "0.topics")
	if !list.IsArray() {
		return nil, c.shapeErr(CallTopics, "missing [0].topics")
	}
	var out []string
	for _, t := range list.Array() {
		var id string
		switch {
		case t.Type == gjson.String:
			id = t.String()
		case t.Get("topicID").Exists():
			id = t.Get("topicID").String()
		case t.Get("id").Exists():
			id = t.Get("id").String()
		case t.Get("name").Exists():
			id = t.Get("name").String()
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

// SaveAdaptations submits approved adaptations.
func (c *Client) SaveAdaptations(ctx context.Context, adaptations []model.EligibleStudent) error {
	payload := map[string][]model.EligibleStudent{"adaptations": adaptations}
	_, err := c.do(ctx, CallSaveAdaptations, http.MethodPost, "/save-adaptations", payload, false)
	return err
}

// SaveDifficulties submits approved difficulties.
func (c *Client) SaveDifficulties(ctx context.Context, difficulties []model.DifficultyUpdate) error {
	payload := map[string][]model.DifficultyUpdate{"difficulties": difficulties}
	_, err := c.do(ctx, CallSaveDifficulties, http.MethodPost, "/save-difficulties", payload, false)
	return err
}

// Deliver routes a queued submission to its endpoint.
func (c *Client) Deliver(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: matches worker contract
	switch s.Kind {
	case model.SubmitAdaptations:
		return c.SaveAdaptations(ctx, s.Adaptations)
	case model.SubmitDifficulties:
		return c.SaveDifficulties(ctx, s.Difficulties)
	default:
		return fmt.Errorf("submission %s: unknown kind %q: %w", s.ID, s.Kind, ErrBadResponse)
	}
}

func (c *Client) shapeErr(call, detail string) error {
	metrics.RecordErrorByComponent("upstream", "bad_response")
	return fmt.Errorf("%s: %w: %w: %s", call, ErrUpstream, ErrBadResponse, detail)
}

// do performs one call, retrying idempotent calls on transport errors and
// 5xx responses. Every attempt waits on the rate limiter.
func (c *Client) do(ctx context.Context, call, method, path string, payload any, idempotent bool) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", call, err)
		}
	}

	attempts := 1
	if idempotent {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w: %w", call, ErrUpstream, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		body, retry, err := c.attempt(ctx, call, method, path, encoded)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Warn(ctx, "retrying upstream call",
			logger.String("call", call),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, call, method, path string, encoded []byte) (body []byte, retry bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordUpstreamCall(call, "rate_limited", 0)
		return nil, false, fmt.Errorf("%s: %w: %w", call, ErrUpstream, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if encoded != nil {
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("%s: build request: %w", call, err)
	}
	req.Header.Set("Accept", "application/json")
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstreamCall(call, "transport_error", latency)
		return nil, true, fmt.Errorf("%s: %w: %w", call, ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordUpstreamCall(call, "read_error", latency)
		return nil, true, fmt.Errorf("%s: read body: %w: %w", call, ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamCall(call, "status_"+strconv.Itoa(resp.StatusCode), latency)
		return nil, resp.StatusCode >= 500, fmt.Errorf("%s: %w: status %d", call, ErrUpstream, resp.StatusCode)
	}
	metrics.RecordUpstreamCall(call, "ok", latency)
	return body, false, nil
}
