package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
)

// successStatuses is the "success family" an interpreted request must land in.
var successStatuses = map[int]bool{
	http.StatusOK:       true,
	http.StatusCreated:  true,
	http.StatusAccepted: true,
}

// runAPICase issues the descriptor's request and applies its assertions.
// Request and response evidence is attached regardless of outcome.
func (r *Runner) runAPICase(ctx context.Context, spec plan.APICaseSpec) result.CaseResult {
	started := time.Now().UTC()
	cr := result.CaseResult{
		Index:     spec.Index,
		Name:      spec.Name,
		Status:    result.StatusPassed,
		StartedAt: started,
	}
	defer func() {
		cr.DurationMS = time.Since(started).Milliseconds()
	}()

	req, err := buildRequest(ctx, spec)
	if err != nil {
		cr.Status = result.StatusBroken
		cr.Steps = append(cr.Steps, result.Step{
			Name:   fmt.Sprintf("send %s request to %s", spec.Method, spec.URL),
			Status: result.StatusBroken,
			Detail: err.Error(),
		})
		return cr
	}
	cr.Attachments = append(cr.Attachments, requestAttachment(spec))

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("request failed", zap.String("case", spec.Name), zap.Error(err))
		cr.Status = result.StatusBroken
		cr.Steps = append(cr.Steps, result.Step{
			Name:   fmt.Sprintf("send %s request to %s", spec.Method, spec.URL),
			Status: result.StatusBroken,
			Detail: err.Error(),
		})
		return cr
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	cr.Steps = append(cr.Steps, result.Step{
		Name:   fmt.Sprintf("send %s request to %s", spec.Method, spec.URL),
		Status: result.StatusPassed,
	})
	cr.Attachments = append(cr.Attachments, responseAttachment(resp, body))

	statusStep := result.Step{Name: "verify response status code", Status: result.StatusPassed}
	if !successStatuses[resp.StatusCode] {
		statusStep.Status = result.StatusFailed
		statusStep.Detail = fmt.Sprintf("expected status in [200 201 202], got %d", resp.StatusCode)
		cr.Status = result.StatusFailed
	}
	cr.Steps = append(cr.Steps, statusStep)

	if len(spec.Expected) > 0 {
		dataStep := verifyExpected(spec.Expected, body)
		if dataStep.Status != result.StatusPassed && cr.Status == result.StatusPassed {
			cr.Status = result.StatusFailed
		}
		cr.Steps = append(cr.Steps, dataStep)
	}
	return cr
}

func buildRequest(ctx context.Context, spec plan.APICaseSpec) (*http.Request, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return nil, err
	}
	if len(spec.Params) > 0 {
		q := u.Query()
		for k, v := range spec.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		b, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// verifyExpected asserts every expected key is present and equal in the
// response body. The failure detail names the first offending key.
func verifyExpected(expected map[string]any, body []byte) result.Step {
	step := result.Step{Name: "verify response data", Status: result.StatusPassed}

	var actual map[string]any
	if err := json.Unmarshal(body, &actual); err != nil {
		step.Status = result.StatusFailed
		step.Detail = fmt.Sprintf("response body is not a JSON object: %v", err)
		return step
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			step.Status = result.StatusFailed
			step.Detail = fmt.Sprintf("expected key %q missing from response", k)
			return step
		}
		if !jsonEqual(expected[k], got) {
			step.Status = result.StatusFailed
			step.Detail = fmt.Sprintf("key %q: expected %v, got %v", k, expected[k], got)
			return step
		}
	}
	return step
}

// jsonEqual compares two values through a JSON round trip so that numeric
// types decoded differently still compare equal.
func jsonEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func requestAttachment(spec plan.APICaseSpec) result.Attachment {
	b, _ := result.Marshal(map[string]any{
		"method":  spec.Method,
		"url":     spec.URL,
		"headers": spec.Headers,
		"params":  spec.Params,
		"body":    spec.Body,
	})
	return result.Attachment{Name: "request", Type: "application/json", Body: string(b)}
}

func responseAttachment(resp *http.Response, body []byte) result.Attachment {
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	b, _ := result.Marshal(map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    string(body),
	})
	return result.Attachment{Name: "response", Type: "application/json", Body: string(b)}
}
