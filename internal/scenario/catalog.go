// Package scenario holds the journey catalog, staging profiles, and default
// threshold rules for benching the scheduling API.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/taskweave/loadbench/internal/client"
	"github.com/taskweave/loadbench/internal/journey"
)

// Per-iteration context keys shared between steps.
const (
	keyToken         = "token"
	keyEmail         = "email"
	keyScheduleID    = "schedule_id"
	keyArrangementID = "arrangement_id"
)

// Fixed account the browse journey signs in with. Planner and arranger
// iterations sign up their own throwaway accounts.
const (
	benchEmail    = "bench@taskweave.dev"
	benchPassword = "bench-password-1"
)

// Catalog builds the journey mix against one API caller.
type Catalog struct {
	caller client.Caller
}

// NewCatalog returns a catalog whose journeys call through c.
func NewCatalog(c client.Caller) *Catalog {
	return &Catalog{caller: c}
}

// Journeys returns the full weighted mix: mostly browsing, some planning,
// occasional AI arranging.
func (c *Catalog) Journeys() []journey.Journey {
	return []journey.Journey{c.Browse(), c.Planner(), c.Arranger()}
}

// Browse is the read-mostly flow: sign in, list schedules, open one.
func (c *Catalog) Browse() journey.Journey {
	return journey.Journey{
		Name:   "browse",
		Weight: 6,
		Steps: []journey.Step{
			{
				Label:    "login",
				Action:   c.login(benchEmail, benchPassword),
				ThinkMin: 500 * time.Millisecond,
				ThinkMax: 2 * time.Second,
			},
			{
				Label:    "list_schedules",
				Action:   c.listSchedules,
				ThinkMin: time.Second,
				ThinkMax: 3 * time.Second,
			},
			{
				Label:  "view_schedule",
				Action: c.viewSchedule,
			},
		},
	}
}

// Planner is the write flow: fresh account, create and edit a schedule,
// clean up.
func (c *Catalog) Planner() journey.Journey {
	return journey.Journey{
		Name:   "planner",
		Weight: 3,
		Steps: []journey.Step{
			{
				Label:    "signup",
				Action:   c.signup,
				ThinkMin: 500 * time.Millisecond,
				ThinkMax: 2 * time.Second,
			},
			{
				Label:    "create_schedule",
				Action:   c.createSchedule,
				ThinkMin: time.Second,
				ThinkMax: 4 * time.Second,
			},
			{
				Label:    "add_task",
				Action:   c.addTask,
				ThinkMin: time.Second,
				ThinkMax: 4 * time.Second,
			},
			{
				Label:    "update_schedule",
				Action:   c.updateSchedule,
				ThinkMin: 500 * time.Millisecond,
				ThinkMax: 2 * time.Second,
			},
			{
				Label:      "delete_schedule",
				Action:     c.deleteSchedule,
				BestEffort: true,
			},
			{
				Label:      "logout",
				Action:     c.logout,
				BestEffort: true,
			},
		},
	}
}

// Arranger exercises the AI arrangement endpoint, the most expensive call
// the target exposes.
func (c *Catalog) Arranger() journey.Journey {
	return journey.Journey{
		Name:   "arranger",
		Weight: 1,
		Steps: []journey.Step{
			{
				Label:    "signup",
				Action:   c.signup,
				ThinkMin: 500 * time.Millisecond,
				ThinkMax: 2 * time.Second,
			},
			{
				Label:    "create_schedule",
				Action:   c.createSchedule,
				ThinkMin: time.Second,
				ThinkMax: 3 * time.Second,
			},
			{
				Label:    "add_task",
				Action:   c.addTask,
				ThinkMin: time.Second,
				ThinkMax: 3 * time.Second,
			},
			{
				Label:   "ai_arrange",
				Action:  c.aiArrange,
				Timeout: 60 * time.Second,
			},
			{
				Label:  "apply_arrangement",
				Action: c.applyArrangement,
			},
			{
				Label:      "delete_schedule",
				Action:     c.deleteSchedule,
				BestEffort: true,
			},
		},
	}
}

func (c *Catalog) login(email, password string) journey.Action {
	return func(ctx context.Context, jc *journey.Context) journey.StepResult {
		body, res := c.call(ctx, jc, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": email, "password": password}, http.StatusOK)
		if !res.Success {
			return res
		}
		return c.storeSession(jc, body, res)
	}
}

func (c *Catalog) signup(ctx context.Context, jc *journey.Context) journey.StepResult {
	email := fmt.Sprintf("bench-%s@taskweave.dev", jc.ID)
	body, res := c.call(ctx, jc, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": email, "password": benchPassword}, http.StatusCreated)
	if !res.Success {
		return res
	}
	jc.Set(keyEmail, email)
	return c.storeSession(jc, body, res)
}

func (c *Catalog) storeSession(jc *journey.Context, body []byte, res journey.StepResult) journey.StepResult {
	token, ok := field(body, "token")
	if !ok {
		return journey.Failf("response has no token")
	}
	if err := CheckSessionToken(token, time.Now()); err != nil {
		return journey.Failf("%v", err)
	}
	jc.Set(keyToken, token)
	return res
}

func (c *Catalog) logout(ctx context.Context, jc *journey.Context) journey.StepResult {
	_, res := c.call(ctx, jc, http.MethodPost, "/api/v1/auth/logout", nil, http.StatusNoContent)
	return res
}

func (c *Catalog) listSchedules(ctx context.Context, jc *journey.Context) journey.StepResult {
	body, res := c.call(ctx, jc, http.MethodGet, "/api/v1/schedules", nil, http.StatusOK)
	if !res.Success {
		return res
	}

	var page struct {
		Schedules []struct {
			ID string `json:"id"`
		} `json:"schedules"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return journey.Failf("decode schedule list: %v", err)
	}
	if len(page.Schedules) == 0 || page.Schedules[0].ID == "" {
		return journey.Failf("no schedules to browse")
	}
	jc.Set(keyScheduleID, page.Schedules[0].ID)
	return res
}

func (c *Catalog) viewSchedule(ctx context.Context, jc *journey.Context) journey.StepResult {
	id, ok := jc.Get(keyScheduleID)
	if !ok {
		return journey.Failf("no schedule id from earlier step")
	}
	_, res := c.call(ctx, jc, http.MethodGet, "/api/v1/schedules/"+id, nil, http.StatusOK)
	return res
}

func (c *Catalog) createSchedule(ctx context.Context, jc *journey.Context) journey.StepResult {
	body, res := c.call(ctx, jc, http.MethodPost, "/api/v1/schedules", map[string]string{
		"title": "bench schedule " + jc.ID,
		"date":  time.Now().Format("2006-01-02"),
	}, http.StatusCreated)
	if !res.Success {
		return res
	}

	id, ok := field(body, "id")
	if !ok {
		return journey.Failf("created schedule has no id")
	}
	jc.Set(keyScheduleID, id)
	return res
}

func (c *Catalog) addTask(ctx context.Context, jc *journey.Context) journey.StepResult {
	id, ok := jc.Get(keyScheduleID)
	if !ok {
		return journey.Failf("no schedule id from earlier step")
	}
	_, res := c.call(ctx, jc, http.MethodPost, "/api/v1/schedules/"+id+"/tasks", map[string]any{
		"title":            "bench task",
		"duration_minutes": 30,
	}, http.StatusCreated)
	return res
}

func (c *Catalog) updateSchedule(ctx context.Context, jc *journey.Context) journey.StepResult {
	id, ok := jc.Get(keyScheduleID)
	if !ok {
		return journey.Failf("no schedule id from earlier step")
	}
	_, res := c.call(ctx, jc, http.MethodPatch, "/api/v1/schedules/"+id, map[string]string{
		"title": "bench schedule (edited)",
	}, http.StatusOK)
	return res
}

func (c *Catalog) deleteSchedule(ctx context.Context, jc *journey.Context) journey.StepResult {
	id, ok := jc.Get(keyScheduleID)
	if !ok {
		// Nothing was created, nothing to clean up.
		return journey.OK()
	}
	_, res := c.call(ctx, jc, http.MethodDelete, "/api/v1/schedules/"+id, nil, http.StatusNoContent)
	return res
}

func (c *Catalog) aiArrange(ctx context.Context, jc *journey.Context) journey.StepResult {
	id, ok := jc.Get(keyScheduleID)
	if !ok {
		return journey.Failf("no schedule id from earlier step")
	}
	body, res := c.call(ctx, jc, http.MethodPost, "/api/v1/schedules/"+id+"/arrange", nil, http.StatusOK)
	if !res.Success {
		return res
	}

	arrID, ok := field(body, "arrangement_id")
	if !ok {
		return journey.Failf("arrange response has no arrangement_id")
	}
	jc.Set(keyArrangementID, arrID)
	return res
}

func (c *Catalog) applyArrangement(ctx context.Context, jc *journey.Context) journey.StepResult {
	arrID, ok := jc.Get(keyArrangementID)
	if !ok {
		return journey.Failf("no arrangement id from earlier step")
	}
	_, res := c.call(ctx, jc, http.MethodPost, "/api/v1/arrangements/"+arrID+"/apply", nil, http.StatusOK)
	return res
}

// call performs one API request and maps transport errors and unexpected
// statuses to step failures. The returned duration is the wire time
// measured by the client.
func (c *Catalog) call(ctx context.Context, jc *journey.Context, method, path string, payload any, want int) ([]byte, journey.StepResult) {
	req := client.Request{Method: method, Path: path}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, journey.Failf("encode payload: %v", err)
		}
		req.Body = raw
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}
	if token, ok := jc.Get(keyToken); ok {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.caller.Do(ctx, req)
	if err != nil {
		return nil, journey.Failf("%v", err)
	}
	if resp.StatusCode != want {
		return resp.Body, journey.StepResult{
			Duration: resp.Duration,
			Error:    fmt.Sprintf("%s %s: status %d, want %d", method, path, resp.StatusCode, want),
		}
	}
	return resp.Body, journey.StepResult{Success: true, Duration: resp.Duration}
}

// field extracts a top-level string field from a JSON object body.
func field(body []byte, key string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	v, ok := obj[key].(string)
	return v, ok && v != ""
}
