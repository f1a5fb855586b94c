/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package solver talks to the remote geometry solve/draw service.
package solver

import (
	"bytes"
	"context"
	"crypto/tls"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "geosolve/internal/log"
)

// Path is the solve endpoint relative to the base URL.
const Path = "/api/geometry"

// Presets are the example commands offered to users.
var Presets = []string{"triangle 3 4 5", "triangle 5 5 5", "circle 7"}

// ErrBlankCommand rejects empty input before any request is made.
var ErrBlankCommand = errors.New("please enter a geometry command")

// RemoteError carries a failed solve. Message is shown to users verbatim.
type RemoteError struct {
	Status  int // HTTP status, 0 when the request never completed
	Message string
	Err     error
}

func (e *RemoteError) Error() string { return e.Message }
func (e *RemoteError) Unwrap() error { return e.Err }

// Result is a successful solve.
type Result struct {
	Shape      string
	Properties []Property
	// Image is the raster reference, normally a PNG data URL; empty when the
	// service returned no diagram.
	Image string
}

//go:embed response.schema.json
var responseSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(responseSchema))
})

// Client is a minimal HTTP client for the solve service.
type Client struct {
	BaseURL string
	Token   string // bearer token, optional
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     applog.WithComponent("solver"),
	}
}

// SetTimeout bounds each request.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.client.Timeout = d
	}
}

// SetInsecureTLS disables certificate verification, for self-signed dev servers.
func (c *Client) SetInsecureTLS(insecure bool) {
	if !insecure {
		c.client.Transport = nil
		return
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for dev servers
	c.client.Transport = tr
}

type wireResponse struct {
	Shape      *string         `json:"shape"`
	Properties json.RawMessage `json:"properties"`
	Image      *string         `json:"image"`
	Error      string          `json:"error"`
}

// Solve submits a free-text geometry command such as "circle 7".
func (c *Client) Solve(ctx context.Context, command string) (*Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrBlankCommand
	}
	l := applog.WithOperation(c.log, "solve")
	start := time.Now()

	body, status, err := c.post(ctx, Path, map[string]string{"command": command})
	if err != nil {
		l.Warn("request failed", slog.String("command", command), slog.Any("err", err))
		return nil, &RemoteError{Message: "solve request failed: " + err.Error(), Err: err}
	}
	if status < 200 || status >= 300 {
		msg := fmt.Sprintf("solver returned %d %s", status, http.StatusText(status))
		var w wireResponse
		if json.Unmarshal(body, &w) == nil && w.Error != "" {
			msg = w.Error
		}
		l.Info("solve rejected", slog.String("command", command), slog.Int("status", status), slog.String("error", msg))
		return nil, &RemoteError{Status: status, Message: msg}
	}
	if err := validate(body); err != nil {
		l.Warn("malformed response", slog.Int("status", status), slog.Any("err", err))
		return nil, &RemoteError{Status: status, Message: "malformed response from solver: " + err.Error(), Err: err}
	}
	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &RemoteError{Status: status, Message: "malformed response from solver: " + err.Error(), Err: err}
	}
	if w.Error != "" {
		l.Info("solve rejected", slog.String("command", command), slog.Int("status", status), slog.String("error", w.Error))
		return nil, &RemoteError{Status: status, Message: w.Error}
	}
	props, err := decodeProperties(w.Properties)
	if err != nil {
		return nil, &RemoteError{Status: status, Message: "malformed response from solver: " + err.Error(), Err: err}
	}
	res := &Result{Properties: props}
	if w.Shape != nil {
		res.Shape = *w.Shape
	}
	if w.Image != nil {
		res.Image = *w.Image
	}
	l.Info("solved",
		slog.String("command", command),
		slog.String("shape", res.Shape),
		slog.Int("properties", len(props)),
		slog.Bool("image", res.Image != ""),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func validate(body []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("response schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}
