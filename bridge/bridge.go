/*
Copyright 2023 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package bridge carries the context a ConnectionManager populates for
// a bridge-keyword ("table"/"values") block before the expansion engine
// routes it out of process, and performs the one HTTP call the core
// itself is responsible for: fetching the bridge's /config document
// (spec.md §4.4, §4.6). Everything past that - the actual query
// transport, header composition, compression negotiation - belongs to
// the bridge extension's own listener, outside this module's scope.
package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context is what the expansion engine attaches to a bridge-routed
// block's properties.
type Context struct {
	URL     string
	Token   string
	Product string
	User    string
}

// EncodedToken returns the base64 form of Token for the Authorization
// header, or "" when no token is configured.
func (c Context) EncodedToken() string {
	if c.Token == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(c.Token))
}

// PathFor returns the query-mode path segment for a bridge keyword:
// "values" gets a fresh per-block UUID under "direct/" (synchronous,
// single-shot); "table" gets the stable "async/" prefix (polled).
func PathFor(keyword string) string {
	if keyword == "values" {
		return "direct/" + uuid.New().String()
	}
	return "async/"
}

// Fetch performs "<baseURL>/config" and returns the response body.
// Failure (network error or non-2xx status) is returned for the caller
// to log and fall back to a bare Context (spec.md §4.4).
func Fetch(ctx context.Context, baseURL string, connectTimeout, readTimeout time.Duration, logger *zap.Logger) ([]byte, error) {
	total := connectTimeout + readTimeout
	reqCtx, cancel := context.WithTimeout(ctx, total)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/config", nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: total}
	resp, err := client.Do(req)
	if err != nil {
		if logger != nil {
			logger.Debug("bridge config fetch failed", zap.String("url", baseURL), zap.Error(err))
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jdbcx: bridge config fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
