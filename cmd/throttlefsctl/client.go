// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// adminRequest issues method against cli.Server+path, sending body (if
// non-nil) as JSON and decoding a JSON response into out (if non-nil). It
// mirrors the errors the admin HTTP surface reports: non-2xx responses
// carry a {"error": "..."} body.
func adminRequest(cli *CLI, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, cli.Server+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cli.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cli.Token)
	}

	resp, err := newHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("throttlefsctl: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("throttlefsctl: %s %s: %s (%s)", method, path, errBody.Error, resp.Status)
		}
		return fmt.Errorf("throttlefsctl: %s %s: %s", method, path, resp.Status)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
