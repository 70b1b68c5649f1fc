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
	"fmt"
	"net/http"
	"net/url"
)

// QuotaCmd groups the mutations the admin surface's quota routes expose:
// set a rate (and optionally a burst), or clear an entry.
type QuotaCmd struct {
	Set   QuotaSetCmd   `cmd:"" help:"Set the rate, burst, and mode for a backend/op."`
	Clear QuotaClearCmd `cmd:"" help:"Clear a quota entry, a backend, or every backend."`
}

type QuotaSetCmd struct {
	Backend string  `required:"" help:"Backend name."`
	Op      string  `required:"" help:"Operation class (stat, read, write, list, delete)."`
	Rate    float64 `required:"" help:"Allowed cost units per second (bytes for data reads and writes, 1 per other call)."`
	Burst   int64   `help:"Burst allowance." default:"0"`
	Mode    string  `help:"Admission mode (blocking or nonblocking)." default:"blocking"`
}

func (c *QuotaSetCmd) Run(cli *CLI) error {
	req := map[string]any{
		"backend": c.Backend,
		"op":      c.Op,
		"rate":    c.Rate,
		"mode":    c.Mode,
	}
	if err := adminRequest(cli, http.MethodPut, "/v1/quotas", req, nil); err != nil {
		return err
	}
	fmt.Printf("quota set: %s/%s -> %.2f/s (%s)\n", c.Backend, c.Op, c.Rate, c.Mode)
	if c.Burst > 0 {
		burstReq := map[string]any{"backend": c.Backend, "op": c.Op, "burst": c.Burst}
		if err := adminRequest(cli, http.MethodPut, "/v1/quotas/burst", burstReq, nil); err != nil {
			return err
		}
		fmt.Printf("burst set: %s/%s -> %d\n", c.Backend, c.Op, c.Burst)
	}
	return nil
}

type QuotaClearCmd struct {
	Backend string `required:"" help:"Backend name, or \"*\" to clear every backend."`
	Op      string `help:"Operation class; omitted or \"*\" clears the whole backend."`
}

func (c *QuotaClearCmd) Run(cli *CLI) error {
	q := url.Values{}
	q.Set("backend", c.Backend)
	if c.Op != "" {
		q.Set("op", c.Op)
	}
	if err := adminRequest(cli, http.MethodDelete, "/v1/quotas?"+q.Encode(), nil, nil); err != nil {
		return err
	}
	fmt.Printf("cleared: %s/%s\n", c.Backend, orStar(c.Op))
	return nil
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
