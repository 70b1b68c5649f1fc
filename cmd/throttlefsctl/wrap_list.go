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
)

// WrapCmd calls the admin surface's wrap endpoint, which builds (or
// returns the already-built) rate-limited facade for a registered
// backend.
type WrapCmd struct {
	Backend string `required:"" help:"Backend name to wrap."`
}

func (c *WrapCmd) Run(cli *CLI) error {
	var resp map[string]string
	if err := adminRequest(cli, http.MethodPost, "/v1/wrap/"+c.Backend, nil, &resp); err != nil {
		return err
	}
	fmt.Printf("wrapped: %s\n", resp["name"])
	return nil
}

// ListCmd groups the two read-only enumeration endpoints.
type ListCmd struct {
	Backends ListBackendsCmd `cmd:"" help:"List every registered backend and facade name."`
	Keys     ListKeysCmd     `cmd:"" help:"List every configured (backend, op) quota."`
}

type ListBackendsCmd struct{}

func (c *ListBackendsCmd) Run(cli *CLI) error {
	var names []string
	if err := adminRequest(cli, http.MethodGet, "/v1/backends", nil, &names); err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

type quotaView struct {
	Backend string  `json:"backend"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate"`
	Burst   int64   `json:"burst"`
	Mode    string  `json:"mode"`
}

type ListKeysCmd struct{}

func (c *ListKeysCmd) Run(cli *CLI) error {
	var views []quotaView
	if err := adminRequest(cli, http.MethodGet, "/v1/quotas", nil, &views); err != nil {
		return err
	}
	for _, v := range views {
		fmt.Printf("%s/%s\trate=%.2f/s\tburst=%d\tmode=%s\n", v.Backend, v.Op, v.Rate, v.Burst, v.Mode)
	}
	return nil
}
