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

// Command throttlefsctl is a thin client over the admin HTTP surface,
// plus a "serve" subcommand that boots that surface standalone (admin
// HTTP + gRPC over an in-process registry, for running throttlefs
// without embedding it in a host process).
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kong"

	throttlefs "github.com/kadirpekel/throttlefs"
	"github.com/kadirpekel/throttlefs/internal/logging"
)

// CLI defines the throttlefsctl command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Quota   QuotaCmd   `cmd:"" help:"Set or clear rate-limit quotas."`
	Wrap    WrapCmd    `cmd:"" help:"Wrap a registered backend in its rate-limited facade."`
	List    ListCmd    `cmd:"" help:"List backends or configured quota keys."`
	Schema  SchemaCmd  `cmd:"" help:"Emit a JSON Schema for the policy YAML file."`
	Serve   ServeCmd   `cmd:"" help:"Run the admin HTTP+gRPC surface standalone."`

	Server   string `help:"Admin HTTP base URL." default:"http://127.0.0.1:8080" env:"THROTTLEFSCTL_SERVER"`
	Token    string `help:"Bearer token for admin auth, if the server requires one." env:"THROTTLEFSCTL_TOKEN"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println(throttlefs.GetVersion().String())
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("throttlefsctl"),
		kong.Description("Control and run throttlefs's admin surface."),
		kong.UsageOnError(),
	)
	logging.Init(logging.ParseLevel(cli.LogLevel), os.Stderr)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

func newHTTPClient() *http.Client {
	return &http.Client{}
}
