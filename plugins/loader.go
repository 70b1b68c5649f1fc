package plugins

import (
	"fmt"
	"net/rpc"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/kadirpekel/throttlefs/facade"
)

// handshakeConfig is checked by both host and plugin before any RPCs are
// exchanged, guarding against accidentally launching an unrelated binary
// as a throttlefs backend.
var handshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "THROTTLEFS_PLUGIN",
	MagicCookieValue: "throttlefs_fs_backend_v1",
}

var pluginMap = map[string]plugin.Plugin{
	"fs": &FSPlugin{},
}

// FSPlugin is the hashicorp/go-plugin Plugin implementation for the "fs"
// plugin kind. It runs on both sides: the host uses Client to obtain an
// RPC-backed facade.FS, the plugin binary uses Server to expose a real
// facade.FS (Impl) over the same net/rpc connection.
type FSPlugin struct {
	Impl facade.FS
}

func (p *FSPlugin) Server(*plugin.MuxBroker) (any, error) {
	return newFSRPCServer(p.Impl), nil
}

func (p *FSPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &fsRPCClient{client: c}, nil
}

// Loader launches external backend binaries over hashicorp/go-plugin's
// net/rpc transport (plugin.ProtocolNetRPC), avoiding the protobuf
// codegen a gRPC-transport plugin would require.
type Loader struct {
	logger hclog.Logger
}

// NewLoader builds a Loader that logs through hclog at the given level.
func NewLoader(level hclog.Level) *Loader {
	return &Loader{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "throttlefs-plugin",
			Level:  level,
			Output: os.Stderr,
		}),
	}
}

// Load starts the plugin binary at path and returns the facade.FS it
// exposes, plus a cleanup func that terminates the subprocess.
func (l *Loader) Load(path string) (facade.FS, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  handshakeConfig,
		Plugins:          pluginMap,
		Cmd:              exec.Command(path),
		Logger:           l.logger,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: dial %s: %w", path, err)
	}

	raw, err := rpcClient.Dispense("fs")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: dispense fs from %s: %w", path, err)
	}

	fs, ok := raw.(facade.FS)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: %s did not dispense a facade.FS", path)
	}

	return fs, client.Kill, nil
}

// Serve is called from a plugin binary's main() to expose impl as the
// "fs" plugin over net/rpc. It blocks until the host disconnects.
func Serve(impl facade.FS) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: handshakeConfig,
		Plugins: map[string]plugin.Plugin{
			"fs": &FSPlugin{Impl: impl},
		},
	})
}
