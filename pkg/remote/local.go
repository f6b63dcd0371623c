package remote

import (
	"context"

	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/vfs"
)

func init() {
	RegisterProvider(&LocalProvider{})
}

// 📁 LocalProvider serves the "local" protocol: the remote tree is a path on
// this machine, typically a mounted share.
type LocalProvider struct{}

func (p *LocalProvider) Name() string {
	return config.ProtocolLocal
}

func (p *LocalProvider) Connect(ctx context.Context, info HostInfo) (vfs.FileSystem, error) {
	return vfs.NewLocal(), nil
}
