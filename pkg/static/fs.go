package static

import (
	"io"
	"io/fs"
	"os"
)

// FileSystem はResolverとWriteOKが利用するファイルシステム操作を抽象化する
//
//go:generate mockgen -source fs.go -destination mock/fs.go
type FileSystem interface {
	Lstat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
}

// OSFileSystem はosパッケージをそのまま利用するFileSystem
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (OSFileSystem) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}
