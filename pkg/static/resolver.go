package static

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

const indexFile = "index.html"

// MaxIndexDepth は1リクエストあたりのディレクトリ→index.html展開の上限回数
//
// ディレクトリ名がindex.htmlのディレクトリが連なる構成でも解決が終わるように
// 上限を設けている。上限を超えた場合はKindDepthExceededのエラーになる。
const MaxIndexDepth = 8

// Resolver はリクエストパスをwebRoot配下のファイルパスに解決する
type Resolver struct {
	fsys    FileSystem
	webRoot string
}

func NewResolver(fsys FileSystem, webRoot string) *Resolver {
	return &Resolver{
		fsys:    fsys,
		webRoot: webRoot,
	}
}

// Resolve はrequestPathに対応するファイルパスを返す
//
// 空のrequestPathは"/"として扱う。候補パスがディレクトリの場合は
// index.htmlを付け足して再度解決する。statに失敗した場合は、その時点の
// 候補パスを保持したKindNotFoundのエラーを返す。ファイルが読み込み可能かどうかは
// ここでは確認しない。
func (r *Resolver) Resolve(requestPath string) (string, error) {
	if requestPath == "" {
		requestPath = "/"
	}

	for depth := 0; ; depth++ {
		candidate := joinPath(r.webRoot, requestPath)

		info, err := r.fsys.Lstat(candidate)
		if err != nil {
			return "", notFound(candidate, err)
		}

		if !info.IsDir() {
			return candidate, nil
		}

		if depth == MaxIndexDepth {
			return "", &Error{Kind: KindDepthExceeded, Path: candidate}
		}

		requestPath = path.Join(requestPath, indexFile)
	}
}

// joinPath joins base and p like filepath.Join but keeps a trailing slash of p,
// so "/testing/" under "webRoot" becomes "webRoot/testing/". ".." segments are
// resolved lexically and are not confined to base.
func joinPath(base, p string) string {
	joined := filepath.Join(base, filepath.FromSlash(p))
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(joined, string(os.PathSeparator)) {
		joined += string(os.PathSeparator)
	}
	return joined
}
