package static

import "fmt"

// Kind はリクエスト処理中に発生したエラーの種別を表す
type Kind int

const (
	KindNotFound      Kind = iota + 1 // リソースが存在しない、またはstatに失敗した
	KindFile                          // 解決済みファイルの読み込み/書き込みに失敗した
	KindDepthExceeded                 // index.htmlの展開がMaxIndexDepthを超えた
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindFile:
		return "file error"
	case KindDepthExceeded:
		return "index depth exceeded"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error は種別と対象パスを保持するエラー
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("resource not found: %q", e.Path)
	case KindFile:
		if e.Err != nil {
			return fmt.Sprintf("error while reading %q: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("error while reading %q", e.Path)
	case KindDepthExceeded:
		return fmt.Sprintf("index expansion exceeded %d levels at %q", MaxIndexDepth, e.Path)
	default:
		return fmt.Sprintf("%v: %q", e.Kind, e.Path)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func notFound(path string, err error) *Error {
	return &Error{Kind: KindNotFound, Path: path, Err: err}
}

func fileError(path string, err error) *Error {
	return &Error{Kind: KindFile, Path: path, Err: err}
}
