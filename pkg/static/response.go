package static

import (
	"errors"
	"io"
	"net/http"
)

// chunkSize は1回のReadで読み込む最大バイト数
const chunkSize = 64 * 1024

// Outcome は1リクエストに対するレスポンスの結果で、ログ出力にのみ使われる
type Outcome struct {
	StatusCode   int
	ResourcePath string
}

// WriteOK はresourcePathの内容をステータス200でストリーミングする
//
// ヘッダーは最初のチャンクを読み込んだ時点で一度だけ書き込まれる。空のファイルの
// 場合はEOFの時点で書き込む。読み込みや書き込みに失敗した場合、レスポンスは
// その時点の状態のまま残り(ヘッダー送信済みで本文が途中の場合もある)、
// KindFileのエラーが返る。
func WriteOK(w http.ResponseWriter, fsys FileSystem, resourcePath string) (Outcome, error) {
	outcome := Outcome{StatusCode: http.StatusOK, ResourcePath: resourcePath}
	ctype := ContentType(resourcePath)

	f, err := fsys.Open(resourcePath)
	if err != nil {
		return outcome, fileError(resourcePath, err)
	}
	defer f.Close()

	headerWritten := false
	writeHeader := func() {
		if headerWritten {
			return
		}
		headerWritten = true
		w.Header().Set("Content-Type", ctype)
		w.WriteHeader(http.StatusOK)
	}

	buf := make([]byte, chunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			writeHeader()
			if _, werr := w.Write(buf[:n]); werr != nil {
				return outcome, fileError(resourcePath, werr)
			}
		}

		if errors.Is(rerr, io.EOF) {
			writeHeader()
			return outcome, nil
		}
		if rerr != nil {
			return outcome, fileError(resourcePath, rerr)
		}
	}
}

// WriteNotFound writes a complete plain-text 404 response naming resourcePath.
func WriteNotFound(w http.ResponseWriter, resourcePath string) Outcome {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, "Not Found!\n\n")
	io.WriteString(w, resourcePath+"\n")

	return Outcome{StatusCode: http.StatusNotFound, ResourcePath: resourcePath}
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "Internal Server Error\n")
}
