// Command autoblog はControl APIと投稿スケジューラを起動する。
//
// サブコマンド:
//
//	serve        Control APIと投稿スケジューラを起動する（デフォルト）
//	worker       投稿スケジューラのみを起動する
//	migrate      データベースマイグレーションを適用する
//	healthcheck  /health を確認する（コンテナのヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/autoblog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "autoblog: %v\n", err)
		os.Exit(1)
	}
}
