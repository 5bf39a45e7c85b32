package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はControl APIと投稿スケジューラを同一プロセスで起動する。
	CommandServe Command = "serve"
	// CommandWorker は投稿スケジューラのみを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーマのマイグレーションを操作する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認する。distrolessのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// MigrateAction はmigrateサブコマンドの操作。
type MigrateAction string

const (
	MigrateUp      MigrateAction = "up"
	MigrateDown    MigrateAction = "down"
	MigrateVersion MigrateAction = "version"
)

// Invocation はコマンドライン引数の解析結果。
type Invocation struct {
	Command Command
	// Migrate はCommandMigrateの場合のみ意味を持つ。
	Migrate MigrateAction
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はserveとして扱う。未知のサブコマンドは誤ってサーバーを起動しないようエラーにする。
func ParseCommand(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{Command: CommandServe}, nil
	}

	switch Command(args[0]) {
	case CommandServe, CommandWorker, CommandHealthcheck:
		return Invocation{Command: Command(args[0])}, nil
	case CommandMigrate:
		action := MigrateUp
		if len(args) > 1 {
			action = MigrateAction(args[1])
		}
		switch action {
		case MigrateUp, MigrateDown, MigrateVersion:
			return Invocation{Command: CommandMigrate, Migrate: action}, nil
		}
		return Invocation{}, fmt.Errorf("unknown migrate action %q (up|down|version)", args[1])
	default:
		return Invocation{}, fmt.Errorf("unknown command %q (%s)", args[0], strings.Join([]string{
			string(CommandServe), string(CommandWorker), string(CommandMigrate), string(CommandHealthcheck),
		}, "|"))
	}
}
