package app

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Invocation
	}{
		{"引数なしはserve", nil, Invocation{Command: CommandServe}},
		{"serve", []string{"serve"}, Invocation{Command: CommandServe}},
		{"worker", []string{"worker"}, Invocation{Command: CommandWorker}},
		{"余分な引数は無視", []string{"worker", "--flag", "value"}, Invocation{Command: CommandWorker}},
		{"healthcheck", []string{"healthcheck"}, Invocation{Command: CommandHealthcheck}},
		{"migrateの既定はup", []string{"migrate"}, Invocation{Command: CommandMigrate, Migrate: MigrateUp}},
		{"migrate up", []string{"migrate", "up"}, Invocation{Command: CommandMigrate, Migrate: MigrateUp}},
		{"migrate down", []string{"migrate", "down"}, Invocation{Command: CommandMigrate, Migrate: MigrateDown}},
		{"migrate version", []string{"migrate", "version"}, Invocation{Command: CommandMigrate, Migrate: MigrateVersion}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%v) がエラーを返した: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownCommand_ReturnsError(t *testing.T) {
	if _, err := ParseCommand([]string{"serv"}); err == nil {
		t.Error("未知のサブコマンドでエラーが返らなかった")
	}
}

func TestParseCommand_UnknownMigrateAction_ReturnsError(t *testing.T) {
	if _, err := ParseCommand([]string{"migrate", "sideways"}); err == nil {
		t.Error("未知のmigrate操作でエラーが返らなかった")
	}
}
