package migrations_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/TAPUZE/project-chimera/migrations"
)

func TestFS_Paired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(migrations.FS, down); err != nil {
			t.Errorf("%s has no matching %s", up, down)
		}
	}
}

func TestFS_Tables(t *testing.T) {
	var schema strings.Builder
	ups, _ := fs.Glob(migrations.FS, "*.up.sql")
	for _, up := range ups {
		data, err := fs.ReadFile(migrations.FS, up)
		if err != nil {
			t.Fatal(err)
		}
		schema.Write(data)
	}

	for _, table := range []string{"users", "agents", "tasks", "chat_sessions", "chat_messages", "agent_metrics"} {
		if !strings.Contains(schema.String(), "CREATE TABLE "+table+" (") {
			t.Errorf("schema does not create %s", table)
		}
	}
}
